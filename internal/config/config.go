package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. CASETRACKER_AUTH_JWTSECRET.
const EnvPrefix = "CASETRACKER"

type Config struct {
	APIPort int    `mapstructure:"apiPort"`
	Env     string `mapstructure:"env"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Server struct {
		ReadTimeout     time.Duration `mapstructure:"readTimeout"`
		WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	} `mapstructure:"server"`

	Database struct {
		Type            string        `mapstructure:"type"`
		Path            string        `mapstructure:"path"`
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		Name            string        `mapstructure:"name"`
		User            string        `mapstructure:"user"`
		Password        string        `mapstructure:"password"`
		SSLMode         string        `mapstructure:"sslMode"`
		MaxOpenConns    int           `mapstructure:"maxOpenConns"`
		MaxIdleConns    int           `mapstructure:"maxIdleConns"`
		ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
	} `mapstructure:"database"`

	Auth struct {
		JWTSecret  string        `mapstructure:"jwtSecret"`
		TokenTTL   time.Duration `mapstructure:"tokenTTL"`
		Issuer     string        `mapstructure:"issuer"`
		BcryptCost int           `mapstructure:"bcryptCost"`
	} `mapstructure:"auth"`

	CORS struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"cors"`

	S3 struct {
		Endpoint        string        `mapstructure:"endpoint"`
		Region          string        `mapstructure:"region"`
		Bucket          string        `mapstructure:"bucket"`
		AccessKeyID     string        `mapstructure:"accessKeyID"`
		SecretAccessKey string        `mapstructure:"secretAccessKey"`
		PresignTTL      time.Duration `mapstructure:"presignTTL"`
	} `mapstructure:"s3"`
}

// LoadConfig loads the configuration from file and environment variables.
// An empty path skips the file and relies on defaults and the environment.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		slog.Info("no config file given, using defaults and environment variables")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Info("configuration loaded",
		"apiPort", cfg.APIPort,
		"env", cfg.Env,
		"database", cfg.Database.Type,
		"tokenTTL", cfg.Auth.TokenTTL,
		"s3Enabled", cfg.S3Enabled())
	return &cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("apiPort %d out of range", c.APIPort))
	}
	switch c.Database.Type {
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			errs = append(errs, errors.New("database.host and database.name are required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database type: %q", c.Database.Type))
	}
	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("auth.jwtSecret must be at least 32 bytes"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.tokenTTL must be positive"))
	}
	if c.S3Enabled() && c.S3.Region == "" {
		errs = append(errs, errors.New("s3.region is required when s3.bucket is set"))
	}

	return errors.Join(errs...)
}

// S3Enabled reports whether test-case export to object storage is configured.
func (c *Config) S3Enabled() bool {
	return c.S3.Bucket != ""
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("0.0.0.0:%d", c.APIPort)
}
