package config

import (
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// DefaultAllowedOrigins are the local development origins of the web UI.
var DefaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
	"http://localhost:3000",
	"http://127.0.0.1:5173",
	"http://127.0.0.1:5174",
	"http://127.0.0.1:3000",
}

// Every key is registered so that environment variables can override it
// without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("apiPort", 8000)
	v.SetDefault("env", "dev")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.readTimeout", 15*time.Second)
	v.SetDefault("server.writeTimeout", 15*time.Second)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "casetracker.db")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 10)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 30*time.Minute)

	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.tokenTTL", 30*time.Minute)
	v.SetDefault("auth.issuer", "casetracker")
	v.SetDefault("auth.bcryptCost", bcrypt.DefaultCost)

	v.SetDefault("cors.allowedOrigins", DefaultAllowedOrigins)

	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.accessKeyID", "")
	v.SetDefault("s3.secretAccessKey", "")
	v.SetDefault("s3.presignTTL", 15*time.Minute)
}
