package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MediSynth-io/casetracker/internal/models"
	"github.com/MediSynth-io/casetracker/internal/store"
	"github.com/google/uuid"
)

// Uploader writes export documents to object storage.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type exportDocument struct {
	Owner      string            `json:"owner"`
	ExportedAt time.Time         `json:"exported_at"`
	TestCases  []models.TestCase `json:"test_cases"`
}

// ExportTestCases writes every test case owned by caller to object storage
// as one JSON document and returns a time-limited download link.
func (s *Service) ExportTestCases(ctx context.Context, caller *models.User) (*models.Export, error) {
	if s.exporter == nil {
		return nil, ErrExportDisabled
	}

	var cases []models.TestCase
	err := s.store.WithTx(ctx, func(ctx context.Context, tx *store.Store) error {
		var err error
		cases, err = tx.AllTestCases(ctx, caller.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	body, err := json.Marshal(exportDocument{
		Owner:      caller.Username,
		ExportedAt: now,
		TestCases:  cases,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}

	key := fmt.Sprintf("exports/%d/%s.json", caller.ID, uuid.NewString())
	if err := s.exporter.Upload(ctx, key, body, "application/json"); err != nil {
		return nil, fmt.Errorf("failed to upload export: %w", err)
	}

	url, err := s.exporter.PresignGet(ctx, key, s.presignTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign export link: %w", err)
	}

	s.logger.Info("test cases exported", "owner_id", caller.ID, "count", len(cases), "key", key)
	return &models.Export{
		Key:       key,
		URL:       url,
		Count:     len(cases),
		ExpiresAt: now.Add(s.presignTTL),
	}, nil
}
