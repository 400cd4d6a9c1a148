package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/MediSynth-io/casetracker/internal/models"
	"github.com/MediSynth-io/casetracker/internal/store"
)

const (
	DefaultListSkip  = 0
	DefaultListLimit = 100
)

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// CreateTestCase stores a new test case owned by caller.
func (s *Service) CreateTestCase(ctx context.Context, caller *models.User, in models.TestCaseInput) (*models.TestCase, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.timestamp()
	tc := &models.TestCase{
		Title:       *in.Title,
		Description: *in.Description,
		Status:      *in.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
		OwnerID:     caller.ID,
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, tx *store.Store) error {
		return tx.CreateTestCase(ctx, tc)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("test case created", "test_case_id", tc.ID, "owner_id", caller.ID)
	return tc, nil
}

// ListTestCases returns a page of caller's test cases in insertion order.
func (s *Service) ListTestCases(ctx context.Context, caller *models.User, skip, limit int) ([]models.TestCase, error) {
	var verr models.ValidationError
	if skip < 0 {
		verr.Add("skip", "must be greater than or equal to 0")
	}
	if limit <= 0 {
		verr.Add("limit", "must be greater than 0")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	var cases []models.TestCase
	err := s.store.WithTx(ctx, func(ctx context.Context, tx *store.Store) error {
		var err error
		cases, err = tx.ListTestCases(ctx, caller.ID, skip, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cases, nil
}

// GetTestCase returns one of caller's test cases. Test cases of other users
// are reported as ErrNotFound.
func (s *Service) GetTestCase(ctx context.Context, caller *models.User, id int64) (*models.TestCase, error) {
	var tc *models.TestCase
	err := s.store.WithTx(ctx, func(ctx context.Context, tx *store.Store) error {
		var err error
		tc, err = tx.GetTestCase(ctx, id, caller.ID)
		return err
	})
	if err != nil {
		return nil, notFound(err)
	}
	return tc, nil
}

// UpdateTestCase replaces title, description and status of one of caller's
// test cases. UpdatedAt always moves forward.
func (s *Service) UpdateTestCase(ctx context.Context, caller *models.User, id int64, in models.TestCaseInput) (*models.TestCase, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var updated models.TestCase
	err := s.store.WithTx(ctx, func(ctx context.Context, tx *store.Store) error {
		current, err := tx.GetTestCase(ctx, id, caller.ID)
		if err != nil {
			return err
		}

		now := s.timestamp()
		if !now.After(current.UpdatedAt) {
			now = current.UpdatedAt.Add(time.Microsecond)
		}

		updated = in.Apply(*current, now)
		return tx.UpdateTestCase(ctx, &updated)
	})
	if err != nil {
		return nil, notFound(err)
	}

	s.logger.Debug("test case updated", "test_case_id", id, "owner_id", caller.ID)
	return &updated, nil
}

// DeleteTestCase removes one of caller's test cases.
func (s *Service) DeleteTestCase(ctx context.Context, caller *models.User, id int64) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx *store.Store) error {
		return tx.DeleteTestCase(ctx, id, caller.ID)
	})
	if err != nil {
		return notFound(err)
	}

	s.logger.Debug("test case deleted", "test_case_id", id, "owner_id", caller.ID)
	return nil
}
