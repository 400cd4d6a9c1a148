package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MediSynth-io/casetracker/internal/models"
)

const testCaseColumns = "id, title, description, status, created_at, updated_at, owner_id"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTestCase(row rowScanner) (*models.TestCase, error) {
	tc := &models.TestCase{}
	err := row.Scan(
		&tc.ID,
		&tc.Title,
		&tc.Description,
		&tc.Status,
		&tc.CreatedAt,
		&tc.UpdatedAt,
		&tc.OwnerID,
	)
	if err != nil {
		return nil, err
	}
	tc.CreatedAt = tc.CreatedAt.UTC()
	tc.UpdatedAt = tc.UpdatedAt.UTC()
	return tc, nil
}

// CreateTestCase inserts tc and fills in its ID.
func (s *Store) CreateTestCase(ctx context.Context, tc *models.TestCase) error {
	query := s.rebind(`
		INSERT INTO test_cases (title, description, status, created_at, updated_at, owner_id)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := s.q.QueryRowContext(ctx, query,
		tc.Title, tc.Description, tc.Status, tc.CreatedAt, tc.UpdatedAt, tc.OwnerID,
	).Scan(&tc.ID)
	if err != nil {
		return fmt.Errorf("failed to create test case: %w", err)
	}
	return nil
}

// GetTestCase retrieves a test case owned by ownerID. Missing and foreign
// rows both return ErrNotFound.
func (s *Store) GetTestCase(ctx context.Context, id, ownerID int64) (*models.TestCase, error) {
	query := s.rebind("SELECT " + testCaseColumns + " FROM test_cases WHERE id = ? AND owner_id = ?")

	tc, err := scanTestCase(s.q.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test case: %w", err)
	}
	return tc, nil
}

// ListTestCases returns up to limit test cases owned by ownerID in insertion
// order, skipping the first skip rows.
func (s *Store) ListTestCases(ctx context.Context, ownerID int64, skip, limit int) ([]models.TestCase, error) {
	query := s.rebind("SELECT " + testCaseColumns + " FROM test_cases WHERE owner_id = ? ORDER BY id LIMIT ? OFFSET ?")
	return s.queryTestCases(ctx, query, ownerID, limit, skip)
}

// AllTestCases returns every test case owned by ownerID in insertion order.
func (s *Store) AllTestCases(ctx context.Context, ownerID int64) ([]models.TestCase, error) {
	query := s.rebind("SELECT " + testCaseColumns + " FROM test_cases WHERE owner_id = ? ORDER BY id")
	return s.queryTestCases(ctx, query, ownerID)
}

func (s *Store) queryTestCases(ctx context.Context, query string, args ...any) ([]models.TestCase, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list test cases: %w", err)
	}
	defer rows.Close()

	cases := []models.TestCase{}
	for rows.Next() {
		tc, err := scanTestCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test case: %w", err)
		}
		cases = append(cases, *tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list test cases: %w", err)
	}
	return cases, nil
}

// UpdateTestCase stores the mutable fields of tc. The row must belong to tc.OwnerID.
func (s *Store) UpdateTestCase(ctx context.Context, tc *models.TestCase) error {
	query := s.rebind(`
		UPDATE test_cases
		SET title = ?, description = ?, status = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`)

	result, err := s.q.ExecContext(ctx, query,
		tc.Title, tc.Description, tc.Status, tc.UpdatedAt, tc.ID, tc.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update test case: %w", err)
	}
	return expectOneRow(result)
}

// DeleteTestCase removes a test case owned by ownerID
func (s *Store) DeleteTestCase(ctx context.Context, id, ownerID int64) error {
	query := s.rebind("DELETE FROM test_cases WHERE id = ? AND owner_id = ?")

	result, err := s.q.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete test case: %w", err)
	}
	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
