package models

import (
	"strings"
	"time"
)

// Common status values used by the UI. Status is free-form; these are not enforced.
const (
	StatusPending = "pending"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
)

const maxTitleLength = 255

// TestCase is a single tracked test case owned by exactly one user.
type TestCase struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
	OwnerID     int64     `json:"owner_id" db:"owner_id"`
}

// TestCaseInput carries the client-supplied fields of a test case. Pointers
// distinguish a missing field from an empty one.
type TestCaseInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// NewTestCaseInput builds an input with every field present.
func NewTestCaseInput(title, description, status string) TestCaseInput {
	return TestCaseInput{Title: &title, Description: &description, Status: &status}
}

// Validate checks that all fields are present and the title is usable.
func (in TestCaseInput) Validate() error {
	var verr ValidationError
	if in.Title == nil {
		verr.Add("title", "field required")
	} else if strings.TrimSpace(*in.Title) == "" {
		verr.Add("title", "must not be blank")
	} else if len(*in.Title) > maxTitleLength {
		verr.Add("title", "must be at most 255 characters")
	}
	if in.Description == nil {
		verr.Add("description", "field required")
	}
	if in.Status == nil {
		verr.Add("status", "field required")
	}
	return verr.OrNil()
}

// Apply returns a copy of tc with the input fields replacing the stored ones
// and UpdatedAt set to now. Identity, owner and creation time are preserved.
// The input must have passed Validate.
func (in TestCaseInput) Apply(tc TestCase, now time.Time) TestCase {
	tc.Title = *in.Title
	tc.Description = *in.Description
	tc.Status = *in.Status
	tc.UpdatedAt = now
	return tc
}
