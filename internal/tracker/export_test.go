package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MediSynth-io/casetracker/internal/auth"
	"github.com/MediSynth-io/casetracker/internal/logging"
	"github.com/MediSynth-io/casetracker/internal/models"
	"github.com/MediSynth-io/casetracker/internal/store"
	"golang.org/x/crypto/bcrypt"
)

type fakeUploader struct {
	objects map[string][]byte
	err     error
}

func (f *fakeUploader) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	if f.err != nil {
		return f.err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = body
	return nil
}

func (f *fakeUploader) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://s3.example.com/%s?ttl=%s", key, ttl), nil
}

func (s *TrackerTestSuite) exportingService(uploader Uploader) *Service {
	hasher, err := auth.NewHasher(bcrypt.MinCost)
	s.Require().NoError(err)
	return New(store.New(s.db), hasher, s.tokens, 30*time.Minute, logging.Discard(),
		WithClock(s.clock), WithExporter(uploader, 10*time.Minute))
}

func (s *TrackerTestSuite) TestExportDisabled() {
	s.register("alice")
	alice := s.login("alice")

	_, err := s.service.ExportTestCases(context.Background(), alice)
	s.ErrorIs(err, ErrExportDisabled)
}

func (s *TrackerTestSuite) TestExportTestCases() {
	ctx := context.Background()
	uploader := &fakeUploader{}
	service := s.exportingService(uploader)

	s.register("alice")
	s.register("bob")
	alice := s.login("alice")
	bob := s.login("bob")
	for _, title := range []string{"first", "second"} {
		_, err := service.CreateTestCase(ctx, alice, models.NewTestCaseInput(title, "", models.StatusPending))
		s.Require().NoError(err)
	}
	_, err := service.CreateTestCase(ctx, bob, models.NewTestCaseInput("bob's", "", ""))
	s.Require().NoError(err)

	export, err := service.ExportTestCases(ctx, alice)
	s.Require().NoError(err)
	s.Equal(2, export.Count)
	s.True(strings.HasPrefix(export.Key, fmt.Sprintf("exports/%d/", alice.ID)))
	s.Contains(export.URL, export.Key)
	s.Equal(s.now.Add(10*time.Minute), export.ExpiresAt)

	var doc struct {
		Owner     string            `json:"owner"`
		TestCases []models.TestCase `json:"test_cases"`
	}
	s.Require().NoError(json.Unmarshal(uploader.objects[export.Key], &doc))
	s.Equal("alice", doc.Owner)
	s.Require().Len(doc.TestCases, 2)
	s.Equal("first", doc.TestCases[0].Title)
	s.Equal("second", doc.TestCases[1].Title)
}

func (s *TrackerTestSuite) TestExportUploadFailure() {
	service := s.exportingService(&fakeUploader{err: errors.New("bucket gone")})
	s.register("alice")
	alice := s.login("alice")

	_, err := service.ExportTestCases(context.Background(), alice)
	s.Require().Error(err)
	s.Contains(err.Error(), "bucket gone")
}
