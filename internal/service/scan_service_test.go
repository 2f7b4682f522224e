package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/skintell/internal/advisor"
	"github.com/vbonduro/skintell/internal/capture"
	"github.com/vbonduro/skintell/internal/db"
	"github.com/vbonduro/skintell/internal/domain"
	"github.com/vbonduro/skintell/internal/store"
)

// stubAdviser returns a canned answer and records the prompts it was sent.
type stubAdviser struct {
	text    string
	err     error
	prompts []advisor.Prompt
}

func (s *stubAdviser) Advise(_ context.Context, p advisor.Prompt) (string, error) {
	s.prompts = append(s.prompts, p)
	return s.text, s.err
}

// stubPhotoStore is a minimal in-memory photostore.PhotoStore for tests.
type stubPhotoStore struct {
	saved   map[string][]byte
	saveErr error
	n       int
}

func newStubPhotoStore() *stubPhotoStore {
	return &stubPhotoStore{saved: make(map[string][]byte)}
}

func (s *stubPhotoStore) Save(_ context.Context, prefix, _ string, r io.Reader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	data, _ := io.ReadAll(r)
	s.n++
	key := fmt.Sprintf("%s_%d.jpg", prefix, s.n)
	s.saved[key] = data
	return key, nil
}

func (s *stubPhotoStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	data, ok := s.saved[key]
	if !ok {
		return nil, "", errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), "image/jpeg", nil
}

func (s *stubPhotoStore) Delete(_ context.Context, key string) error {
	delete(s.saved, key)
	return nil
}

// failingScanRepo fails every write.
type failingScanRepo struct{}

func (failingScanRepo) Create(context.Context, string, string, string, time.Time) (*domain.Scan, error) {
	return nil, errors.New("disk full")
}

func (failingScanRepo) ListRecent(context.Context, int) ([]*domain.Scan, error) { return nil, nil }

func (failingScanRepo) CreatedSince(context.Context, time.Time) ([]time.Time, error) {
	return nil, nil
}

func (failingScanRepo) GetByID(context.Context, int64) (*domain.Scan, error) { return nil, nil }

func (failingScanRepo) Delete(context.Context, int64) error { return errors.New("disk full") }

var testImage = capture.Image{Data: []byte{0xFF, 0xD8, 0xFF, 0xE0}, MimeType: "image/jpeg"}

func newTestService(t *testing.T, adv *stubAdviser) (*ScanService, *stubPhotoStore) {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	photos := newStubPhotoStore()
	return NewScanService(store.NewScanStore(d), photos, adv, slog.Default()), photos
}

func TestAnalyzeStoresPhotoAndScan(t *testing.T) {
	adv := &stubAdviser{text: "Normal skin with mild dryness."}
	svc, photos := newTestService(t, adv)
	ctx := context.Background()

	result, err := svc.Analyze(ctx, testImage, nil)
	require.NoError(t, err)
	assert.Equal(t, "/photos/scan_1.jpg", result.ImageRef)
	assert.Equal(t, "Normal skin with mild dryness.", result.AnalysisText)
	assert.Equal(t, testImage.Data, photos.saved["scan_1.jpg"])

	require.Len(t, adv.prompts, 1)
	assert.Equal(t, &testImage, adv.prompts[0].FirstImage())

	history, err := svc.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "scan_1.jpg", history[0].StorageKey)
}

func TestAnalyzeAdvisorFailureStoresNothing(t *testing.T) {
	adv := &stubAdviser{err: advisor.ErrUnavailable}
	svc, photos := newTestService(t, adv)

	_, err := svc.Analyze(context.Background(), testImage, nil)
	assert.ErrorIs(t, err, advisor.ErrUnavailable)
	assert.Empty(t, photos.saved)

	history, err := svc.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAnalyzeIncompleteQuestionnaire(t *testing.T) {
	adv := &stubAdviser{text: "unused"}
	svc, _ := newTestService(t, adv)

	_, err := svc.Analyze(context.Background(), testImage, &domain.Questionnaire{AgeRange: "25-34"})
	assert.ErrorIs(t, err, advisor.ErrIncompleteQuestionnaire)
	assert.Empty(t, adv.prompts)
}

func TestAnalyzeSaveFailure(t *testing.T) {
	adv := &stubAdviser{text: "ok"}
	svc, photos := newTestService(t, adv)
	photos.saveErr = errors.New("read-only filesystem")

	_, err := svc.Analyze(context.Background(), testImage, nil)
	assert.Error(t, err)
}

func TestAnalyzeRecordFailureRemovesPhoto(t *testing.T) {
	photos := newStubPhotoStore()
	svc := NewScanService(failingScanRepo{}, photos, &stubAdviser{text: "ok"}, slog.Default())

	_, err := svc.Analyze(context.Background(), testImage, nil)
	assert.Error(t, err)
	assert.Empty(t, photos.saved)
}

func TestDeleteScanRemovesScanAndPhoto(t *testing.T) {
	svc, photos := newTestService(t, &stubAdviser{text: "ok"})
	ctx := context.Background()

	_, err := svc.Analyze(ctx, testImage, nil)
	require.NoError(t, err)
	history, err := svc.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)

	require.NoError(t, svc.DeleteScan(ctx, history[0].ID))
	assert.Empty(t, photos.saved)

	history, err = svc.History(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.ErrorIs(t, svc.DeleteScan(ctx, 999), ErrScanNotFound)
}

func TestStreak(t *testing.T) {
	adv := &stubAdviser{text: "ok"}
	svc, _ := newTestService(t, adv)
	svc.loc = time.UTC
	ctx := context.Background()

	today := time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC)
	for _, daysAgo := range []int{5, 3, 2, 1} {
		svc.now = func() time.Time { return today.AddDate(0, 0, -daysAgo) }
		_, err := svc.Analyze(ctx, testImage, nil)
		require.NoError(t, err)
	}

	svc.now = func() time.Time { return today }
	streak, err := svc.Streak(ctx)
	require.NoError(t, err)
	assert.Equal(t, Streak{Days: 3, ScannedToday: false, Goal: StreakGoal}, streak)

	_, err = svc.Analyze(ctx, testImage, nil)
	require.NoError(t, err)
	streak, err = svc.Streak(ctx)
	require.NoError(t, err)
	assert.Equal(t, Streak{Days: 4, ScannedToday: true, Goal: StreakGoal}, streak)
}

func TestCountStreak(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	day := func(offset int) time.Time { return now.AddDate(0, 0, offset) }

	tests := []struct {
		name      string
		times     []time.Time
		wantDays  int
		wantToday bool
	}{
		{name: "no scans"},
		{name: "today only", times: []time.Time{day(0)}, wantDays: 1, wantToday: true},
		{name: "yesterday keeps streak alive", times: []time.Time{day(-1), day(-2)}, wantDays: 2},
		{name: "gap breaks streak", times: []time.Time{day(0), day(-2), day(-3)}, wantDays: 1, wantToday: true},
		{name: "two days ago is broken", times: []time.Time{day(-2)}},
		{name: "several scans one day", times: []time.Time{day(0), day(0).Add(-time.Hour), day(-1)}, wantDays: 2, wantToday: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days, today := countStreak(tt.times, now, time.UTC)
			assert.Equal(t, tt.wantDays, days)
			assert.Equal(t, tt.wantToday, today)
		})
	}
}
