package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vbonduro/skintell/internal/advisor"
	"github.com/vbonduro/skintell/internal/capture"
	"github.com/vbonduro/skintell/internal/domain"
	"github.com/vbonduro/skintell/internal/photostore"
)

// StreakGoal is the number of consecutive scan days the home screen
// challenges users to reach.
const StreakGoal = 7

var ErrScanNotFound = errors.New("scan not found")

// streakWindow bounds how far back the streak calculation looks.
const streakWindow = 366 * 24 * time.Hour

// scanRepository is the subset of store.ScanStore that ScanService requires.
type scanRepository interface {
	Create(ctx context.Context, storageKey, mimeType, analysis string, createdAt time.Time) (*domain.Scan, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.Scan, error)
	CreatedSince(ctx context.Context, since time.Time) ([]time.Time, error)
	GetByID(ctx context.Context, id int64) (*domain.Scan, error)
	Delete(ctx context.Context, id int64) error
}

type adviser interface {
	Advise(ctx context.Context, p advisor.Prompt) (string, error)
}

type ScanService struct {
	scanStore scanRepository
	photoStg  photostore.PhotoStore
	advisor   adviser
	logger    *slog.Logger
	now       func() time.Time
	loc       *time.Location
}

func NewScanService(
	scanStore scanRepository,
	photoStg photostore.PhotoStore,
	advisor adviser,
	logger *slog.Logger,
) *ScanService {
	return &ScanService{
		scanStore: scanStore,
		photoStg:  photoStg,
		advisor:   advisor,
		logger:    logger,
		now:       time.Now,
		loc:       time.Local,
	}
}

// Analyze asks the advisor about img, then stores the photo and records the
// scan. Nothing is stored when the analysis fails.
func (s *ScanService) Analyze(ctx context.Context, img capture.Image, answers *domain.Questionnaire) (domain.AnalysisResult, error) {
	s.logger.Info("scan started", "mime_type", img.MimeType, "bytes", len(img.Data), "questionnaire", answers != nil)

	prompt, err := advisor.BuildScanPrompt(img, answers)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	analysis, err := s.advisor.Advise(ctx, prompt)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("failed to analyze image: %w", err)
	}
	s.logger.Info("scan analysis complete", "chars", len(analysis))

	storageKey, err := s.photoStg.Save(ctx, "scan", img.MimeType, bytes.NewReader(img.Data))
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("failed to save photo: %w", err)
	}
	s.logger.Debug("photo saved", "storage_key", storageKey)

	scan, err := s.scanStore.Create(ctx, storageKey, img.MimeType, analysis, s.now())
	if err != nil {
		if derr := s.photoStg.Delete(ctx, storageKey); derr != nil {
			s.logger.Warn("failed to remove orphaned photo", "storage_key", storageKey, "error", derr)
		}
		return domain.AnalysisResult{}, fmt.Errorf("failed to record scan: %w", err)
	}
	s.logger.Info("scan recorded", "scan_id", scan.ID, "storage_key", storageKey)

	return domain.AnalysisResult{
		ImageRef:     photostore.Ref(storageKey),
		AnalysisText: analysis,
	}, nil
}

func (s *ScanService) History(ctx context.Context, limit int) ([]*domain.Scan, error) {
	return s.scanStore.ListRecent(ctx, limit)
}

// DeleteScan removes a scan and its photo. A photo that cannot be removed is
// logged and left behind; the scan itself is gone either way.
func (s *ScanService) DeleteScan(ctx context.Context, id int64) error {
	scan, err := s.scanStore.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if scan == nil {
		return ErrScanNotFound
	}

	if err := s.scanStore.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.photoStg.Delete(ctx, scan.StorageKey); err != nil {
		s.logger.Warn("failed to remove scan photo", "scan_id", id, "storage_key", scan.StorageKey, "error", err)
	}
	s.logger.Info("scan deleted", "scan_id", id)
	return nil
}

type Streak struct {
	Days         int  `json:"days"`
	ScannedToday bool `json:"scannedToday"`
	Goal         int  `json:"goal"`
}

// Streak counts consecutive calendar days with at least one scan. A streak
// that ended yesterday is still alive until today is over.
func (s *ScanService) Streak(ctx context.Context) (Streak, error) {
	now := s.now().In(s.loc)
	times, err := s.scanStore.CreatedSince(ctx, now.Add(-streakWindow))
	if err != nil {
		return Streak{}, fmt.Errorf("failed to load scan history: %w", err)
	}
	days, today := countStreak(times, now, s.loc)
	return Streak{Days: days, ScannedToday: today, Goal: StreakGoal}, nil
}

func countStreak(times []time.Time, now time.Time, loc *time.Location) (int, bool) {
	seen := make(map[string]bool, len(times))
	for _, t := range times {
		seen[dayKey(t.In(loc))] = true
	}

	day := now
	today := seen[dayKey(day)]
	if !today {
		day = day.AddDate(0, 0, -1)
	}

	n := 0
	for seen[dayKey(day)] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n, today
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
