package scheduler

import (
	"context"
	"sync"
	"time"

	apperrors "paycore/internal/errors"
	"paycore/internal/models"
	"paycore/internal/repositories"

	"github.com/rs/zerolog"
)

const DefaultBatchSize = 100

// Repository lists scheduled transfers that are due.
type Repository interface {
	ListDueScheduled(ctx context.Context, now time.Time, after *repositories.ScheduledCursor, limit int) ([]*models.Transfer, error)
}

// Executor activates one scheduled transfer.
type Executor interface {
	ExecuteScheduled(ctx context.Context, transferID string) (*models.Transfer, error)
}

// Summary counts the outcomes of one scan.
type Summary struct {
	Scanned    int `json:"scanned"`
	Completed  int `json:"completed"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Deferred   int `json:"deferred"`
}

// Jobs holds the scheduled-transfer activation job.
type Jobs struct {
	repo      Repository
	executor  Executor
	batchSize int
	now       func() time.Time
	log       zerolog.Logger

	mu sync.Mutex
}

func NewJobs(repo Repository, executor Executor, batchSize int, log zerolog.Logger) *Jobs {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Jobs{
		repo:      repo,
		executor:  executor,
		batchSize: batchSize,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

// ActivateDueTransfers is the cron entry point.
func (j *Jobs) ActivateDueTransfers() {
	summary, err := j.RunOnce(context.Background())
	if err != nil {
		j.log.Error().Err(err).Msg("scheduled transfer scan failed")
		return
	}
	if summary.Scanned > 0 {
		j.log.Info().
			Int("scanned", summary.Scanned).
			Int("completed", summary.Completed).
			Int("processing", summary.Processing).
			Int("failed", summary.Failed).
			Int("deferred", summary.Deferred).
			Msg("scheduled transfer scan finished")
	}
}

// RunOnce activates every due transfer. Scans never overlap; one failing
// transfer does not stop the others. Pages move forward by cursor, so
// transfers deferred in this scan are retried by the next one.
func (j *Jobs) RunOnce(ctx context.Context) (Summary, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var summary Summary
	var cursor *repositories.ScheduledCursor
	now := j.now()
	for {
		due, err := j.repo.ListDueScheduled(ctx, now, cursor, j.batchSize)
		if err != nil {
			return summary, err
		}

		for _, t := range due {
			summary.Scanned++
			j.activate(ctx, t, &summary)
		}

		if len(due) < j.batchSize || ctx.Err() != nil {
			return summary, ctx.Err()
		}
		cursor = cursorAfter(due[len(due)-1])
	}
}

func cursorAfter(t *models.Transfer) *repositories.ScheduledCursor {
	c := &repositories.ScheduledCursor{ID: t.ID}
	if t.ScheduledAt != nil {
		c.ScheduledAt = *t.ScheduledAt
	}
	return c
}

// activate runs one transfer and counts its outcome.
func (j *Jobs) activate(ctx context.Context, t *models.Transfer, summary *Summary) {
	log := j.log.With().Str("transfer_id", t.ID).Logger()

	result, err := j.executor.ExecuteScheduled(ctx, t.ID)
	if result == nil {
		summary.Deferred++
		switch apperrors.CodeOf(err) {
		case apperrors.CodeLockTimeout:
			log.Warn().Err(err).Msg("scheduled transfer busy, retrying next scan")
		default:
			log.Error().Err(err).Msg("scheduled transfer not activated")
		}
		return
	}

	switch result.Status {
	case models.TransferStatusCompleted:
		summary.Completed++
	case models.TransferStatusProcessing:
		summary.Processing++
	case models.TransferStatusFailed:
		summary.Failed++
		log.Warn().Str("code", result.FailureCode).Msg("scheduled transfer failed")
	default:
		summary.Deferred++
	}
}
