// Package overdue periodically announces loans that went past their due date.
package overdue

import (
	"context"
	"time"

	"go_library/internal/events"
	"go_library/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Worker scans for overdue loans on a ticker
type Worker struct {
	db        *gorm.DB
	now       model.Clock
	bus       events.Broadcaster
	logger    *logrus.Entry
	interval  time.Duration
	batchSize int
}

// Config holds the configuration for the overdue worker
type Config struct {
	DB          *gorm.DB
	Clock       model.Clock
	Bus         events.Broadcaster
	Logger      *logrus.Entry
	IntervalSec int
	BatchSize   int
}

// NewWorker creates a new overdue worker
func NewWorker(cfg *Config) *Worker {
	w := &Worker{
		db:        cfg.DB,
		now:       cfg.Clock,
		bus:       cfg.Bus,
		logger:    cfg.Logger.WithField("component", "overdue-worker"),
		interval:  time.Duration(cfg.IntervalSec) * time.Second,
		batchSize: cfg.BatchSize,
	}
	if w.now == nil {
		w.now = model.Now
	}
	if w.bus == nil {
		w.bus = events.Nop{}
	}
	if w.interval <= 0 {
		w.interval = 5 * time.Minute
	}
	if w.batchSize <= 0 {
		w.batchSize = 200
	}
	return w
}

// Run scans once immediately and then on every tick until ctx is done
func (w *Worker) Run(ctx context.Context) error {
	w.logger.WithField("interval", w.interval).Info("Starting overdue worker...")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.ScanOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.WithError(err).Error("Overdue scan failed")
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			w.logger.Info("Stopping overdue worker...")
			return nil
		}
	}
}

// ScanOnce announces every loan that became overdue since the last scan and returns how many it found
func (w *Worker) ScanOnce(ctx context.Context) (int, error) {
	ref := w.now()
	var due []model.Borrow
	if err := w.db.WithContext(ctx).
		Where("status = ? AND due_date < ? AND overdue_notified_at IS NULL", model.BorrowStatusBorrowed, ref).
		Order("due_date ASC").
		Limit(w.batchSize).
		Find(&due).Error; err != nil {
		return 0, err
	}

	notified := 0
	for i := range due {
		if ctx.Err() != nil {
			return notified, ctx.Err()
		}
		ok, err := w.notify(ctx, &due[i], ref)
		if err != nil {
			w.logger.WithError(err).WithField("borrow_id", due[i].ID).Warn("Failed to flag overdue borrow")
			continue
		}
		if ok {
			notified++
		}
	}

	if notified > 0 {
		w.logger.WithField("count", notified).Info("Overdue borrows flagged")
	}
	return notified, nil
}

func (w *Worker) notify(ctx context.Context, b *model.Borrow, ref time.Time) (bool, error) {
	var batch events.Batch
	flagged := false
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Guarded so a concurrent return or a second scanner does not double-announce
		res := tx.Model(&model.Borrow{}).
			Where("id = ? AND status = ? AND overdue_notified_at IS NULL", b.ID, model.BorrowStatusBorrowed).
			Update("overdue_notified_at", ref)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		flagged = true
		return batch.Record(tx, ref, events.Event{
			Topic:    model.TopicBorrows,
			Type:     events.BorrowOverdue,
			EntityID: b.ID,
			UserID:   b.UserID,
			Payload: map[string]interface{}{
				"bookId":      b.BookID,
				"dueDate":     b.DueDate,
				"daysOverdue": b.DaysOverdue(ref),
			},
		})
	})
	if err != nil {
		return false, err
	}
	batch.Flush(w.bus)
	return flagged, nil
}
