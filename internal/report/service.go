package report

import (
	"context"
	"time"

	"go_library/internal/apperr"
	"go_library/internal/model"
	"go_library/internal/session"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	dashboardKey      = "dashboard"
	invalidateTimeout = 2 * time.Second
)

// Cache stores computed dashboards. cache.JSONCache satisfies it.
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Service loads rows and summarizes them
type Service struct {
	db     *gorm.DB
	now    model.Clock
	cache  Cache
	ttl    time.Duration
	logger *logrus.Entry
}

// NewService creates a report service. A nil cache or zero ttl disables caching.
func NewService(db *gorm.DB, clock model.Clock, cache Cache, ttl time.Duration, logger *logrus.Entry) *Service {
	if clock == nil {
		clock = model.Now
	}
	return &Service{
		db:     db,
		now:    clock,
		cache:  cache,
		ttl:    ttl,
		logger: logger.WithField("component", "report"),
	}
}

// Dashboard returns the library-wide overview for staff
func (s *Service) Dashboard(ctx context.Context, actor session.Principal) (*Dashboard, error) {
	if err := session.Require(actor, session.Staff...); err != nil {
		return nil, err
	}

	if s.cachingEnabled() {
		var cached Dashboard
		found, err := s.cache.Get(ctx, dashboardKey, &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Dashboard cache read failed")
		} else if found {
			return &cached, nil
		}
	}

	ref := s.now()
	var (
		borrows []model.Borrow
		fees    []model.Fee
		stock   struct {
			Books     int64
			Copies    int64
			Available int64
		}
		users int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).Find(&borrows).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Find(&fees).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&model.Book{}).
			Select("COUNT(*) AS books, COALESCE(SUM(total_copies), 0) AS copies, COALESCE(SUM(available_copies), 0) AS available").
			Scan(&stock).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&model.User{}).Count(&users).Error
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.FromDB("failed to load dashboard data", err)
	}

	d := Summarize(borrows, fees, ref)
	d.TotalBooks = stock.Books
	d.TotalCopies = stock.Copies
	d.AvailableCopies = stock.Available
	d.TotalUsers = users

	if s.cachingEnabled() {
		if err := s.cache.Set(ctx, dashboardKey, d, s.ttl); err != nil {
			s.logger.WithError(err).Warn("Dashboard cache write failed")
		}
	}
	return &d, nil
}

// UserStatistics returns the statistics of one user, for that user or staff
func (s *Service) UserStatistics(ctx context.Context, actor session.Principal, userID int) (*UserStats, error) {
	if err := session.RequireSelfOrStaff(actor, userID); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return nil, apperr.FromDB("failed to load user", err)
	}
	if count == 0 {
		return nil, apperr.NotFound("user not found")
	}

	var borrows []model.Borrow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&borrows).Error; err != nil {
		return nil, apperr.FromDB("failed to load borrows", err)
	}
	var fees []model.Fee
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&fees).Error; err != nil {
		return nil, apperr.FromDB("failed to load fees", err)
	}

	stats := UserStatistics(userID, borrows, fees, s.now())
	return &stats, nil
}

// Broadcast drops the cached dashboard after a committed change, so the
// next read is fresh. It lets the service sit on the event bus.
func (s *Service) Broadcast(evt model.LibraryEvent) {
	if !s.cachingEnabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()
	if err := s.cache.Delete(ctx, dashboardKey); err != nil {
		s.logger.WithError(err).WithField("event", evt.EventType).Warn("Dashboard cache invalidation failed")
	}
}

func (s *Service) cachingEnabled() bool {
	return s.cache != nil && s.ttl > 0
}
