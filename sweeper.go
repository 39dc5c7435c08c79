package main

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/floreria-api/cart"
	"github.com/junaidrashid-git/floreria-api/checkout"
	"github.com/junaidrashid-git/floreria-api/middleware"
	"github.com/junaidrashid-git/floreria-api/models"
)

// sweeper removes expired guests with their stored cart and last order, expired
// checkout sessions and idle rate limiter entries.
type sweeper struct {
	db       *gorm.DB
	carts    *cart.Store
	sessions *checkout.Sessions
	limiter  *middleware.RateLimiter
	logger   *zap.Logger
	now      func() time.Time
}

type sweepResult struct {
	Guests   int
	Sessions int64
	Limiters int
}

// nextRun returns the next occurrence of hour:00 strictly after now.
func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// runDaily sweeps once a day at hour until ctx is cancelled.
func (s *sweeper) runDaily(ctx context.Context, hour int) {
	for {
		next := nextRun(s.now(), hour)
		s.logger.Info("next cleanup scheduled", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		res, err := s.sweep(ctx)
		if err != nil {
			s.logger.Error("cleanup failed", zap.Error(err))
			continue
		}
		s.logger.Info("cleanup done",
			zap.Int("guests", res.Guests),
			zap.Int64("sessions", res.Sessions),
			zap.Int("limiters", res.Limiters))
	}
}

func (s *sweeper) sweep(ctx context.Context) (sweepResult, error) {
	var res sweepResult

	var guests []models.GuestUser
	if err := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Find(&guests).Error; err != nil {
		return res, err
	}
	for _, g := range guests {
		if err := s.carts.Forget(ctx, g.ID); err != nil {
			s.logger.Warn("removing guest storage failed", zap.String("guest_id", g.ID), zap.Error(err))
			continue
		}
		if err := s.db.WithContext(ctx).Delete(&models.GuestUser{}, "id = ?", g.ID).Error; err != nil {
			return res, err
		}
		res.Guests++
	}

	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return res, err
	}
	res.Sessions = n

	if s.limiter != nil {
		res.Limiters = s.limiter.Prune(limiterIdle)
	}
	return res, nil
}
