// Package training expires stale position-training requests. A request left
// pending past the configured age is closed out, and the instructors who let
// it sit are collectively fined a share of the position's credit value.
package training

import (
	"context"
	"time"

	"payment-reconciliation-service/internal/metrics"
	"payment-reconciliation-service/internal/models"
	"payment-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// penaltyRate is the fraction of the position's credit value charged to each
// instructor per expired request.
var penaltyRate = decimal.NewFromFloat(0.2)

// Store is the persistence contract the sweep runs against.
type Store interface {
	// ListStalePending returns pending requests created before the cutoff.
	ListStalePending(ctx context.Context, cutoff time.Time) ([]models.TrainingRequest, error)
	// CountInstructors reports how many users hold the instructor role.
	CountInstructors(ctx context.Context) (int64, error)
	// PenalizeInstructors decrements every instructor's balance by amount.
	PenalizeInstructors(ctx context.Context, amount int64) error
	// MarkExpired moves a request out of pending into the given status.
	MarkExpired(ctx context.Context, requestID int64, status models.TrainingRequestStatus) error
}

// Config holds sweep tuning.
type Config struct {
	// MaxAge is how long a request may stay pending before it expires.
	MaxAge time.Duration
	// Interval is how often the runner sweeps.
	Interval time.Duration
}

// DefaultConfig returns the production defaults: requests expire after three
// days and the runner sweeps hourly.
func DefaultConfig() Config {
	return Config{
		MaxAge:   72 * time.Hour,
		Interval: time.Hour,
	}
}

// Summary reports what one sweep did.
type Summary struct {
	Scanned    int `json:"scanned"`
	Penalized  int `json:"penalized"`
	Unassigned int `json:"unassigned"`
	Failed     int `json:"failed"`
}

// Sweeper expires stale training requests.
type Sweeper struct {
	store  Store
	config Config
	logger logger.Logger
	now    func() time.Time
}

// New creates a sweeper.
func New(store Store, config Config) *Sweeper {
	if config.MaxAge <= 0 {
		config.MaxAge = DefaultConfig().MaxAge
	}
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	return &Sweeper{
		store:  store,
		config: config,
		logger: logger.WithComponent("training-sweep"),
		now:    time.Now,
	}
}

// SweepOnce expires every pending request older than MaxAge. With no
// instructors on record the requests are only flagged; otherwise each one
// fines every instructor floor(positionCr * 0.2). A request that fails to
// process is left pending for the next sweep.
func (s *Sweeper) SweepOnce(ctx context.Context) (Summary, error) {
	cutoff := s.now().Add(-s.config.MaxAge)

	stale, err := s.store.ListStalePending(ctx, cutoff)
	if err != nil {
		return Summary{}, err
	}
	if len(stale) == 0 {
		return Summary{}, nil
	}

	instructors, err := s.store.CountInstructors(ctx)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Scanned: len(stale)}
	for _, req := range stale {
		log := s.logger.WithFields(logger.Fields{
			"request_id":  req.ID,
			"position_cr": req.PositionCr,
		})

		if instructors == 0 {
			if err := s.store.MarkExpired(ctx, req.ID, models.TrainingRequestExpiredUnassigned); err != nil {
				log.WithError(err).Error("flagging stale request failed")
				summary.Failed++
				continue
			}
			metrics.TrainingRequestsSwept.WithLabelValues(string(models.TrainingRequestExpiredUnassigned)).Inc()
			summary.Unassigned++
			continue
		}

		penalty := Penalty(req.PositionCr)
		if penalty > 0 {
			if err := s.store.PenalizeInstructors(ctx, penalty); err != nil {
				log.WithError(err).Error("penalizing instructors failed")
				summary.Failed++
				continue
			}
		}
		if err := s.store.MarkExpired(ctx, req.ID, models.TrainingRequestExpiredPenalized); err != nil {
			log.WithError(err).Error("closing stale request failed")
			summary.Failed++
			continue
		}
		metrics.TrainingRequestsSwept.WithLabelValues(string(models.TrainingRequestExpiredPenalized)).Inc()
		log.WithField("penalty", penalty).Info("stale training request expired")
		summary.Penalized++
	}

	return summary, nil
}

// Run sweeps immediately and then on every interval tick until ctx is
// cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweepAndLog(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

func (s *Sweeper) sweepAndLog(ctx context.Context) {
	summary, err := s.SweepOnce(ctx)
	if err != nil {
		s.logger.WithError(err).Error("sweep failed")
		return
	}
	if summary.Scanned > 0 {
		s.logger.WithFields(logger.Fields{
			"scanned":    summary.Scanned,
			"penalized":  summary.Penalized,
			"unassigned": summary.Unassigned,
			"failed":     summary.Failed,
		}).Info("sweep completed")
	}
}

// Penalty is the per-instructor fine for one expired request: one fifth of
// the position's credit value, rounded down.
func Penalty(positionCr int64) int64 {
	return decimal.NewFromInt(positionCr).Mul(penaltyRate).Floor().IntPart()
}
