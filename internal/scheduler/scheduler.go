// Package scheduler periodically settles subscriptions whose billing period
// ended, for providers that bill on their own clock.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/monetization/internal/clock"
	obsmetrics "github.com/smallbiznis/monetization/internal/observability/metrics"
	"github.com/smallbiznis/monetization/pkg/monetization/provider"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

const settleJob = "settle_due_subscriptions"

// Settler is implemented by providers that roll subscription periods over
// themselves.
type Settler interface {
	SettleDue(ctx context.Context) (int, error)
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Provider provider.Provider
	Metrics  *obsmetrics.Metrics `optional:"true"`
	Config   Config              `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	clock   clock.Clock
	cfg     Config
	settler Settler
	metrics *obsmetrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.Provider == nil {
		return nil, ErrInvalidConfig
	}
	s := &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		clock:   p.Clock,
		cfg:     p.Config.withDefaults(),
		metrics: p.Metrics,
	}
	if settler, ok := p.Provider.(Settler); ok {
		s.settler = settler
	} else {
		s.log.Info("provider settles on its own; scheduler disabled", zap.String("provider", p.Provider.Name()))
	}
	return s, nil
}

// Enabled reports whether the loop has anything to do.
func (s *Scheduler) Enabled() bool {
	return s.cfg.Enabled && s.settler != nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("settlement run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce settles every subscription due at the current time.
func (s *Scheduler) RunOnce(parent context.Context) error {
	if s.settler == nil {
		return nil
	}
	return s.runJob(parent, settleJob, func(ctx context.Context) (int, error) {
		return s.settler.SettleDue(ctx)
	})
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) (int, error)) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.RunTimeout)
	defer cancel()

	settled, err := fn(ctx)
	elapsed := s.clock.Now().Sub(start)

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.metrics.RecordOperation(ctx, name, outcome, elapsed)

	log := s.log.With(zap.String("job", name), zap.Duration("duration", elapsed))
	if err != nil {
		log.Error("job failed", zap.Error(err))
		return err
	}
	if settled > 0 {
		log.Info("job completed", zap.Int("settled", settled))
	}
	return nil
}
