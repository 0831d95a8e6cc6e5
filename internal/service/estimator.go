package service

import (
	"context"
	"math"
	"sync"
	"time"

	"savedown/internal/core/domain"
)

// progressTick is how often the estimator advances while a job runs.
const progressTick = 100 * time.Millisecond

// ExpectedDuration returns the rough wall time a job of this shape takes.
// The values are tuned from observed backend behaviour, not measured live.
func ExpectedDuration(job domain.Job) time.Duration {
	switch job.Platform {
	case domain.PlatformYouTube:
		if job.Mode == domain.ModeTranscribe {
			return 20 * time.Second
		}
		return 120 * time.Second
	case domain.PlatformTikTok:
		return 4 * time.Second
	case domain.PlatformInstagram:
		if job.Subtype == domain.SubtypePost {
			return 8 * time.Second
		}
		return 5 * time.Second
	case domain.PlatformTwitter:
		return 8 * time.Second
	default:
		return 10 * time.Second
	}
}

// Estimator produces a smoothed percentage for a job with no real progress
// signal. The eased value never reaches 95 on its own and never moves
// backwards; only Finish pushes it to 100.
type Estimator struct {
	mu      sync.Mutex
	steps   float64
	total   float64
	percent float64
}

// NewEstimator sizes the estimator for the job's expected duration.
func NewEstimator(job domain.Job) *Estimator {
	total := float64(ExpectedDuration(job) / progressTick)
	if total < 1 {
		total = 1
	}
	return &Estimator{total: total}
}

// Advance moves the estimate one tick forward and returns the new value.
func (e *Estimator) Advance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.steps++
	raw := e.steps / e.total * 100
	eased := 95 * (1 - math.Exp(-raw/30))
	if eased > 95 {
		eased = 95
	}
	if eased > e.percent {
		e.percent = eased
	}
	return e.percent
}

// Percent returns the current estimate.
func (e *Estimator) Percent() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.percent
}

// Finish forces the estimate to 100 once the job actually resolved.
func (e *Estimator) Finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.percent = 100
}

// Reset returns the estimator to its initial state for reuse.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.steps = 0
	e.percent = 0
}

// Run advances the estimate on a fixed tick until ctx is cancelled.
func (e *Estimator) Run(ctx context.Context) {
	ticker := time.NewTicker(progressTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Advance()
		}
	}
}
