package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"savedown/internal/core/domain"
	"savedown/internal/core/ports"
	"savedown/internal/metrics"
)

// BatchState describes where a batch is in its lifecycle.
type BatchState string

const (
	BatchRunning   BatchState = "running"
	BatchCompleted BatchState = "completed"
	BatchCancelled BatchState = "cancelled"
)

// Scheduler runs batches of jobs in fixed-size chunks. Jobs inside a chunk
// run concurrently; the next chunk starts only after every job in the
// current one resolved, so backend load stays bounded.
type Scheduler struct {
	dispatcher  ports.Dispatcher
	maxParallel int
	metrics     *metrics.Metrics
	logger      *log.Logger
}

// NewScheduler creates a new Scheduler. maxParallel values below 1 fall
// back to 3.
func NewScheduler(dispatcher ports.Dispatcher, maxParallel int, m *metrics.Metrics, logger *log.Logger) *Scheduler {
	if maxParallel < 1 {
		maxParallel = 3
	}
	return &Scheduler{
		dispatcher:  dispatcher,
		maxParallel: maxParallel,
		metrics:     m,
		logger:      logger,
	}
}

// Batch is a handle over one submitted set of URLs. All methods are safe
// for concurrent use.
type Batch struct {
	ID   string
	Mode domain.Mode

	jobs      []domain.Job
	cancel    context.CancelFunc
	done      chan struct{}
	estimator *Estimator

	mu      sync.Mutex
	state   BatchState
	results map[string]domain.AcquisitionResult
}

// Start accepts the URLs and begins processing in the background. One job
// per URL, in submission order.
func (s *Scheduler) Start(ctx context.Context, urls []string, mode domain.Mode) *Batch {
	batchCtx, cancel := context.WithCancel(ctx)

	jobs := make([]domain.Job, 0, len(urls))
	for _, raw := range urls {
		jobs = append(jobs, domain.NewJob(uuid.New().String(), raw, mode))
	}

	b := &Batch{
		ID:      uuid.New().String(),
		Mode:    mode,
		jobs:    jobs,
		cancel:  cancel,
		done:    make(chan struct{}),
		state:   BatchRunning,
		results: make(map[string]domain.AcquisitionResult, len(jobs)),
	}

	// A lone job gets a smoothed percentage; multi-job batches report the
	// exact resolved counter instead.
	if len(jobs) == 1 {
		b.estimator = NewEstimator(jobs[0])
		go b.estimator.Run(batchCtx)
	}

	s.metrics.BatchStarted()
	s.logger.Printf("[BATCH %s] Accepted %d job(s), mode=%s", b.ID, len(jobs), mode)
	go s.run(batchCtx, b)
	return b
}

func (s *Scheduler) run(ctx context.Context, b *Batch) {
	defer close(b.done)
	defer b.cancel()

	for start := 0; start < len(b.jobs); start += s.maxParallel {
		// Cancellation is checked at chunk boundaries. Jobs already in
		// flight finish and keep their results; everything not yet started
		// resolves as cancelled without touching the network.
		if ctx.Err() != nil {
			for _, job := range b.jobs[start:] {
				b.record(cancelledResult(job))
			}
			b.setState(BatchCancelled)
			s.logger.Printf("[BATCH %s] Cancelled with %d job(s) unstarted", b.ID, len(b.jobs)-start)
			return
		}

		end := min(start+s.maxParallel, len(b.jobs))
		var wg sync.WaitGroup
		for _, job := range b.jobs[start:end] {
			wg.Add(1)
			go func(job domain.Job) {
				defer wg.Done()
				s.runJob(ctx, b, job)
			}(job)
		}
		wg.Wait()
	}

	if ctx.Err() != nil {
		b.setState(BatchCancelled)
		return
	}
	if b.estimator != nil {
		b.estimator.Finish()
	}
	b.setState(BatchCompleted)
	s.logger.Printf("[BATCH %s] Completed", b.ID)
}

func (s *Scheduler) runJob(ctx context.Context, b *Batch, job domain.Job) {
	if ctx.Err() != nil {
		b.record(cancelledResult(job))
		return
	}

	s.metrics.JobStarted()
	started := time.Now()
	s.logger.Printf("[BATCH %s] [JOB %s] Starting %s for %s", b.ID, job.ID, job.Mode, job.OriginalURL)

	result := domain.AcquisitionResult{Job: job}
	items, err := s.dispatcher.Dispatch(ctx, job)
	switch {
	case err != nil && (ctx.Err() != nil || errors.Is(err, context.Canceled)):
		result.Status = domain.StatusCancelled
		result.Err = domain.NewError(domain.ErrCancelled, "job cancelled", err)

	case err != nil:
		acqErr := domain.AsAcquisitionError(err)
		result.Status = domain.StatusFailed
		result.Err = acqErr
		s.metrics.ErrorSeen(string(acqErr.Kind))
		s.logger.Printf("[BATCH %s] [JOB %s] ERROR: %v", b.ID, job.ID, acqErr)

	default:
		result.Status = domain.StatusSuccess
		result.Items = items
		s.logger.Printf("[BATCH %s] [JOB %s] Resolved %d item(s)", b.ID, job.ID, len(items))
	}

	s.metrics.JobFinished(job.Platform.String(), string(result.Status), time.Since(started).Seconds())
	b.record(result)
}

func cancelledResult(job domain.Job) domain.AcquisitionResult {
	return domain.AcquisitionResult{
		Job:    job,
		Status: domain.StatusCancelled,
		Err:    domain.NewError(domain.ErrCancelled, "job cancelled before it started", nil),
	}
}

// Cancel requests a cooperative stop. In-flight jobs finish; unstarted ones
// never run.
func (b *Batch) Cancel() {
	b.cancel()
}

// Done is closed once every job has resolved one way or another.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// State returns the batch lifecycle state.
func (b *Batch) State() BatchState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Progress reports resolved versus total jobs.
func (b *Batch) Progress() domain.BatchProgress {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.BatchProgress{Current: len(b.results), Total: len(b.jobs)}
}

// Percent returns the smoothed estimate for single-job batches, or the
// resolved ratio otherwise.
func (b *Batch) Percent() float64 {
	if b.estimator != nil {
		return b.estimator.Percent()
	}
	p := b.Progress()
	if p.Total == 0 {
		return 0
	}
	return float64(p.Current) / float64(p.Total) * 100
}

// Results returns the resolved results in submission order. Jobs still in
// flight are absent.
func (b *Batch) Results() []domain.AcquisitionResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.AcquisitionResult, 0, len(b.results))
	for _, job := range b.jobs {
		if res, ok := b.results[job.ID]; ok {
			out = append(out, res)
		}
	}
	return out
}

func (b *Batch) record(res domain.AcquisitionResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results[res.Job.ID] = res
}

func (b *Batch) setState(state BatchState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = state
}
