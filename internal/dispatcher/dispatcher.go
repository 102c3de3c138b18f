package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/evotools/evo-dispatch/internal/domain"
	"github.com/evotools/evo-dispatch/pkg/logger"
)

// jobProcessor is the slice of JobService the dispatcher drives. A small fake
// implements it in tests.
type jobProcessor interface {
	ProcessDueJobs(ctx context.Context, now time.Time) ([]domain.SendResult, error)
}

// Dispatcher is the recurring loop that promotes due pending jobs to
// sent/failed. One scan runs at a time: a tick that arrives while the
// previous scan is still dispatching is skipped, never overlapped.
type Dispatcher struct {
	service  jobProcessor
	interval time.Duration

	// Internal state
	running  bool
	scanning bool
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.RWMutex

	// Statistics
	lastRunAt    time.Time
	jobsSent     int64
	runsCount    int64
	skippedScans int64

	nowFn func() time.Time
}

func New(service jobProcessor, interval time.Duration) *Dispatcher {
	return &Dispatcher{
		service:  service,
		interval: interval,
		nowFn:    time.Now,
	}
}

// StartWithInterval overrides the scan interval before starting.
func (d *Dispatcher) StartWithInterval(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	d.mu.Lock()
	d.interval = interval
	d.mu.Unlock()

	return d.Start(ctx)
}

func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()

	if d.running {
		d.mu.Unlock()
		logger.Warnf("Dispatcher is already running")
		return nil
	}

	d.running = true
	d.stopChan = make(chan struct{})
	d.doneChan = make(chan struct{})
	interval := d.interval
	d.mu.Unlock()

	logger.Infof("Starting dispatcher with scan interval: %v", interval)

	go d.run(ctx, interval)

	return nil
}

func (d *Dispatcher) run(ctx context.Context, interval time.Duration) {
	defer close(d.doneChan)

	d.Scan(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.Scan(ctx)

		case <-d.stopChan:
			logger.Warnf("Dispatcher received stop signal")
			return

		case <-ctx.Done():
			logger.Warnf("Dispatcher context cancelled")
			return
		}
	}
}

// Scan runs one pass over the due jobs. It returns immediately when another
// scan is still in flight.
func (d *Dispatcher) Scan(ctx context.Context) {
	d.mu.Lock()
	if d.scanning {
		d.skippedScans++
		d.mu.Unlock()
		logger.Warnf("Previous scan still in flight, skipping this tick")
		return
	}
	d.scanning = true
	d.runsCount++
	d.lastRunAt = d.nowFn()
	now := d.lastRunAt
	runNumber := d.runsCount
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.scanning = false
		d.mu.Unlock()
	}()

	logger.Infof("[Scan #%d] Checking for due jobs at %s", runNumber, now.Format(time.RFC3339))

	results, err := d.service.ProcessDueJobs(ctx, now)
	if err != nil {
		logger.Errorf("[Scan #%d] Error processing due jobs: %v", runNumber, err)
		return
	}

	if results == nil {
		logger.Debugf("[Scan #%d] Nothing due", runNumber)
		return
	}

	successCount := 0
	for _, r := range results {
		if r.Success {
			successCount++
		}
	}

	d.mu.Lock()
	d.jobsSent += int64(successCount)
	d.mu.Unlock()

	logger.Infof("[Scan #%d] Dispatched %d jobs, %d successful, %d failed",
		runNumber, len(results), successCount, len(results)-successCount)
}

func (d *Dispatcher) Stop() error {
	d.mu.Lock()

	if !d.running {
		d.mu.Unlock()
		logger.Warnf("Dispatcher is not running")
		return nil
	}

	d.running = false
	stopChan := d.stopChan
	doneChan := d.doneChan
	d.mu.Unlock()

	// Send stop signal
	close(stopChan)

	// Wait for goroutine to finish
	<-doneChan

	logger.Infof("Dispatcher stopped")
	return nil
}

func (d *Dispatcher) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

func (d *Dispatcher) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running:      d.running,
		LastRunAt:    d.lastRunAt,
		JobsSent:     d.jobsSent,
		RunsCount:    d.runsCount,
		SkippedScans: d.skippedScans,
		Interval:     d.interval,
	}

	if d.running && !d.lastRunAt.IsZero() {
		status.NextRunAt = d.lastRunAt.Add(d.interval)
	}

	return status
}

type Status struct {
	Running      bool          `json:"running"`
	LastRunAt    time.Time     `json:"lastRunAt,omitempty"`
	NextRunAt    time.Time     `json:"nextRunAt,omitempty"`
	JobsSent     int64         `json:"jobsSent"`
	RunsCount    int64         `json:"runsCount"`
	SkippedScans int64         `json:"skippedScans"`
	Interval     time.Duration `json:"interval"`
}
