package workers

import (
	"cam-relay/contract"
	"context"
	"log/slog"
	"os"
	goruntime "runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*ProcessHealthWorker)(nil)

type ProcessHealth struct {
	RSS        uint64
	CPUPercent float64
	Goroutines int
	SampledAt  time.Time
}

// ProcessHealthWorker samples memory and CPU of the relay process every interval.
type ProcessHealthWorker struct {
	log      *slog.Logger
	interval time.Duration
	mu       sync.RWMutex
	latest   ProcessHealth
}

func NewProcessHealthWorker(log *slog.Logger, interval time.Duration) *ProcessHealthWorker {
	return &ProcessHealthWorker{log: log, interval: interval}
}

func (w *ProcessHealthWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			health, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "error", err)
				continue
			}
			w.mu.Lock()
			w.latest = health
			w.mu.Unlock()
			w.log.Debug("Process health", "rss", health.RSS, "cpu", health.CPUPercent, "goroutines", health.Goroutines)
		}
	}
}

func (w *ProcessHealthWorker) Latest() ProcessHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.latest
}

// selfStats retrieves memory and CPU for the given process.
func selfStats(p *process.Process) (ProcessHealth, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return ProcessHealth{}, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return ProcessHealth{}, err
	}
	return ProcessHealth{
		RSS:        memInfo.RSS,
		CPUPercent: cpuPercent,
		Goroutines: goruntime.NumGoroutine(),
		SampledAt:  time.Now(),
	}, nil
}
