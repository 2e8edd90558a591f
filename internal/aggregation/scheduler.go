package aggregation

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultMaxFilesPerTick = 100

// FileImporter imports one input file.
type FileImporter interface {
	ImportFile(ctx context.Context, path string) (Report, error)
}

// Scheduler drains a queue of input files on a periodic interval. Files are
// imported one at a time, so imports never run concurrently.
type Scheduler struct {
	interval time.Duration
	maxFiles int
	importer FileImporter

	mu     sync.Mutex
	queue  []string
	queued map[string]bool
}

func NewScheduler(interval time.Duration, maxFilesPerTick int, importer FileImporter) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	if maxFilesPerTick <= 0 {
		maxFilesPerTick = defaultMaxFilesPerTick
	}
	return &Scheduler{
		interval: interval,
		maxFiles: maxFilesPerTick,
		importer: importer,
		queued:   make(map[string]bool),
	}
}

// Enqueue adds a file unless it is already waiting.
func (s *Scheduler) Enqueue(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queued[path] {
		return
	}
	s.queued[path] = true
	s.queue = append(s.queue, path)
}

// Pending returns the number of queued files.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Scheduler) next() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return "", false
	}
	path := s.queue[0]
	s.queue = s.queue[1:]
	delete(s.queued, path)
	return path, true
}

// Start drains the queue on every tick until ctx is cancelled, then runs a
// final bounded drain.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Scheduler] Starting import scheduler",
		"interval", s.interval,
		"max_files_per_tick", s.maxFiles,
	)

	s.drainBacklog(ctx)

	for {
		select {
		case <-ticker.C:
			s.drainBacklog(ctx)
		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)", "pending", s.Pending())

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			s.drainBacklog(shutdownCtx)
			slog.Info("[Scheduler] Final drain complete", "pending", s.Pending())
			return nil
		}
	}
}

// drainBacklog imports queued files until the queue is empty or the per-tick
// limit is reached. A failed file is logged and dropped.
func (s *Scheduler) drainBacklog(ctx context.Context) int {
	done := 0
	for done < s.maxFiles {
		if ctx.Err() != nil {
			slog.Info("[Scheduler] Drain interrupted by context cancellation", "files_processed", done)
			return done
		}
		path, ok := s.next()
		if !ok {
			if done > 1 {
				slog.Info("[Scheduler] Backlog drained", "files", done)
			}
			return done
		}

		report, err := s.importer.ImportFile(ctx, path)
		done++
		if err != nil {
			slog.Error("[Scheduler] File import failed", "path", path, "error", err)
			continue
		}
		slog.Debug("[Scheduler] File imported", "path", path, "stored", report.Stored, "duplicates", report.Duplicates)
	}

	slog.Warn("[Scheduler] Max files per tick reached, pausing drain",
		"max_files", s.maxFiles,
		"pending", s.Pending(),
	)
	return done
}
