package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRunTimeout bounds how long a single import may run.
const DefaultRunTimeout = 10 * time.Minute

// completedRetention is how long a finished run stays queryable before
// its state is discarded.
const completedRetention = 10 * time.Minute

// ImportProgress is the progress snapshot published to subscribers and
// returned from polling.
type ImportProgress struct {
	ImportID string `json:"importId"`
	TypeKey  string `json:"typeKey"`
	FileName string `json:"fileName"`
	Progress
	Error string `json:"error,omitempty"`
}

// ServiceConfig tunes the import service. Zero values select defaults.
type ServiceConfig struct {
	MaxConcurrent int
	MaxSlotWait   time.Duration
	RunTimeout    time.Duration
	BatchSize     int
	Logger        *slog.Logger
}

// Service runs imports asynchronously. StartImport returns an ID
// immediately; the run proceeds in a background goroutine guarded by the
// concurrency limiter. Progress can be polled or subscribed to, and runs
// can be canceled mid-file.
type Service struct {
	sink       Sink
	limiter    *Limiter
	runTimeout time.Duration
	batchSize  int
	log        *slog.Logger

	mu   sync.RWMutex
	runs map[string]*activeRun
}

type activeRun struct {
	id       string
	typeKey  string
	fileName string
	cancel   context.CancelFunc
	done     chan struct{}

	mu        sync.Mutex
	progress  ImportProgress
	summary   *ImportSummary
	runErr    error
	listeners []chan ImportProgress
	closed    bool
}

func NewService(sink Sink, cfg ServiceConfig) *Service {
	runTimeout := cfg.RunTimeout
	if runTimeout <= 0 {
		runTimeout = DefaultRunTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		sink:       sink,
		limiter:    NewLimiter(cfg.MaxConcurrent, cfg.MaxSlotWait),
		runTimeout: runTimeout,
		batchSize:  cfg.BatchSize,
		log:        log,
		runs:       make(map[string]*activeRun),
	}
}

// StartImport begins an asynchronous import and returns its ID. Extra
// synonyms, when supplied, are merged over the import type's defaults
// for this run only. Returns ErrTooManyImports when no slot frees up
// within the limiter's wait window.
func (s *Service) StartImport(ctx context.Context, typeKey, fileName string, data []byte, extraSynonyms SynonymTable) (string, error) {
	typ, ok := TypeByKey(typeKey)
	if !ok {
		return "", fmt.Errorf("unknown import type: %s", typeKey)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	importID := uuid.New().String()

	// The run outlives the request; its lifetime is bounded by the run
	// timeout, not the request context.
	runCtx, cancel := context.WithTimeout(context.Background(), s.runTimeout)

	run := &activeRun{
		id:       importID,
		typeKey:  typeKey,
		fileName: fileName,
		cancel:   cancel,
		done:     make(chan struct{}),
		progress: ImportProgress{
			ImportID: importID,
			TypeKey:  typeKey,
			FileName: fileName,
			Progress: Progress{Phase: PhaseParsing},
		},
	}

	s.mu.Lock()
	s.runs[importID] = run
	s.mu.Unlock()

	log := s.log.With("import_id", importID, "type", typeKey, "file", fileName)
	log.Info("import started", "bytes", len(data))

	go func() {
		defer s.limiter.Release()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic in import", "panic", r)
				run.fail(fmt.Sprintf("internal error: %v", r))
				close(run.done)
				s.expire(importID, completedRetention)
			}
		}()

		orch := &Orchestrator{
			Type:      typ,
			Sink:      s.sink,
			BatchSize: s.batchSize,
			Synonyms:  extraSynonyms,
			Logger:    log,
			OnProgress: func(p Progress) {
				run.update(p)
			},
		}

		summary, err := orch.Run(runCtx, fileName, data)
		run.finish(summary, err)
		if err != nil {
			log.Error("import failed", "error", err)
		}
		close(run.done)
		s.expire(importID, completedRetention)
	}()

	return importID, nil
}

// Progress returns the current snapshot without blocking.
func (s *Service) Progress(importID string) (ImportProgress, error) {
	run, ok := s.lookup(importID)
	if !ok {
		return ImportProgress{}, fmt.Errorf("import not found: %s", importID)
	}
	run.mu.Lock()
	defer run.mu.Unlock()
	return run.progress, nil
}

// SubscribeProgress returns a channel receiving progress updates. The
// current snapshot is delivered immediately; the channel is closed when
// the run completes.
func (s *Service) SubscribeProgress(importID string) (<-chan ImportProgress, error) {
	run, ok := s.lookup(importID)
	if !ok {
		return nil, fmt.Errorf("import not found: %s", importID)
	}

	ch := make(chan ImportProgress, 10)

	run.mu.Lock()
	if run.closed {
		ch <- run.progress
		close(ch)
	} else {
		run.listeners = append(run.listeners, ch)
		select {
		case ch <- run.progress:
		default:
		}
	}
	run.mu.Unlock()

	return ch, nil
}

// Cancel stops an in-progress import. Rows already handed to the store
// in a dispatched batch are not rolled back.
func (s *Service) Cancel(importID string) error {
	run, ok := s.lookup(importID)
	if !ok {
		return fmt.Errorf("import not found: %s", importID)
	}
	run.cancel()
	return nil
}

// Result returns the final summary of a completed run. The boolean is
// false while the run is still in progress.
func (s *Service) Result(importID string) (*ImportSummary, bool, error) {
	run, ok := s.lookup(importID)
	if !ok {
		return nil, false, fmt.Errorf("import not found: %s", importID)
	}

	select {
	case <-run.done:
	default:
		return nil, false, nil
	}

	run.mu.Lock()
	defer run.mu.Unlock()
	if run.runErr != nil {
		return nil, true, run.runErr
	}
	return run.summary, true, nil
}

// WaitResult blocks until the run completes, then returns its summary.
func (s *Service) WaitResult(importID string) (*ImportSummary, error) {
	run, ok := s.lookup(importID)
	if !ok {
		return nil, fmt.Errorf("import not found: %s", importID)
	}
	<-run.done

	run.mu.Lock()
	defer run.mu.Unlock()
	return run.summary, run.runErr
}

// LimiterStatus reports current slot usage for monitoring.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

func (s *Service) LimiterStatus() LimiterStatus {
	return LimiterStatus{
		Active:        s.limiter.ActiveCount(),
		Available:     s.limiter.Available(),
		MaxConcurrent: s.limiter.MaxConcurrent(),
	}
}

// Drain blocks until all active imports finish, for graceful shutdown.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) lookup(importID string) (*activeRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[importID]
	return run, ok
}

// expire removes a finished run's state after the retention window so
// clients have time to fetch the summary.
func (s *Service) expire(importID string, after time.Duration) {
	time.AfterFunc(after, func() {
		s.mu.Lock()
		delete(s.runs, importID)
		s.mu.Unlock()
	})
}

func (r *activeRun) update(p Progress) {
	r.mu.Lock()
	r.progress.Progress = p
	snapshot := r.progress
	listeners := r.listeners
	r.mu.Unlock()

	for _, ch := range listeners {
		select {
		case ch <- snapshot:
		default:
			// Slow subscribers drop intermediate updates; the final
			// snapshot is always delivered via finish.
		}
	}
}

func (r *activeRun) finish(summary *ImportSummary, err error) {
	r.mu.Lock()
	r.summary = summary
	r.runErr = err
	switch {
	case err != nil:
		r.progress.Phase = PhaseFailed
		r.progress.Error = err.Error()
	case summary != nil && summary.FileError != "":
		r.progress.Phase = PhaseFailed
		r.progress.Error = summary.FileError
	}
	r.closeListenersLocked()
	r.mu.Unlock()
}

func (r *activeRun) fail(msg string) {
	r.mu.Lock()
	r.progress.Phase = PhaseFailed
	r.progress.Error = msg
	r.runErr = fmt.Errorf("%s", msg)
	r.closeListenersLocked()
	r.mu.Unlock()
}

// closeListenersLocked delivers the final snapshot and closes every
// subscriber channel. Caller holds r.mu.
func (r *activeRun) closeListenersLocked() {
	if r.closed {
		return
	}
	r.closed = true
	for _, ch := range r.listeners {
		select {
		case ch <- r.progress:
		default:
			// Buffer full: evict the oldest queued update to make room.
			// Sends are serialized under r.mu, so after one receive the
			// final snapshot always fits.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- r.progress:
			default:
			}
		}
		close(ch)
	}
	r.listeners = nil
}
