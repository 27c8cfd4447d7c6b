// Package session tracks long-running scrape jobs and relays their
// progress to subscribed listeners. The registry is an owned object
// constructed by the host process, not package-level state.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"mapleads/internal/model"
	"mapleads/internal/scrape"
)

// Status of a tracked job. Jobs transition Running -> Completed or
// Running -> Failed exactly once.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

const (
	// Intermediate progress is capped below 100; the full 100 is
	// reserved for the terminal event.
	progressCeiling = 95
	// DefaultGrace is how long a terminal job lingers in the registry
	// so a disconnected client can reattach and fetch the final event.
	DefaultGrace = 60 * time.Second

	listenerBuffer = 16
)

// ErrJobNotFound is returned for unknown or already-reclaimed job ids.
var ErrJobNotFound = errors.New("scrape job not found")

// Result is the payload carried by a completed job's terminal event.
type Result struct {
	Success bool                   `json:"success"`
	Results []model.BusinessRecord `json:"results"`
}

// Event is one progress update as delivered to listeners.
type Event struct {
	Progress int     `json:"progress"`
	Count    int     `json:"count,omitempty"`
	Area     string  `json:"area,omitempty"`
	Complete bool    `json:"complete,omitempty"`
	Error    string  `json:"error,omitempty"`
	Results  *Result `json:"results,omitempty"`
}

// RunFunc executes one scrape request. Satisfied by
// (*scrape.Orchestrator).RunWithProgress.
type RunFunc func(ctx context.Context, req model.SearchRequest, onProgress scrape.Progress) ([]model.BusinessRecord, error)

// Snapshot is a point-in-time view of a job for polling callers.
type Snapshot struct {
	ID            string `json:"id"`
	Status        Status `json:"status"`
	Progress      int    `json:"progress"`
	ItemsFound    int    `json:"itemsFound"`
	CurrentTarget string `json:"currentTarget,omitempty"`
}

type job struct {
	id     string
	cancel context.CancelFunc

	mu            sync.Mutex
	status        Status
	progress      int
	itemsFound    int
	currentTarget string
	listeners     map[chan Event]struct{}
	last          *Event
	terminal      *Event
}

// Manager owns the job registry and the background execution of every
// job created through it.
type Manager struct {
	run    RunFunc
	grace  time.Duration
	logger *log.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

// NewManager builds a registry around run. grace <= 0 selects
// DefaultGrace.
func NewManager(run RunFunc, grace time.Duration, logger *log.Logger) *Manager {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Manager{
		run:    run,
		grace:  grace,
		logger: logger,
		jobs:   make(map[string]*job),
	}
}

// Create validates the request, registers a Running job and starts its
// background execution. It returns without waiting on the scrape.
func (m *Manager) Create(req model.SearchRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &job{
		id:        uuid.NewString(),
		cancel:    cancel,
		status:    StatusRunning,
		listeners: make(map[chan Event]struct{}),
	}

	m.mu.Lock()
	m.jobs[j.id] = j
	m.mu.Unlock()

	m.logger.Info("scrape job created", "id", j.id, "targets", len(req.Targets))
	go m.execute(ctx, j, req)

	return j.id, nil
}

// Subscribe attaches a listener to a job's event stream. The current
// state is replayed immediately so a listener that attaches after
// events were emitted never misses where the job stands; a listener on
// a terminal job receives the final event right away. The returned
// detach func must be called when the listener goes away.
func (m *Manager) Subscribe(id string) (<-chan Event, func(), error) {
	j := m.lookup(id)
	if j == nil {
		return nil, nil, ErrJobNotFound
	}

	ch := make(chan Event, listenerBuffer)

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.terminal != nil {
		ch <- *j.terminal
		close(ch)
		return ch, func() {}, nil
	}
	if j.last != nil {
		ch <- *j.last
	}
	j.listeners[ch] = struct{}{}

	detach := func() {
		j.mu.Lock()
		if _, attached := j.listeners[ch]; attached {
			delete(j.listeners, ch)
			close(ch)
		}
		j.mu.Unlock()
	}
	return ch, detach, nil
}

// Cancel requests cancellation of a running job. The request is always
// accepted; it takes effect at the next locality boundary, so the
// locality being scraped still finishes.
func (m *Manager) Cancel(id string) error {
	j := m.lookup(id)
	if j == nil {
		return ErrJobNotFound
	}
	j.cancel()
	return nil
}

// Get returns a snapshot of a job's current state.
func (m *Manager) Get(id string) (Snapshot, bool) {
	j := m.lookup(id)
	if j == nil {
		return Snapshot{}, false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		ID:            j.id,
		Status:        j.status,
		Progress:      j.progress,
		ItemsFound:    j.itemsFound,
		CurrentTarget: j.currentTarget,
	}, true
}

func (m *Manager) lookup(id string) *job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id]
}

func (m *Manager) execute(ctx context.Context, j *job, req model.SearchRequest) {
	defer j.cancel()

	results, err := m.run(ctx, req, j.advance)
	switch {
	case err == nil:
		if results == nil {
			results = []model.BusinessRecord{}
		}
		j.finish(StatusCompleted, Event{
			Progress: 100,
			Count:    len(results),
			Complete: true,
			Results:  &Result{Success: true, Results: results},
		})
		m.logger.Info("scrape job completed", "id", j.id, "records", len(results))
	case errors.Is(err, context.Canceled):
		j.finish(StatusFailed, Event{Progress: 100, Complete: true, Error: "scrape cancelled"})
		m.logger.Info("scrape job cancelled", "id", j.id)
	default:
		j.finish(StatusFailed, Event{Progress: 100, Complete: true, Error: err.Error()})
		m.logger.Error("scrape job failed", "id", j.id, "err", err)
	}

	// Keep the terminal state around for late reconnects, then reclaim.
	time.AfterFunc(m.grace, func() {
		m.mu.Lock()
		delete(m.jobs, j.id)
		m.mu.Unlock()
		m.logger.Debug("scrape job reclaimed", "id", j.id)
	})
}

// advance folds one orchestrator progress callback into the job state.
// Progress and item counts never move backwards.
func (j *job) advance(done, total int, target string, found int) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.terminal != nil {
		return
	}

	progress := 0
	if total > 0 {
		progress = done * 100 / total
	}
	if progress > progressCeiling {
		progress = progressCeiling
	}
	if progress < j.progress {
		progress = j.progress
	}
	if found < j.itemsFound {
		found = j.itemsFound
	}

	j.progress = progress
	j.itemsFound = found
	j.currentTarget = target

	ev := Event{Progress: progress, Count: found, Area: target}
	j.last = &ev
	for ch := range j.listeners {
		select {
		case ch <- ev:
		default:
			// Listener is not draining; it will resync from the
			// replayed snapshot if it resubscribes.
		}
	}
}

// finish records the terminal state exactly once and closes out every
// listener after delivering the final event.
func (j *job) finish(status Status, ev Event) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.terminal != nil {
		return
	}
	j.status = status
	j.progress = ev.Progress
	j.terminal = &ev

	for ch := range j.listeners {
		select {
		case ch <- ev:
		default:
		}
		close(ch)
		delete(j.listeners, ch)
	}
}
