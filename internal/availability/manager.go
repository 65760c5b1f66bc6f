package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"sync"
	"time"

	"catalogdesk-backend/internal/catalog"
	"catalogdesk-backend/internal/rowstore"
	"catalogdesk-backend/lib/timezone"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("catalogdesk.availability")
var meter = otel.Meter("catalogdesk.availability")
var eventCounter, _ = meter.Int64Counter("events")

var (
	ErrAlreadyRunning = errors.New("availability refresh already running")
	ErrNoJob          = errors.New("no availability refresh running")
)

type EventType string

const (
	EventStart     EventType = "start"
	EventProgress  EventType = "progress"
	EventDone      EventType = "done"
	EventError     EventType = "error"
	EventCancelled EventType = "cancelled"
)

// Terminal reports whether no more events follow t.
func (t EventType) Terminal() bool {
	return t == EventDone || t == EventError || t == EventCancelled
}

type Event struct {
	Type      EventType `json:"type"`
	JobID     string    `json:"job_id"`
	Dataset   string    `json:"dataset"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	Updated   int       `json:"updated,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Merger persists confirmed updates keyed by product url.
type Merger interface {
	MergeByURL(ctx context.Context, selector string, updates map[string]catalog.Record) (int, error)
}

const subscriberBuffer = 64

// Job is one running refresh of a dataset.
type Job struct {
	ID      string
	Dataset string
	Total   int

	cancel context.CancelFunc
	done   chan struct{}

	mutex       sync.Mutex
	last        Event
	subscribers map[chan Event]struct{}
}

func newJob(dataset string, total int, cancel context.CancelFunc) *Job {
	job := &Job{
		ID:          uuid.NewString(),
		Dataset:     dataset,
		Total:       total,
		cancel:      cancel,
		done:        make(chan struct{}),
		subscribers: map[chan Event]struct{}{},
	}
	return job
}

// Status returns the latest event of the job.
func (j *Job) Status() Event {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	return j.last
}

// Done is closed once the job reached a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Events subscribes to the job, the channel first receives the latest event
// and is closed after the terminal one. A slow reader loses the oldest
// pending events, never the terminal one.
func (j *Job) Events() (<-chan Event, func()) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	ch := make(chan Event, subscriberBuffer)
	ch <- j.last
	if j.last.Type.Terminal() {
		close(ch)
		return ch, func() {}
	}
	j.subscribers[ch] = struct{}{}

	return ch, func() {
		j.mutex.Lock()
		defer j.mutex.Unlock()
		if _, ok := j.subscribers[ch]; ok {
			delete(j.subscribers, ch)
			close(ch)
		}
	}
}

func (j *Job) emit(ctx context.Context, e Event) {
	e.JobID = j.ID
	e.Dataset = j.Dataset
	e.Total = j.Total

	j.mutex.Lock()
	defer j.mutex.Unlock()

	j.last = e
	for ch := range j.subscribers {
		select {
		case ch <- e:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- e
		}
		if e.Type.Terminal() {
			close(ch)
		}
	}
	if e.Type.Terminal() {
		clear(j.subscribers)
	}

	eventCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(e.Type))))
}

// Manager runs at most one refresh per dataset.
type Manager struct {
	merger   Merger
	fallback Checker
	checkers map[string]Checker
	now      func() time.Time

	mutex sync.Mutex
	jobs  map[string]*Job
}

// NewManager creates a manager which picks a checker by shop (the directory
// of the dataset selector), falling back to `fallback`.
func NewManager(merger Merger, fallback Checker, checkers map[string]Checker) *Manager {
	if checkers == nil {
		checkers = map[string]Checker{}
	}
	return &Manager{
		merger:   merger,
		fallback: fallback,
		checkers: checkers,
		now:      timezone.Now,
		jobs:     map[string]*Job{},
	}
}

func (m *Manager) checkerFor(selector string) Checker {
	if checker, ok := m.checkers[path.Dir(selector)]; ok {
		return checker
	}
	return m.fallback
}

// Job returns the running job of a dataset.
func (m *Manager) Job(selector string) (*Job, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	job, ok := m.jobs[selector]
	return job, ok
}

// Start begins refreshing `urls` of a dataset in the background. onDone is
// called with the persisted updates after they were merged into the
// dataset file, it is never called for failed or cancelled jobs.
func (m *Manager) Start(ctx context.Context, selector string, urls []string, onDone func(updates map[string]catalog.Record)) (*Job, error) {
	checker := m.checkerFor(selector)
	if checker == nil {
		return nil, fmt.Errorf("no availability checker for %s", selector)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, running := m.jobs[selector]; running {
		return nil, ErrAlreadyRunning
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job := newJob(selector, len(urls), cancel)
	m.jobs[selector] = job
	job.emit(ctx, Event{Type: EventStart})

	slog.InfoContext(ctx, "starting availability refresh", "dataset", selector, "job", job.ID, "urls", len(urls))
	go m.run(jobCtx, job, checker, urls, onDone)

	return job, nil
}

// Cancel stops the running job of a dataset, nothing is written.
func (m *Manager) Cancel(selector string) error {
	job, ok := m.Job(selector)
	if !ok {
		return ErrNoJob
	}
	job.cancel()
	return nil
}

func (m *Manager) finish(job *Job) {
	m.mutex.Lock()
	if m.jobs[job.Dataset] == job {
		delete(m.jobs, job.Dataset)
	}
	m.mutex.Unlock()
	job.cancel()
	close(job.done)
}

func (m *Manager) run(ctx context.Context, job *Job, checker Checker, urls []string, onDone func(map[string]catalog.Record)) {
	ctx, span := tracer.Start(ctx, "availability:run")
	defer span.End()
	defer m.finish(job)

	resultsMutex := sync.Mutex{}
	results := map[string]int{}
	processed := 0
	err := checker.Check(ctx, urls, func(r Result) {
		resultsMutex.Lock()
		defer resultsMutex.Unlock()
		if ctx.Err() != nil {
			return
		}
		results[rowstore.CanonicalURL(r.URL)] = r.Availability
		processed = min(processed+1, job.Total)
		job.emit(ctx, Event{Type: EventProgress, Processed: processed})
	})

	resultsMutex.Lock()
	defer resultsMutex.Unlock()

	if ctx.Err() != nil {
		slog.InfoContext(ctx, "availability refresh cancelled", "dataset", job.Dataset, "job", job.ID)
		job.emit(ctx, Event{Type: EventCancelled, Processed: processed})
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "availability check failed")
		slog.WarnContext(ctx, "availability refresh failed", "dataset", job.Dataset, "err", err)
		job.emit(ctx, Event{Type: EventError, Processed: processed, Error: err.Error()})
		return
	}

	stamp := timezone.Stamp(m.now())
	updates := make(map[string]catalog.Record, len(results))
	for url, availability := range results {
		updates[url] = catalog.Record{
			catalog.AvailabilityColumn: strconv.Itoa(availability),
			catalog.UpdatedColumn:      stamp,
		}
	}

	updated := 0
	if len(updates) > 0 {
		updated, err = m.merger.MergeByURL(ctx, job.Dataset, updates)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to persist availability")
			slog.WarnContext(ctx, "failed to persist availability", "dataset", job.Dataset, "err", err)
			job.emit(ctx, Event{Type: EventError, Processed: processed, Error: err.Error()})
			return
		}
		if onDone != nil {
			onDone(updates)
		}
	}

	slog.InfoContext(ctx, "availability refresh done", "dataset", job.Dataset, "job", job.ID, "updated", updated)
	job.emit(ctx, Event{Type: EventDone, Processed: processed, Updated: updated})
}
