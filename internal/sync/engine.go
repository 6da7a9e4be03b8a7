package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/calbridge/calbridge/internal/config"
	"github.com/calbridge/calbridge/internal/gcal"
	"github.com/calbridge/calbridge/internal/icloud"
	"github.com/calbridge/calbridge/internal/instrumentation"
	"github.com/calbridge/calbridge/internal/logging"
)

// Reader fetches events from the source calendar application.
type Reader interface {
	Events(calendar string, daysBack, daysForward int) ([]icloud.Event, error)
}

// Pusher creates events in the destination calendar.
type Pusher interface {
	CreateEvent(ctx context.Context, calendarID string, body gcal.EventBody) (*gcal.CreatedEvent, error)
}

// PusherProvider returns the Pusher lazily. The Google integration may
// not be configured yet, and a dry run must work without it.
type PusherProvider func(ctx context.Context) (Pusher, error)

// Result is the outcome of one sync pass. JSON keys are part of the
// tool response contract.
type Result struct {
	Success          bool           `json:"success"`
	Message          string         `json:"message"`
	TotalEventsFound int            `json:"total_events_found"`
	NewEventsToSync  int            `json:"new_events_to_sync"`
	EventsProcessed  int            `json:"events_processed"`
	DryRun           bool           `json:"dry_run"`
	SyncTimestamp    string         `json:"sync_timestamp"`
	NewEvents        []icloud.Event `json:"new_events,omitempty"`
}

// Engine orchestrates one-way sync passes: fetch source events for the
// configured window, filter by the state store, normalize, push, and
// persist the state once at the end.
//
// RunSync is not guarded against overlapping calls. A manual sync while
// the scheduler is mid-pass interleaves two passes over the same state
// store. The fingerprint check makes double-pushes unlikely but not
// impossible.
type Engine struct {
	cfg     *config.Store
	state   *StateStore
	reader  Reader
	pusher  PusherProvider
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	now     func() time.Time
}

// NewEngine creates a sync engine.
func NewEngine(cfg *config.Store, state *StateStore, reader Reader, pusher PusherProvider, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		state:  state,
		reader: reader,
		pusher: pusher,
		logger: logger,
		now:    time.Now,
	}
}

// SetMetrics attaches a metrics recorder. Safe to leave unset.
func (e *Engine) SetMetrics(m *instrumentation.Metrics) {
	e.metrics = m
}

// State exposes the engine's state store for status reporting.
func (e *Engine) State() *StateStore {
	return e.state
}

// Config exposes the engine's configuration store.
func (e *Engine) Config() *config.Store {
	return e.cfg
}

// RunSync executes one sync pass. Sync being disabled or unconfigured is
// a normal outcome reported in the Result, not an error. The returned
// error is non-nil only when the pass completed pushes but could not
// persist the state store, which the caller must surface as fatal for
// the operation.
func (e *Engine) RunSync(ctx context.Context, dryRun bool) (Result, error) {
	passID := uuid.NewString()
	logger := logging.WithPass(e.logger, passID)
	start := e.now()

	logger.Info("Starting sync pass", "dry_run", dryRun)

	cfg := e.cfg.Get()
	if !cfg.SyncEnabled {
		return Result{
			Success: false,
			Message: "Sync is disabled in configuration",
			DryRun:  dryRun,
		}, nil
	}
	if len(cfg.CalendarsToSync) == 0 {
		return Result{
			Success: false,
			Message: "No calendars configured for sync",
			DryRun:  dryRun,
		}, nil
	}

	ctx, span := instrumentation.StartSyncPassSpan(ctx, passID, dryRun)
	defer span.End()

	// Fetch events per calendar. A failing calendar is logged and
	// skipped so one revoked or renamed calendar does not starve the
	// rest.
	var events []icloud.Event
	for _, calendar := range cfg.CalendarsToSync {
		calEvents, err := e.readCalendar(ctx, calendar, cfg.DaysBack, cfg.DaysForward)
		if err != nil {
			logger.Error("Failed to read source calendar",
				logging.Calendar(calendar),
				logging.Err(err))
			continue
		}
		events = append(events, calEvents...)
	}

	// Partition into already-synced and new
	var newEvents []icloud.Event
	for _, event := range events {
		if e.state.IsSynced(Fingerprint(event)) {
			e.recordEvent(ctx, instrumentation.OutcomeSkipped, event.Calendar)
			continue
		}
		newEvents = append(newEvents, event)
	}

	result := Result{
		Success:          true,
		TotalEventsFound: len(events),
		NewEventsToSync:  len(newEvents),
		DryRun:           dryRun,
		SyncTimestamp:    start.Format(time.RFC3339),
	}

	if dryRun {
		result.Message = fmt.Sprintf("Dry run complete. Would sync %d new events.", len(newEvents))
		result.NewEvents = newEvents
		logger.Info("Dry run complete",
			logging.Count(len(newEvents)),
			logging.Duration(e.now().Sub(start)))
		e.recordPass(ctx, instrumentation.StatusSuccess, dryRun, e.now().Sub(start))
		return result, nil
	}

	pusher, err := e.pusher(ctx)
	if err != nil {
		logger.Error("Destination client unavailable", logging.Err(err))
		instrumentation.SetSpanError(span, err)
		e.recordPass(ctx, instrumentation.StatusError, dryRun, e.now().Sub(start))
		return Result{
			Success: false,
			Message: fmt.Sprintf("Sync failed: %v", err),
			DryRun:  dryRun,
		}, nil
	}

	// Push each new event independently. One failure is logged and
	// skipped; the event stays unsynced and retries on the next pass.
	for _, event := range newEvents {
		fingerprint := Fingerprint(event)
		body := Normalize(event, cfg.Timezone, e.now())

		created, err := pusher.CreateEvent(ctx, cfg.GoogleCalendarID, body)
		if err != nil {
			logger.Error("Failed to sync event",
				"title", body.Summary,
				logging.Calendar(event.Calendar),
				logging.Err(err))
			e.recordEvent(ctx, instrumentation.OutcomeFailed, event.Calendar)
			continue
		}

		e.state.MarkSynced(fingerprint, created.ID, event, e.now())
		result.EventsProcessed++
		e.recordEvent(ctx, instrumentation.OutcomeCreated, event.Calendar)
		logger.Info("Synced event",
			"title", body.Summary,
			logging.Calendar(event.Calendar))
	}

	// Commit point: one persist per pass
	e.state.SetLastSyncTime(e.now())
	if err := e.state.Persist(); err != nil {
		logger.Error("Failed to persist sync state", logging.Err(err))
		instrumentation.SetSpanError(span, err)
		e.recordPass(ctx, instrumentation.StatusError, dryRun, e.now().Sub(start))
		result.Success = false
		result.Message = fmt.Sprintf("Sync failed: %v", err)
		return result, err
	}

	result.Message = fmt.Sprintf("Successfully synced %d events", result.EventsProcessed)
	logger.Info("Sync pass complete",
		logging.Count(result.EventsProcessed),
		logging.Duration(e.now().Sub(start)))
	instrumentation.SetSpanSuccess(span)
	e.recordPass(ctx, instrumentation.StatusSuccess, dryRun, e.now().Sub(start))

	return result, nil
}

// readCalendar wraps a reader call with timing and metrics.
func (e *Engine) readCalendar(ctx context.Context, calendar string, daysBack, daysForward int) ([]icloud.Event, error) {
	start := e.now()
	events, err := e.reader.Events(calendar, daysBack, daysForward)

	if e.metrics != nil {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		e.metrics.RecordAppleScriptOperation(ctx, "events", status, e.now().Sub(start))
	}

	return events, err
}

func (e *Engine) recordEvent(ctx context.Context, outcome, calendar string) {
	if e.metrics != nil {
		e.metrics.RecordSyncEvent(ctx, outcome, calendar)
	}
}

func (e *Engine) recordPass(ctx context.Context, status string, dryRun bool, duration time.Duration) {
	if e.metrics != nil {
		e.metrics.RecordSyncPass(ctx, status, dryRun, duration)
	}
}
