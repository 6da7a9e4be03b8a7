package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/calbridge/calbridge/internal/config"
	"github.com/calbridge/calbridge/internal/gcal"
	"github.com/calbridge/calbridge/internal/google"
	"github.com/calbridge/calbridge/internal/icloud"
	"github.com/calbridge/calbridge/internal/instrumentation"
	calsync "github.com/calbridge/calbridge/internal/sync"
)

// ServerContext holds the wiring for the MCP server: stores, clients and
// the sync engine. Tool handlers receive it explicitly instead of
// reaching for process-wide state.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	dataDir     string
	configStore *config.Store
	stateStore  *calsync.StateStore
	credentials *google.CredentialStore
	reader      *icloud.Reader
	engine      *calsync.Engine
	scheduler   *calsync.Scheduler
	logger      *slog.Logger

	gcalClient  *gcal.Client // lazily created once a token exists
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates the server context and its collaborator
// stores. The Google Calendar client is not created here; it is built
// lazily on first use so the server starts before the integration is
// configured.
func NewServerContext(ctx context.Context, dataDir string, logger *slog.Logger) (*ServerContext, error) {
	if logger == nil {
		logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	configStore := config.NewStore(dataDir, logger)
	if err := configStore.Load(); err != nil {
		cancel()
		return nil, err
	}

	stateStore := calsync.NewStateStore(dataDir, logger)
	if err := stateStore.Load(); err != nil {
		cancel()
		return nil, err
	}

	sc := &ServerContext{
		ctx:         shutdownCtx,
		cancel:      cancel,
		dataDir:     dataDir,
		configStore: configStore,
		stateStore:  stateStore,
		credentials: google.NewCredentialStore(dataDir),
		logger:      logger,
	}

	// The Calendar app reader needs osascript; on other platforms the
	// icloud_* tools and sync report the error instead of the process
	// refusing to start.
	reader, err := icloud.NewReader(shutdownCtx, logger)
	if err != nil {
		logger.Warn("Calendar app reader unavailable", "error", err)
	} else {
		sc.reader = reader
	}

	sc.engine = calsync.NewEngine(configStore, stateStore, readerOrError{sc}, sc.pusher, logger)
	sc.scheduler = calsync.NewScheduler(shutdownCtx, sc.engine, logger)

	return sc, nil
}

// readerOrError defers the osascript availability error from startup to
// the first read.
type readerOrError struct {
	sc *ServerContext
}

func (r readerOrError) Events(calendar string, daysBack, daysForward int) ([]icloud.Event, error) {
	reader, err := r.sc.Reader()
	if err != nil {
		return nil, err
	}
	return reader.Events(calendar, daysBack, daysForward)
}

// pusher returns the Google Calendar client as the engine's destination.
func (sc *ServerContext) pusher(ctx context.Context) (calsync.Pusher, error) {
	return sc.GcalClient(ctx)
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// DataDir returns the per-user data directory.
func (sc *ServerContext) DataDir() string {
	return sc.dataDir
}

// ConfigStore returns the configuration store.
func (sc *ServerContext) ConfigStore() *config.Store {
	return sc.configStore
}

// StateStore returns the sync state store.
func (sc *ServerContext) StateStore() *calsync.StateStore {
	return sc.stateStore
}

// Credentials returns the Google credential store.
func (sc *ServerContext) Credentials() *google.CredentialStore {
	return sc.credentials
}

// Engine returns the sync engine.
func (sc *ServerContext) Engine() *calsync.Engine {
	return sc.engine
}

// Scheduler returns the sync scheduler.
func (sc *ServerContext) Scheduler() *calsync.Scheduler {
	return sc.scheduler
}

// Reader returns the Calendar app reader, or an error when osascript is
// unavailable on this machine.
func (sc *ServerContext) Reader() (*icloud.Reader, error) {
	sc.mu.RLock()
	reader := sc.reader
	sc.mu.RUnlock()
	if reader != nil {
		return reader, nil
	}

	// Retry: osascript may have appeared since startup (PATH fix)
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.reader != nil {
		return sc.reader, nil
	}
	reader, err := icloud.NewReader(sc.ctx, sc.logger)
	if err != nil {
		return nil, err
	}
	sc.reader = reader
	return reader, nil
}

// GcalClient returns the Google Calendar client, creating and caching it
// on first use. Returns an error when the integration is not configured.
func (sc *ServerContext) GcalClient(ctx context.Context) (*gcal.Client, error) {
	sc.mu.RLock()
	client := sc.gcalClient
	sc.mu.RUnlock()
	if client != nil {
		return client, nil
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.gcalClient != nil {
		return sc.gcalClient, nil
	}

	tokenSource, err := sc.credentials.TokenSource(ctx)
	if err != nil {
		return nil, err
	}

	client, err = gcal.NewClient(sc.ctx, tokenSource)
	if err != nil {
		return nil, err
	}
	if sc.metrics != nil {
		client.SetMetrics(sc.metrics)
	}

	sc.gcalClient = client
	return client, nil
}

// ResetGcalClient drops the cached client so the next call rebuilds it,
// e.g. after new credentials are saved.
func (sc *ServerContext) ResetGcalClient() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.gcalClient = nil
}

// SetMetrics attaches the metrics recorder to the context and its engine.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
	sc.engine.SetMetrics(m)
	if sc.gcalClient != nil {
		sc.gcalClient.SetMetrics(m)
	}
}

// Metrics returns the metrics recorder, which may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger attaches the audit logger.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// AuditLogger returns the audit logger, which may be nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// Logger returns the context's logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// IsShutdown returns whether the server has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown stops the scheduler and cancels the server context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	if sc.shutdown {
		sc.mu.Unlock()
		return nil
	}
	sc.shutdown = true
	sc.mu.Unlock()

	// Stop waits for a mid-flight pass; do it before cancelling so the
	// pass can finish its persist step
	sc.scheduler.Stop()
	sc.cancel()
	return nil
}
