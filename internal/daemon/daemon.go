package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"clipmato/internal/api"
	"clipmato/internal/config"
	"clipmato/internal/logging"
	"clipmato/internal/metadata"
	"clipmato/internal/notifications"
	"clipmato/internal/preflight"
	"clipmato/internal/processing"
	"clipmato/internal/progress"
	"clipmato/internal/schedule"
	"clipmato/internal/upload"
)

// ErrAlreadyRunning is returned by Run when another daemon holds the lock.
var ErrAlreadyRunning = errors.New("another clipmato daemon instance is already running")

var errNotRunning = errors.New("daemon is not running")

// Dependencies are the shared stores and services the daemon serves.
type Dependencies struct {
	Records   *metadata.Store
	Progress  *progress.Store
	Uploads   *upload.Store
	Processor *processing.Processor
	Auto      *schedule.Auto
	Notifier  notifications.Service
}

// Daemon owns the job runner, API server, and cron loop of one process.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	deps    Dependencies
	records *api.RecordService
	uploads *api.UploadService
	handler http.Handler

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	runner  atomic.Pointer[processing.Runner]

	addrMu sync.RWMutex
	addr   string
}

// New constructs a daemon. Nothing is started until Run.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || deps.Records == nil || deps.Progress == nil || deps.Uploads == nil || deps.Processor == nil {
		return nil, errors.New("daemon requires config, record store, progress store, upload store, and processor")
	}
	logger = logging.NewComponentLogger(logger, "daemon")

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		deps:     deps,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.records = api.NewRecordService(deps.Records, deps.Progress, deps.Uploads, deps.Auto, api.ScheduleDefaults{
		Cadence: cfg.Scheduling.DefaultCadence,
		NDays:   cfg.Scheduling.DefaultNDays,
	}, deps.Notifier, logger)
	d.uploads = api.NewUploadService(deps.Uploads, deps.Progress, d, logger)
	d.handler = newAPIServer(d, logger).routes()
	return d, nil
}

// Handler returns the HTTP API handler.
func (d *Daemon) Handler() http.Handler {
	return d.handler
}

// Running reports whether Run is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Addr returns the bound API address while running.
func (d *Daemon) Addr() string {
	d.addrMu.RLock()
	defer d.addrMu.RUnlock()
	return d.addr
}

// Submit hands job to the running job runner.
func (d *Daemon) Submit(job processing.Job) error {
	runner := d.runner.Load()
	if runner == nil {
		return errNotRunning
	}
	return runner.Submit(job)
}

// Run acquires the lock, then serves the API, processes jobs, and runs the
// auto-schedule cron until ctx is cancelled or a component fails. In-flight
// jobs finish before Run returns.
func (d *Daemon) Run(ctx context.Context) error {
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	listener, err := net.Listen("tcp", d.cfg.Paths.APIBind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	runner := processing.NewRunner(groupCtx, d.deps.Processor, d.cfg.Workflow.MaxActiveJobs, d.logger)
	d.runner.Store(runner)
	d.setAddr(listener.Addr().String())
	d.running.Store(true)
	defer func() {
		d.running.Store(false)
		d.runner.Store(nil)
		d.setAddr("")
	}()

	server := &http.Server{
		Handler:           d.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	group.Go(func() error {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if spec := strings.TrimSpace(d.cfg.Scheduling.AutoCron); spec != "" && d.deps.Auto != nil {
		group.Go(func() error {
			return d.deps.Auto.RunCron(groupCtx, spec, d.cfg.Scheduling.DefaultCadence, d.cfg.Scheduling.DefaultNDays)
		})
	}

	d.logger.Info("clipmato daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("address", listener.Addr().String()),
		logging.String("lock", d.lockPath),
		logging.Int("max_active_jobs", d.cfg.Workflow.MaxActiveJobs),
	)

	err = group.Wait()
	runner.Close()
	if err != nil {
		logging.ErrorWithContext(d.logger, "daemon stopped with error", "daemon_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the api bind address and cron expression"),
		)
	}
	return err
}

func (d *Daemon) setAddr(addr string) {
	d.addrMu.Lock()
	d.addr = addr
	d.addrMu.Unlock()
}

// Status returns daemon runtime information with local dependency checks.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	counts := d.records.Counts(ctx)
	if runner := d.runner.Load(); runner != nil {
		counts.Active = runner.Active()
	}

	binaries := preflight.CheckSystemDeps(d.cfg)
	dependencies := make([]api.DependencyStatus, 0, len(binaries))
	for _, dep := range binaries {
		dependencies = append(dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}

	checks := preflight.CheckDirectories(d.cfg)
	results := make([]api.CheckResult, 0, len(checks))
	for _, check := range checks {
		results = append(results, api.CheckResult{Name: check.Name, Passed: check.Passed, Detail: check.Detail})
	}

	health := preflight.StageHealth(d.cfg, binaries)
	stages := make([]api.StageHealth, 0, len(health))
	for _, h := range health {
		stages = append(stages, api.StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}

	return api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		MetadataFile: d.deps.Records.Path(),
		LockFilePath: d.lockPath,
		Jobs:         counts,
		Dependencies: dependencies,
		Checks:       results,
		StageHealth:  stages,
	}
}
