package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"mediaharvest/internal/api"
	"mediaharvest/internal/config"
	"mediaharvest/internal/harvest"
	"mediaharvest/internal/logging"
	"mediaharvest/internal/publish"
	"mediaharvest/internal/records"
	"mediaharvest/internal/sources"
)

// Daemon runs one harvest loop per enabled source and enforces
// single-instance execution through a file lock.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *records.Store
	registry  *sources.Registry
	publisher publish.Publisher
	policy    *publish.Policy

	lockPath string
	lock     *flock.Flock

	running  atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	api      *apiServer
	triggers map[string]chan struct{}
}

// SourceStatus is one source's runtime state in a status report.
type SourceStatus struct {
	Source  string      `json:"source"`
	LastRun api.RunView `json:"last_run"`
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool           `json:"running"`
	DatabasePath string         `json:"database_path"`
	LockFilePath string         `json:"lock_file_path"`
	PublishMode  string         `json:"publish_mode"`
	Sources      []SourceStatus `json:"sources"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *records.Store, registry *sources.Registry, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || registry == nil {
		return nil, errors.New("daemon requires config, store, and source registry")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	policy, err := publish.NewPolicy(cfg.Publish)
	if err != nil {
		return nil, err
	}
	var publisher publish.Publisher
	if policy.Mode() != publish.ModeDisabled {
		publisher = publish.NewDirectoryPublisher(
			filepath.Join(cfg.Paths.DataDir, "published"),
			cfg.FetchTimeoutDuration(),
			nil,
		)
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "mediaharvestd.lock")
	triggers := make(map[string]chan struct{}, len(registry.Names()))
	for _, name := range registry.Names() {
		triggers[name] = make(chan struct{}, 1)
	}
	return &Daemon{
		cfg:       cfg,
		logger:    logging.WithComponent(logger, "daemon"),
		store:     store,
		registry:  registry,
		publisher: publisher,
		policy:    policy,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
		triggers:  triggers,
	}, nil
}

// Start acquires the daemon lock, starts the operator API, and launches one
// harvest loop per enabled source.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mediaharvest daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	server, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.releaseLock()
		return err
	}
	d.api = server
	if err := d.api.start(d.ctx); err != nil {
		d.releaseLock()
		return err
	}

	for _, name := range d.registry.Names() {
		adapter, ok := d.registry.Adapter(name)
		if !ok {
			continue
		}
		d.wg.Add(1)
		go d.runLoop(adapter)
	}

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("sources", len(d.registry.Names())),
	)
	return nil
}

// runLoop harvests one source immediately and then on every poll tick or
// manual trigger until the daemon stops.
func (d *Daemon) runLoop(adapter sources.Adapter) {
	defer d.wg.Done()

	name := adapter.Name()
	logger := logging.WithSource(d.logger, name)
	harvester := harvest.New(d.store, d.cfg, d.policyFor(name), d.publisher, d.logger)

	ticker := time.NewTicker(d.cfg.PollIntervalDuration())
	defer ticker.Stop()

	for {
		summary, err := harvester.Harvest(d.ctx, adapter)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			logger.Error("harvest failed", logging.Error(err))
		default:
			logger.Debug("harvest pass complete", logging.Int("processed", summary.Processed))
		}

		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
		case <-d.triggers[name]:
			logger.Info("manual harvest trigger")
		}
	}
}

// policyFor applies a per-source upload mode override when the definition
// declares one.
func (d *Daemon) policyFor(source string) *publish.Policy {
	def, ok := d.registry.Definition(source)
	if !ok || def.UploadMode == "" {
		return d.policy
	}
	mode, err := publish.ParseMode(def.UploadMode)
	if err != nil {
		d.logger.Warn("invalid per-source upload mode, using global",
			logging.String(logging.FieldSource, source),
			logging.Error(err),
		)
		return d.policy
	}
	return d.policy.WithMode(mode)
}

// TriggerHarvest queues an immediate harvest pass for a source. A pass
// already pending satisfies the request.
func (d *Daemon) TriggerHarvest(source string) error {
	trigger, ok := d.triggers[source]
	if !ok {
		return fmt.Errorf("unknown or disabled source %q", source)
	}
	select {
	case trigger <- struct{}{}:
	default:
	}
	return nil
}

// Status reports runtime information including each source's last run.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		PublishMode:  string(d.policy.Mode()),
	}
	for _, name := range d.registry.Names() {
		view, err := api.LastRun(ctx, d.store, name)
		if err != nil {
			d.logger.Warn("read last run", logging.String(logging.FieldSource, name), logging.Error(err))
		}
		if view.Source == "" {
			view.Source = name
		}
		status.Sources = append(status.Sources, SourceStatus{Source: name, LastRun: view})
	}
	return status
}

// Stop halts the harvest loops, shuts down the API, and releases the lock.
// Loops finish their in-flight item before exiting.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.api.stop()
	d.releaseLock()
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the record store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
}
