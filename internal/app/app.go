// Package app wires configuration, logging, storage, the Telegram adapter and
// the notification pipeline into one lifecycle.
package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"alphabot/internal/config"
	"alphabot/internal/event"
	"alphabot/internal/feed"
	"alphabot/internal/notify"
	"alphabot/internal/registry"
	"alphabot/internal/transport"
	"alphabot/internal/transport/telegram"
	"alphabot/internal/trigger"
	"alphabot/pkg/logx"
)

const defaultSweepSchedule = "@every 1m"

// sweepTimeout bounds one sweep: two upstream fetches plus deliveries.
const sweepTimeout = 90 * time.Second

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store   registry.Store
	adapter *telegram.Adapter
	svc     *notify.Service
	sweeper *notify.Sweeper
	trigger *trigger.Server

	// tradeURL holds a string; hot reload swaps it while handlers read it.
	tradeURL atomic.Value

	cron     *cron.Cron
	cronMu   sync.Mutex
	cronID   cron.EntryID
	schedule string

	updates chan transport.Update
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	store, err := registry.Open(registry.Config{
		Driver:      cfg.Registry.Driver,
		Addr:        cfg.Registry.Addr,
		DB:          cfg.Registry.DB,
		Path:        cfg.Registry.Path,
		BusyTimeout: mustDuration(cfg.Registry.BusyTimeout),
	}, log.With(logx.String("comp", "registry")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open registry: %w", err)
	}
	if store == nil {
		log.Warn("registry disabled; reminders and opt-in are unavailable")
	}

	adapter, err := telegram.New(telegram.Config{
		Token:          cfg.Telegram.Token,
		PollTimeout:    mustDuration(cfg.Telegram.PollTimeout),
		SendRatePerSec: cfg.Telegram.SendRatePerSec,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}

	resolver, err := event.NewResolver(cfg.Feed.Timezone, cfg.LocalTimezone)
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("load timezones: %w", err)
	}

	client := feed.NewClient(feed.Config{
		EventsURL:     cfg.Feed.EventsURL,
		PricesURL:     cfg.Feed.PricesURL,
		EventsTimeout: mustDuration(cfg.Feed.EventsTimeout),
		PricesTimeout: mustDuration(cfg.Feed.PricesTimeout),
	})

	norm := event.NewNormalizer(client, resolver, log.With(logx.String("comp", "normalizer")))

	sweeper := notify.NewSweeper(store, adapter, log.With(logx.String("comp", "sweep")))
	sweeper.SetWindow(mustDuration(cfg.Reminder.Window))
	sweeper.SetMarkerTTL(mustDuration(cfg.Reminder.MarkerTTL))

	svc := notify.NewService(norm, sweeper, resolver.Local(), log.With(logx.String("comp", "notify")))

	a := &App{
		cfgMgr:   mgr,
		logSvc:   logSvc,
		log:      log,
		store:    store,
		adapter:  adapter,
		svc:      svc,
		sweeper:  sweeper,
		schedule: scheduleOrDefault(cfg),
		updates:  make(chan transport.Update, 64),
	}
	a.tradeURL.Store(tradeURL(cfg))

	a.trigger = trigger.New(trigger.Config{
		Enabled: cfg.Trigger.Enabled,
		Addr:    cfg.Trigger.Addr,
		Secret:  cfg.Trigger.Secret,
	}, store, a.runSweep, log.With(logx.String("comp", "trigger")))

	mgr.OnReload(a.applyConfig)
	return a, nil
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		cancel()
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.routeUpdates(runCtx)
	}()

	if err := a.startCron(); err != nil {
		cancel()
		return err
	}

	if err := a.trigger.Start(); err != nil {
		cancel()
		return fmt.Errorf("trigger server: %w", err)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgMgr.Watch(runCtx)
	}()

	a.log.Info("alphabot started", logx.String("schedule", a.schedule))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	a.cronMu.Lock()
	if a.cron != nil {
		stopped := a.cron.Stop()
		select {
		case <-stopped.Done():
		case <-ctx.Done():
		}
		a.cron = nil
	}
	a.cronMu.Unlock()

	_ = a.trigger.Stop(ctx)
	_ = a.adapter.Stop(ctx)

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	if a.store != nil {
		_ = a.store.Close()
	}
	a.log.Info("alphabot stopped")
	return a.logSvc.Close()
}

func (a *App) startCron() error {
	cfg := a.cfgMgr.Get()
	if cfg != nil && !cfg.Reminder.Enabled {
		a.log.Info("periodic sweep disabled by config")
		return nil
	}

	a.cronMu.Lock()
	defer a.cronMu.Unlock()

	a.cron = cron.New()
	id, err := a.cron.AddFunc(a.schedule, a.cronSweep)
	if err != nil {
		return fmt.Errorf("bad sweep schedule %q: %w", a.schedule, err)
	}
	a.cronID = id
	a.cron.Start()
	return nil
}

func (a *App) cronSweep() {
	sent, err := a.runSweep(context.Background())
	if err != nil {
		a.log.Warn("scheduled sweep failed", logx.Err(err))
		return
	}
	if sent > 0 {
		a.log.Info("reminders sent", logx.Int("count", sent))
	} else {
		a.log.Debug("sweep finished, nothing to send")
	}
}

func (a *App) runSweep(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()
	return a.svc.Sweep(ctx)
}

// applyConfig handles hot reload: logging sinks and the sweep schedule can
// change at runtime; everything else needs a restart.
func (a *App) applyConfig(cfg *config.Config) {
	a.logSvc.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	a.sweeper.SetWindow(mustDuration(cfg.Reminder.Window))
	a.sweeper.SetMarkerTTL(mustDuration(cfg.Reminder.MarkerTTL))
	a.tradeURL.Store(tradeURL(cfg))

	newSchedule := scheduleOrDefault(cfg)
	a.cronMu.Lock()
	defer a.cronMu.Unlock()
	if a.cron == nil || newSchedule == a.schedule {
		return
	}
	id, err := a.cron.AddFunc(newSchedule, a.cronSweep)
	if err != nil {
		a.log.Warn("ignoring bad sweep schedule", logx.String("schedule", newSchedule), logx.Err(err))
		return
	}
	a.cron.Remove(a.cronID)
	a.cronID = id
	a.schedule = newSchedule
	a.log.Info("sweep schedule updated", logx.String("schedule", newSchedule))
}

func scheduleOrDefault(cfg *config.Config) string {
	if cfg != nil && cfg.Reminder.Schedule != "" {
		return cfg.Reminder.Schedule
	}
	return defaultSweepSchedule
}

func (a *App) currentTradeURL() string {
	if v, ok := a.tradeURL.Load().(string); ok {
		return v
	}
	return ""
}

func tradeURL(cfg *config.Config) string {
	if cfg != nil && cfg.Telegram.TradeURL != "" {
		return cfg.Telegram.TradeURL
	}
	return "https://app.hyperliquid.xyz/"
}

// mustDuration is safe here: config validation already rejected bad values.
func mustDuration(raw string) time.Duration {
	d, _ := config.ParseDurationField("", raw)
	return d
}
