package daemon

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/strata-labs/strata/internal/api"
	"github.com/strata-labs/strata/internal/domain"
	"github.com/strata-labs/strata/internal/governance"
	"github.com/strata-labs/strata/internal/infra/ballot"
	"github.com/strata-labs/strata/internal/infra/eligibility"
	_ "github.com/strata-labs/strata/internal/infra/metrics" // Register Prometheus metrics
	"github.com/strata-labs/strata/internal/infra/notify"
	"github.com/strata-labs/strata/internal/infra/sqlite"
)

// Daemon is the strata runtime. It wires the store, the governance
// coordinator, and the HTTP API together.
type Daemon struct {
	Config Config
	DB     *sqlite.DB
	Coord  *governance.Coordinator
	Server *api.Server
	cancel context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	dir := cfg.Storage.Dir
	if dir == "" {
		dir = strataHome()
	}
	db, err := sqlite.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	roster := eligibility.NewFileRoster(cfg.Society.RosterFile)

	var dispatcher domain.Dispatcher
	if cfg.Escalation.WebhookURL != "" {
		dispatcher = notify.NewWebhookDispatcher(
			cfg.Escalation.WebhookURL,
			parseDuration(cfg.Escalation.WebhookTimeout, 10*time.Second),
		)
	} else {
		dispatcher = notify.LogDispatcher{}
	}

	tokens, err := tokenizerFor(&cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	coord := governance.New(db, roster, dispatcher, tokens)
	if err := coord.Rehydrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("rehydrate: %w", err)
	}

	srv := api.NewServer(coord)
	if cfg.API.Metrics {
		srv.EnableMetrics()
	}

	return &Daemon{
		Config: cfg,
		DB:     db,
		Coord:  coord,
		Server: srv,
	}, nil
}

// tokenizerFor builds the anonymous-ballot tokenizer. The secret must stay
// stable across restarts or duplicate detection on anonymous campaigns
// breaks after rehydration, so a generated secret is written back to the
// config file.
func tokenizerFor(cfg *Config) (*ballot.Tokenizer, error) {
	if cfg.Escalation.TokenSecret != "" {
		secret, err := hex.DecodeString(cfg.Escalation.TokenSecret)
		if err != nil {
			return nil, fmt.Errorf("decode token_secret: %w", err)
		}
		return ballot.NewTokenizer(secret), nil
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate token secret: %w", err)
	}
	cfg.Escalation.TokenSecret = hex.EncodeToString(secret)
	if err := SaveConfig(*cfg); err != nil {
		log.Printf("[daemon] WARNING: could not persist token secret: %v", err)
	}
	return ballot.NewTokenizer(secret), nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// Campaign sweep: auto-activate and auto-close on schedule boundaries.
	go d.runSweep(ctx)

	// Audit flush: retry buffered audit entries.
	go d.runAuditFlush(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		d.Coord.Shutdown()
		_ = d.DB.Close()
	}()

	fmt.Printf("strata serving on http://%s\n", addr)
	if d.Config.API.Metrics {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// runSweep advances scheduled/active campaigns whose start or end time has
// passed.
func (d *Daemon) runSweep(ctx context.Context) {
	interval := parseDuration(d.Config.Storage.SweepInterval, 15*time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Coord.Sweep()
		}
	}
}

// runAuditFlush retries buffered audit entries on an interval.
func (d *Daemon) runAuditFlush(ctx context.Context) {
	interval := parseDuration(d.Config.Storage.AuditFlushInterval, 30*time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if remaining := d.Coord.FlushAudit(); remaining > 0 {
				log.Printf("[daemon] audit flush: %d entries still buffered", remaining)
			}
		}
	}
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Coord != nil {
		d.Coord.Shutdown()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
