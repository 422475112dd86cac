// Command coordinator runs the session coordinator.
//
// The coordinator publishes the session seed, hands out participant
// identifiers, collects key shares and ciphertexts, and runs the aggregation
// and evaluation exactly once when every participant has submitted.
//
// # Configuration File
//
// Create a YAML file with coordinator settings:
//
//	http_addr: ":8080"
//	metrics_addr: ":9090"
//	log:
//	  level: info
//	  json: false
//	session:
//	  participants: 3
//	  backend_failure_policy: rollback  # rollback or seal
//	backend:
//	  log_n: 13
//	  log_q: [54, 54, 54]
//	  log_p: [55]
//	  plaintext_modulus: 65537
//	cors:
//	  allowed_origins: []
//	server:
//	  drain_duration: 5s
//	  graceful_shutdown_duration: 10s
//	  enable_pprof: false
//
// # Endpoints
//
//   - GET /parameters - Session seed
//   - POST /register - Register a participant name
//   - POST /submit - Submit a key share and ciphertext
//   - POST /run - Aggregate the key shares and evaluate
//   - GET /result - Evaluation output
//   - GET /status - Session phase and progress
//   - GET /participants - Registered participants
//   - GET /livez, /readyz, /drain, /undrain - Health and draining
//
// # Usage
//
//	go run ./cmd/coordinator --config=coordinator.yaml
//	go run ./cmd/coordinator --addr=:8080 --participants=5 --failure-policy=seal
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flashbots/fhesession/api/httpserver"
	"github.com/flashbots/fhesession/cmd/common"
	"github.com/flashbots/fhesession/metrics"
	"github.com/flashbots/fhesession/protocol"
	"github.com/flashbots/fhesession/services"
)

func main() {
	var (
		configPath    = flag.String("config", "", "Path to YAML config file")
		addr          = flag.String("addr", ":8080", "HTTP listen address")
		metricsAddr   = flag.String("metrics-addr", "", "Prometheus metrics listen address")
		participants  = flag.Int("participants", 0, "Number of participants in the session")
		failurePolicy = flag.String("failure-policy", "", "Backend failure policy: rollback or seal")
		logLevel      = flag.String("log-level", "", "Log level: debug, info, warn, error")
		logJSON       = flag.Bool("log-json", false, "Log in JSON format")
		pprof         = flag.Bool("pprof", false, "Enable the pprof debugging API")
	)
	flag.Parse()

	// isFlagSet checks if a flag was explicitly provided on command line
	isFlagSet := func(name string) bool {
		found := false
		flag.Visit(func(f *flag.Flag) {
			if f.Name == name {
				found = true
			}
		})
		return found
	}

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	applyFlagOverrides(cfg, *addr, *metricsAddr, *participants, *failurePolicy,
		*logLevel, *logJSON, *pprof, isFlagSet("addr"))

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfiguration(configPath string) (*common.Config, error) {
	if configPath != "" {
		return common.LoadConfig(configPath)
	}
	return common.DefaultConfig(), nil
}

func applyFlagOverrides(cfg *common.Config, addr, metricsAddr string, participants int,
	failurePolicy, logLevel string, logJSON, pprof bool, addrExplicit bool) {

	if addrExplicit {
		cfg.HTTPAddr = addr
	} else if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = addr
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if participants != 0 {
		cfg.Session.Participants = participants
	}
	if failurePolicy != "" {
		cfg.Session.BackendFailurePolicy = failurePolicy
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logJSON {
		cfg.Log.JSON = true
	}
	if pprof {
		cfg.Server.EnablePprof = true
	}
}

func run(cfg *common.Config) error {
	log, err := common.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	backend, err := common.NewBackend(cfg)
	if err != nil {
		return err
	}
	log.Info("lattice backend ready", "slots", backend.Slots())

	session, err := protocol.NewSession(cfg.SessionConfig(), backend, protocol.WithLogger(log))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	metricsSrv, err := metrics.New(metrics.DefaultNamespace, cfg.MetricsAddr)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	coordinator := services.NewHTTPCoordinator(session, metrics.NewSessionMetrics(metricsSrv), log)

	server, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cfg.HTTPAddr,
		MetricsAddr:              cfg.MetricsAddr,
		Metrics:                  metricsSrv,
		CORSAllowedOrigins:       cfg.CORS.AllowedOrigins,
		EnablePprof:              cfg.Server.EnablePprof,
		Log:                      log,
		DrainDuration:            cfg.Server.DrainDuration,
		GracefulShutdownDuration: cfg.Server.GracefulShutdownDuration,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, coordinator)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	log.Info("coordinator starting",
		slog.String("sessionID", session.ID()),
		slog.String("seed", session.Parameters().Seed.String()),
		slog.Int("participants", cfg.Session.Participants),
		slog.String("backendFailurePolicy", cfg.Session.BackendFailurePolicy),
	)
	server.RunInBackground()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-server.Drained():
	}

	log.Info("Shutting down coordinator...")
	server.Shutdown()
	return nil
}
