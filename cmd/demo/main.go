// Command demo runs a whole session in one process.
//
// A coordinator is started on a local port and every participant joins it
// over HTTP concurrently. Once all have submitted, the demo triggers the
// aggregation and prints the evaluation result.
//
// # Usage
//
//	go run ./cmd/demo
//	go run ./cmd/demo --names=Barry,Justin,Brian,Dave --log-level=debug
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/flashbots/fhesession/cmd/common"
	"github.com/flashbots/fhesession/protocol"
	"github.com/flashbots/fhesession/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config file")
		names      = flag.String("names", strings.Join(services.DefaultParticipantNames, ","), "Comma-separated participant names")
		logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
		timeout    = flag.Duration("timeout", 5*time.Minute, "Overall timeout")
	)
	flag.Parse()

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	specs := participantSpecs(strings.Split(*names, ","))
	cfg.Session.Participants = len(specs)

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Configuration error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		cancel()
	}()

	if err := run(ctx, cfg, specs); err != nil {
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

// participantSpecs gives participant i the input {3i+1, 3i+2, 3i+3}.
func participantSpecs(names []string) []services.ParticipantSpec {
	specs := make([]services.ParticipantSpec, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		base := uint64(3 * len(specs))
		specs = append(specs, services.ParticipantSpec{
			Name:  name,
			Input: []uint64{base + 1, base + 2, base + 3},
		})
	}
	return specs
}

func run(ctx context.Context, cfg *common.Config, specs []services.ParticipantSpec) error {
	log, err := common.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	backend, err := common.NewBackend(cfg)
	if err != nil {
		return err
	}

	session, err := protocol.NewSession(cfg.SessionConfig(), backend, protocol.WithLogger(log))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	services.NewHTTPCoordinator(session, nil, log).RegisterRoutes(r)

	server := &http.Server{
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("coordinator failed", "err", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	coordinatorURL := "http://" + listener.Addr().String()
	log.Info("coordinator listening", slog.String("url", coordinatorURL), slog.Int("participants", len(specs)))

	orchestrator := services.NewOrchestrator(&services.OrchestratorConfig{
		CoordinatorURL: coordinatorURL,
		Participants:   specs,
		PollInterval:   50 * time.Millisecond,
	}, backend, log)

	start := time.Now()
	result, _, err := orchestrator.Execute(ctx)
	if err != nil {
		return err
	}

	status, err := orchestrator.Client().Status(ctx)
	if err != nil {
		return err
	}

	digest := sha256.Sum256(result)
	fmt.Printf("Session %s finished in %s\n", status.SessionID, time.Since(start).Round(time.Millisecond))
	for _, spec := range specs {
		fmt.Printf("  %-10s input %v\n", spec.Name, spec.Input)
	}
	fmt.Printf("Evaluation result: %d bytes, sha256 %s\n", len(result), hex.EncodeToString(digest[:]))
	return nil
}
