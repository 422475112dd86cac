// Command participant joins a session as one participant.
//
// The participant fetches the session seed, registers its name, derives its
// key share locally, encrypts its input and submits both to the coordinator.
// The secret key never leaves the process. With --wait it then polls until
// the evaluation result is available.
//
// The lattice parameters must match the coordinator's; they are read from the
// backend section of the same YAML config file.
//
// # Usage
//
//	go run ./cmd/participant --coordinator=http://localhost:8080 --name=Barry --input=1,2,3
//	go run ./cmd/participant --config=coordinator.yaml --name=Justin --input=4,5,6 --wait
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/flashbots/fhesession/cmd/common"
	"github.com/flashbots/fhesession/services"
)

func main() {
	var (
		configPath     = flag.String("config", "", "Path to YAML config file")
		coordinatorURL = flag.String("coordinator", "http://localhost:8080", "Coordinator base URL")
		name           = flag.String("name", "", "Participant name")
		input          = flag.String("input", "", "Comma-separated input values")
		wait           = flag.Bool("wait", false, "Poll for the evaluation result after submitting")
		pollInterval   = flag.Duration("poll", time.Second, "Result polling interval")
		timeout        = flag.Duration("timeout", 5*time.Minute, "Overall timeout")
	)
	flag.Parse()

	if *name == "" {
		fmt.Println("Error: --name is required")
		os.Exit(1)
	}

	values, err := parseInput(*input)
	if err != nil {
		fmt.Printf("Error parsing input: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
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

	if err := run(ctx, cfg, *coordinatorURL, *name, values, *wait, *pollInterval); err != nil {
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

// parseInput parses "1, 2,3" into its values. An empty string is an empty
// input vector.
func parseInput(raw string) ([]uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	values := make([]uint64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}

func run(ctx context.Context, cfg *common.Config, coordinatorURL, name string,
	input []uint64, wait bool, pollInterval time.Duration) error {

	log, err := common.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	backend, err := common.NewBackend(cfg)
	if err != nil {
		return err
	}

	client := services.NewCoordinatorClient(coordinatorURL)
	participant := services.NewParticipant(name, input, client, backend, log)

	joined, err := participant.Join(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s joined as participant %d\n", name, joined.ID)

	if !wait {
		return nil
	}

	result, err := services.WaitForResult(ctx, client, pollInterval)
	if err != nil {
		return err
	}
	digest := sha256.Sum256(result)
	fmt.Printf("Evaluation result: %d bytes, sha256 %s\n", len(result), hex.EncodeToString(digest[:]))
	return nil
}
