// Package cmd provides the fhesession commands.
//
// # Commands
//
// coordinator: Runs the session coordinator. Publishes the seed, registers
// participants, collects key shares and ciphertexts, and runs the aggregation
// exactly once.
//
//	go run ./cmd/coordinator --addr=:8080 --participants=3
//	go run ./cmd/coordinator --config=coordinator.yaml
//
// participant: Joins a running session as one participant.
//
//	go run ./cmd/participant --coordinator=http://localhost:8080 --name=Barry --input=1,2,3 --wait
//
// demo: Runs a coordinator and a group of participants in one process.
//
//	go run ./cmd/demo
//	go run ./cmd/demo --names=Barry,Justin,Brian,Dave
//
// # Configuration
//
// All commands support YAML configuration files via the --config flag.
// Command-line flags override config file values. Participants must use the
// same backend section as the coordinator.
//
//	http_addr: ":8080"
//	metrics_addr: ":9090"
//	log:
//	  level: info
//	  json: true
//	session:
//	  participants: 3
//	  backend_failure_policy: rollback
//	backend:
//	  log_n: 13
//	  log_q: [54, 54, 54]
//	  log_p: [55]
//	  plaintext_modulus: 65537
//	cors:
//	  allowed_origins: ["https://example.org"]
//	server:
//	  drain_duration: 5s
//	  graceful_shutdown_duration: 10s
//	  enable_pprof: false
package cmd
