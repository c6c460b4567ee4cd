// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; Load layers a YAML file and env vars on top.
// - External errors are wrapped via this package's error kinds.
package config

import "context"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ScenarioDir optionally points at a directory of authored scenario
	// YAML files. Empty means only the built-in demo scenario is served.
	ScenarioDir string `koanf:"scenario_dir"`

	// SessionShardCount configures the number of shards in the session store.
	SessionShardCount int `koanf:"session_shard_count"`

	// DedupeSize bounds the submission idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// RetrievalTopK caps how many context chunks one transcript resolves to.
	RetrievalTopK int `koanf:"retrieval_top_k"`

	// RetrievalTimeoutMS bounds each retrieval call.
	RetrievalTimeoutMS int `koanf:"retrieval_timeout_ms"`

	// RetrievalLatencyMinMS and RetrievalLatencyMaxMS simulate vector store
	// latency bounds.
	RetrievalLatencyMinMS int `koanf:"retrieval_latency_min_ms"`
	RetrievalLatencyMaxMS int `koanf:"retrieval_latency_max_ms"`

	// RetrievalFailureRate makes a fraction of simulated retrievals fail,
	// exercising the degraded-context path. 0 disables.
	RetrievalFailureRate float64 `koanf:"retrieval_failure_rate"`

	// AuditQueueSize bounds the audit export queue.
	AuditQueueSize int `koanf:"audit_queue_size"`

	// AuditWorkerCount sets the number of audit export workers.
	AuditWorkerCount int `koanf:"audit_worker_count"`

	// AgentWeights switches aggregation to a weighted mean when non-empty.
	// Leaving it empty keeps the default unweighted mean.
	AgentWeights map[string]float64 `koanf:"agent_weights"`

	// DefaultAgentWeight applies to agents missing from AgentWeights.
	DefaultAgentWeight float64 `koanf:"default_agent_weight"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		SessionShardCount:     16,
		DedupeSize:            50_000,
		RetrievalTopK:         5,
		RetrievalTimeoutMS:    2000,
		RetrievalLatencyMinMS: 20,
		RetrievalLatencyMaxMS: 60,
		RetrievalFailureRate:  0,
		AuditQueueSize:        10_000,
		AuditWorkerCount:      2,
		AgentWeights:          map[string]float64{},
		DefaultAgentWeight:    1.0,
	}
}
