package app

import (
	"time"

	"github.com/simclinic/woundsim/internal/adapters/repository"
	"github.com/simclinic/woundsim/internal/adapters/retrieval"
	"github.com/simclinic/woundsim/internal/adapters/scenario"
	"github.com/simclinic/woundsim/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithScenarioDir loads authored scenarios from dir at startup.
func WithScenarioDir(dir string) Option {
	return func(s *Service) {
		s.scenarioDir = dir
	}
}

// WithShardCount sets the session store shard count.
func WithShardCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithDedupeSize bounds the submission dedupe cache.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}

// WithRetrievalTopK sets how many context chunks a transcript resolves to.
func WithRetrievalTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.retrievalTopK = k
		}
	}
}

// WithRetrievalTimeout bounds each retrieval call.
func WithRetrievalTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retrievalTimeout = d
		}
	}
}

// WithRetrievalLatencyRange sets the simulated retrieval latency range.
func WithRetrievalLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *Service) {
		if minLatency > 0 && maxLatency > minLatency {
			s.retrievalLatencyMin = minLatency
			s.retrievalLatencyMax = maxLatency
		}
	}
}

// WithRetrievalFailureRate makes a fraction of simulated retrievals fail.
func WithRetrievalFailureRate(rate float64) Option {
	return func(s *Service) {
		s.retrievalFailureRate = rate
	}
}

// WithAgentWeights switches the coordinator to a weighted mean. An empty map
// keeps the default unweighted aggregation.
func WithAgentWeights(weights map[string]float64, defaultWeight float64) Option {
	return func(s *Service) {
		s.agentWeights = weights
		if defaultWeight > 0 {
			s.defaultAgentWeight = defaultWeight
		}
	}
}

// WithAuditQueueCapacity bounds the audit export queue.
func WithAuditQueueCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.auditQueueCapacity = n
		}
	}
}

// WithAuditWorkerCount sets the number of audit export workers.
func WithAuditWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.auditWorkerCount = n
		}
	}
}

// WithRetriever injects a retriever, replacing the simulated default.
func WithRetriever(r retrieval.Retriever) Option {
	return func(s *Service) {
		s.injectedRetriever = r
	}
}

// WithScenarioSource injects a scenario source, replacing the catalog.
func WithScenarioSource(src scenario.Source) Option {
	return func(s *Service) {
		s.injectedScenarioSrc = src
	}
}

// WithSessionStore injects a session store, replacing the in-memory default.
func WithSessionStore(store repository.Store) Option {
	return func(s *Service) {
		s.injectedSessionStore = store
	}
}
