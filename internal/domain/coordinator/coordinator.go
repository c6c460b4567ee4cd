// Package coordinator merges independent evaluator verdicts for one stage
// submission into a single authoritative result.
package coordinator

import (
	"fmt"
	"math"
	"strings"

	"github.com/simclinic/woundsim/internal/domain/model"
)

// Fixed aggregation strings. Persisted results depend on these values, so
// they must not change between releases.
const (
	NoEvaluationsFeedback = "No evaluations provided"
	NoFeedback            = "No feedback"
	feedbackSeparator     = " | "
)

// Coordinator aggregates verdict batches. The zero-configuration Coordinator
// computes an unweighted arithmetic mean; agent weighting is an explicit
// opt-in via WithAgentWeights.
type Coordinator struct {
	agentWeights  map[string]float64
	defaultWeight float64
}

// Option applies a configuration option to the Coordinator.
type Option func(*Coordinator)

// WithAgentWeights switches aggregation to a weighted mean keyed by agent
// identifier. Agents missing from the map use defaultWeight. Passing an
// empty or nil map leaves the unweighted mean in place.
func WithAgentWeights(weights map[string]float64, defaultWeight float64) Option {
	return func(c *Coordinator) {
		if len(weights) == 0 {
			return
		}
		c.agentWeights = make(map[string]float64, len(weights))
		for agent, w := range weights {
			if w > 0 {
				c.agentWeights[agent] = w
			}
		}
		if defaultWeight > 0 {
			c.defaultWeight = defaultWeight
		}
	}
}

// New constructs a Coordinator with the given options.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		defaultWeight: 1.0,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Aggregate merges verdicts into one result. It is a pure transformation:
// no side effects, and identical input always yields identical output.
//
// An empty batch is a defined, non-error case and returns the neutral
// result, so callers never special-case "no agents responded".
func (c *Coordinator) Aggregate(verdicts []model.Verdict) model.AggregateResult {
	if len(verdicts) == 0 {
		return model.AggregateResult{
			FinalScore:    0.0,
			FinalFeedback: NoEvaluationsFeedback,
			Actions:       []string{},
			Confidences:   map[string]float64{},
		}
	}

	var (
		scoreSum   float64
		weightSum  float64
		rationales []string
	)
	actions := []string{}
	confidences := make(map[string]float64, len(verdicts))

	for _, v := range verdicts {
		w := c.weightFor(v.Agent)
		scoreSum += v.Score * w
		weightSum += w

		// Last write wins when an agent id repeats within one batch.
		confidences[v.Agent] = v.Confidence

		actions = append(actions, v.SuggestedActions...)

		if v.Rationale != "" {
			rationales = append(rationales, fmt.Sprintf("[%s] %s", v.Agent, v.Rationale))
		}
	}

	final := 0.0
	if weightSum > 0 {
		final = round2(scoreSum / weightSum)
	}

	feedback := NoFeedback
	if len(rationales) > 0 {
		feedback = strings.Join(rationales, feedbackSeparator)
	}

	return model.AggregateResult{
		FinalScore:    final,
		FinalFeedback: feedback,
		Actions:       actions,
		Confidences:   confidences,
	}
}

// weightFor resolves the aggregation weight for an agent. Without configured
// weights every verdict weighs 1, which makes the weighted sum collapse to
// the plain arithmetic mean.
func (c *Coordinator) weightFor(agent string) float64 {
	if c.agentWeights == nil {
		return 1.0
	}
	if w, ok := c.agentWeights[agent]; ok {
		return w
	}
	return c.defaultWeight
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ValidateBatch checks every verdict for structural malformation and rejects
// the whole batch on the first violation. Partial aggregation of a malformed
// batch is never permitted.
func ValidateBatch(verdicts []model.Verdict) error {
	for i, v := range verdicts {
		switch {
		case strings.TrimSpace(v.Agent) == "":
			return fmt.Errorf("%w: verdict %d: missing agent", ErrSchemaViolation, i)
		case v.Confidence < 0 || v.Confidence > 1:
			return fmt.Errorf("%w: verdict %d: confidence %v outside [0,1]", ErrSchemaViolation, i, v.Confidence)
		case math.IsNaN(v.Score) || math.IsInf(v.Score, 0):
			return fmt.Errorf("%w: verdict %d: score is not finite", ErrSchemaViolation, i)
		}
	}
	return nil
}
