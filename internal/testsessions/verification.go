package testsessions

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/simclinic/woundsim/internal/domain/procedure"
	"github.com/simclinic/woundsim/pkg/logger"
)

const scoreTolerance = 0.001

// verifyResults fetches each driven session back from the service and checks
// that it reached the terminal stage with the expected evaluation log.
func verifyResults(ctx context.Context, config *Config, outcomes []sessionOutcome, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	if len(outcomes) == 0 {
		return fmt.Errorf("no sessions to verify")
	}

	client := newHTTPClient(config.Timeout)

	verified := 0
	mismatches := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			continue
		}

		if err := verifySession(ctx, client, config, outcome); err != nil {
			mismatches++
			logger.Get().Warn(ctx, "session verification mismatch",
				logger.String("sessionID", outcome.SessionID),
				logger.Error(err))
			continue
		}
		verified++
	}

	log.Printf("✅ Verified %d/%d sessions (%d mismatches)", verified, len(outcomes), mismatches)

	if config.Verbose {
		displayScoreStatistics(outcomes)
	}

	stats.SessionsVerified = verified
	if mismatches > 0 {
		return fmt.Errorf("%d of %d sessions failed verification", mismatches, len(outcomes))
	}

	log.Println("✅ Result verification completed")
	return nil
}

// verifySession checks a single session against its script.
func verifySession(ctx context.Context, client *HTTPClient, config *Config, outcome sessionOutcome) error {
	session, err := fetchSession(ctx, client, config.BaseURL, outcome.SessionID)
	if err != nil {
		return err
	}

	if session.Stage != procedure.Completed {
		return fmt.Errorf("session at stage %q, want %q", session.Stage, procedure.Completed)
	}

	if len(session.Log) != len(outcome.Script.Stages) {
		return fmt.Errorf("session has %d log entries, want %d", len(session.Log), len(outcome.Script.Stages))
	}

	for i, scripted := range outcome.Script.Stages {
		record := session.Log[i]
		if record.Stage != scripted.Stage {
			return fmt.Errorf("log entry %d at stage %q, want %q", i, record.Stage, scripted.Stage)
		}
		if math.Abs(record.Evaluation.FinalScore-scripted.WantScore) > scoreTolerance {
			return fmt.Errorf("log entry %d has score %.2f, want %.2f", i, record.Evaluation.FinalScore, scripted.WantScore)
		}
	}

	return nil
}

// displayScoreStatistics shows aggregate statistics over the scripted scores.
func displayScoreStatistics(outcomes []sessionOutcome) {
	sum := 0.0
	count := 0
	maxScore := math.Inf(-1)
	minScore := math.Inf(1)

	for _, outcome := range outcomes {
		if outcome.Err != nil {
			continue
		}
		for _, stage := range outcome.Script.Stages {
			sum += stage.WantScore
			count++
			if stage.WantScore > maxScore {
				maxScore = stage.WantScore
			}
			if stage.WantScore < minScore {
				minScore = stage.WantScore
			}
		}
	}

	if count == 0 {
		return
	}

	log.Printf(`📊 Score statistics:
   Average: %.2f
   Maximum: %.2f
   Minimum: %.2f
`, sum/float64(count), maxScore, minScore)
}
