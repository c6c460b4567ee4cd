package testsessions

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/simclinic/woundsim/pkg/logger"
)

const (
	randomSeed           = 7
	statusOK             = 200
	percentageMultiplier = 100.0
)

// sessionOutcome tracks one driven session for the verification pass.
type sessionOutcome struct {
	SessionID string
	Script    SessionScript
	Err       error
}

// Run executes the complete session test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting woundsim session test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("sessions", config.NumSessions),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("scenario", config.ScenarioID),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate session scripts
	rng := rand.New(rand.NewSource(randomSeed))
	scripts := generateScripts(ctx, config, rng)
	logger.Get().Info(ctx, "session scripts generated", logger.Int("count", len(scripts)))

	// Step 3: Drive sessions concurrently
	outcomes, err := driveSessions(ctx, config, scripts, stats)
	if err != nil {
		return fmt.Errorf("session driving failed: %w", err)
	}

	// Step 4: Verify results
	if err := verifyResults(ctx, config, outcomes, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Any 200 counts as healthy; the endpoint serves Prometheus metrics.
	if resp.StatusCode != statusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// driveSessions runs each scripted session through all four stages using a
// worker pool. Stages within a session are sequential; sessions run
// concurrently.
func driveSessions(ctx context.Context, config *Config, scripts []SessionScript, stats *Stats) ([]sessionOutcome, error) {
	client := newHTTPClient(config.Timeout)

	var (
		started    int64
		completed  int64
		submitted  int64
		failed     int64
		duplicates int64
	)

	scriptChan := make(chan SessionScript, config.Workers*2)
	outcomes := make([]sessionOutcome, 0, len(scripts))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for script := range scriptChan {
				select {
				case <-ctx.Done():
					return
				default:
					outcome := driveSingleSession(ctx, client, config, script,
						&started, &completed, &submitted, &failed, &duplicates)

					mu.Lock()
					outcomes = append(outcomes, outcome)
					mu.Unlock()
				}
			}
		}()
	}

	go func() {
		defer close(scriptChan)
		for _, script := range scripts {
			select {
			case <-ctx.Done():
				return
			case scriptChan <- script:
			}
		}
	}()

	wg.Wait()

	stats.SessionsStarted = int(atomic.LoadInt64(&started))
	stats.SessionsCompleted = int(atomic.LoadInt64(&completed))
	stats.StagesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.StagesFailed = int(atomic.LoadInt64(&failed))
	stats.Duplicates = int(atomic.LoadInt64(&duplicates))

	logger.Get().Info(ctx, "session driving completed",
		logger.Int("sessionsStarted", stats.SessionsStarted),
		logger.Int("sessionsCompleted", stats.SessionsCompleted),
		logger.Int("stagesSubmitted", stats.StagesSubmitted),
		logger.Int("stagesFailed", stats.StagesFailed))

	return outcomes, nil
}

// driveSingleSession starts a session and walks it through its scripted
// stages in order.
func driveSingleSession(ctx context.Context, client *HTTPClient, config *Config, script SessionScript,
	started, completed, submitted, failed, duplicates *int64) sessionOutcome {
	sessionID, err := startSession(ctx, client, config.BaseURL, config.ScenarioID, script.StudentID)
	if err != nil {
		atomic.AddInt64(failed, 1)
		return sessionOutcome{Script: script, Err: err}
	}
	atomic.AddInt64(started, 1)

	for _, stage := range script.Stages {
		resp, err := submitStage(ctx, client, config.BaseURL, sessionID, stage)
		if err != nil {
			atomic.AddInt64(failed, 1)
			return sessionOutcome{SessionID: sessionID, Script: script, Err: err}
		}
		atomic.AddInt64(submitted, 1)
		if resp.Duplicate {
			atomic.AddInt64(duplicates, 1)
		}

		if config.Verbose {
			logger.Get().Info(ctx, "stage submitted",
				logger.String("sessionID", sessionID),
				logger.String("stage", string(stage.Stage)),
				logger.Float64("score", resp.Evaluation.FinalScore))
		}
	}

	atomic.AddInt64(completed, 1)
	return sessionOutcome{SessionID: sessionID, Script: script}
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var successRate, stagesPerSecond float64

	if stats.SessionsStarted > 0 {
		successRate = float64(stats.SessionsCompleted) / float64(stats.SessionsStarted) * percentageMultiplier
	}

	if stats.Duration > 0 {
		stagesPerSecond = float64(stats.StagesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("sessionsStarted", stats.SessionsStarted),
		logger.Int("sessionsCompleted", stats.SessionsCompleted),
		logger.Int("stagesSubmitted", stats.StagesSubmitted),
		logger.Int("stagesFailed", stats.StagesFailed),
		logger.Int("duplicates", stats.Duplicates),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("stagesPerSecond", stagesPerSecond))
}
