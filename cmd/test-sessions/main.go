package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/simclinic/woundsim/internal/testsessions"
)

// Default configuration constants.
const (
	defaultNumSessions = 100
	defaultScenario    = "scn_demo_forearm"
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numSessions = flag.Int("sessions", defaultNumSessions, "Number of sessions to run end to end")
		scenarioID  = flag.String("scenario", defaultScenario, "Scenario every session runs against")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile     = flag.String("log", "", "Log file for test output (default: session_test_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testsessions.ShowHelp()
		return
	}

	// Setup logging
	if err := testsessions.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &testsessions.Config{
		BaseURL:     *baseURL,
		NumSessions: *numSessions,
		ScenarioID:  *scenarioID,
		Workers:     *workers,
		Timeout:     *timeout,
		LogFile:     *logFile,
		Verbose:     *verbose,
	}

	// Run the test
	if err := testsessions.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
