package testsessions

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/simclinic/woundsim/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "session_test_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the session test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Woundsim Session Test Tool
==========================

A concurrent tool for exercising the wound-care training service end to end.

Usage:
  go run cmd/test-sessions/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -sessions int
        Number of sessions to run end to end (default 100)
  -scenario string
        Scenario every session runs against (default "scn_demo_forearm")
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Log file for test output (default: session_test_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/test-sessions/main.go

  # Test with custom parameters
  go run cmd/test-sessions/main.go -sessions 500 -workers 16 -url http://localhost:8080

  # Test with verbose output
  go run cmd/test-sessions/main.go -verbose -sessions 50

  # Test with custom log file
  go run cmd/test-sessions/main.go -sessions 500 -log my_run.log
`)
}
