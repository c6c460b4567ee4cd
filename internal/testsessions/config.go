// Package testsessions drives full training sessions against a running
// service instance and verifies the resulting state.
package testsessions

import (
	"time"

	"github.com/simclinic/woundsim/internal/domain/model"
	"github.com/simclinic/woundsim/internal/domain/procedure"
)

// Config holds configuration for the session exercise run.
type Config struct {
	BaseURL     string        // Base URL of the service
	NumSessions int           // Number of sessions to run end to end
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	ScenarioID  string        // Scenario every session runs against
	LogFile     string        // Log file for run output
	Verbose     bool          // Enable verbose logging
}

// StageScript is one pre-planned stage submission.
type StageScript struct {
	Stage        procedure.Stage
	SubmissionID string
	Action       string
	Transcript   string
	Verdicts     []model.Verdict
	WantScore    float64 // expected aggregate score for the scripted verdicts
}

// SessionScript is one pre-planned end-to-end session.
type SessionScript struct {
	StudentID string
	Stages    []StageScript
}

// Stats holds run statistics.
type Stats struct {
	SessionsStarted   int
	SessionsCompleted int
	SessionsVerified  int
	StagesSubmitted   int
	StagesFailed      int
	Duplicates        int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
