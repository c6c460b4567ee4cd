// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/simclinic/woundsim/internal/domain/procedure"
)

// EvidenceRef points at a retrieval document backing a verdict.
type EvidenceRef struct {
	DocID      string `json:"doc_id"`
	ChunkIndex *int   `json:"chunk_index,omitempty"`
	Excerpt    string `json:"excerpt,omitempty"`
}

// Verdict is one evaluator agent's judgment for a stage submission.
// Agent is an open set; "communication", "knowledge" and "clinical" are the
// usual values but the core does not constrain it. Score range is whatever
// the producing agent uses; normalization is the caller's concern.
type Verdict struct {
	Agent            string        `json:"agent"`
	Score            float64       `json:"score"`
	Confidence       float64       `json:"confidence"`
	Rationale        string        `json:"rationale"`
	SuggestedActions []string      `json:"suggested_actions,omitempty"`
	EvidenceRefs     []EvidenceRef `json:"evidence_refs,omitempty"`
}

// AggregateResult is the single merged result of all verdicts for one stage
// submission.
type AggregateResult struct {
	FinalScore    float64            `json:"final_score"`
	FinalFeedback string             `json:"final_feedback"`
	Actions       []string           `json:"actions"`
	Confidences   map[string]float64 `json:"confidences"`
}

// StageRecord is one entry in a session's append-only result log.
type StageRecord struct {
	Stage      procedure.Stage `json:"stage"`
	Evaluation AggregateResult `json:"evaluation"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Session is one trainee's run through one scenario.
type Session struct {
	ID         string          `json:"session_id"`
	ScenarioID string          `json:"scenario_id"`
	StudentID  string          `json:"student_id"`
	Stage      procedure.Stage `json:"current_stage"`
	Log        []StageRecord   `json:"log"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ContextChunk is one retrieval hit handed to evaluator agents.
type ContextChunk struct {
	DocID      string  `json:"doc_id"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// MCQ is one multiple-choice assessment question in a scenario.
type MCQ struct {
	Question      string   `json:"question" koanf:"question"`
	Options       []string `json:"options" koanf:"options"`
	CorrectAnswer string   `json:"correct_answer" koanf:"correct_answer"`
	Points        float64  `json:"points,omitempty" koanf:"points"`
}

// StageCriteria holds the authored evaluation criteria for one stage.
type StageCriteria struct {
	RequiredPoints []string `json:"required_points" koanf:"required_points"`
	Weight         float64  `json:"weight" koanf:"weight"`
}

// Scenario is the authored content one session runs against.
type Scenario struct {
	ID                 string                   `json:"scenario_id" koanf:"scenario_id"`
	Title              string                   `json:"scenario_title" koanf:"scenario_title"`
	PatientHistory     string                   `json:"patient_history" koanf:"patient_history"`
	WoundDetails       string                   `json:"wound_details" koanf:"wound_details"`
	ConversationPoints []string                 `json:"required_conversation_points" koanf:"required_conversation_points"`
	Questions          []MCQ                    `json:"assessment_questions" koanf:"assessment_questions"`
	Criteria           map[string]StageCriteria `json:"evaluation_criteria" koanf:"evaluation_criteria"`
	VectorNamespace    string                   `json:"vector_store_namespace,omitempty" koanf:"vector_store_namespace"`
	CreatedBy          string                   `json:"created_by,omitempty" koanf:"created_by"`
}

// AuditRecord is the fire-and-forget export payload emitted after a stage
// result commits.
type AuditRecord struct {
	SessionID  string
	ScenarioID string
	StudentID  string
	Stage      procedure.Stage
	Score      float64
	Agents     int
	Completed  bool
	RecordedAt time.Time
}
