package testsessions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/simclinic/woundsim/internal/domain/model"
	"github.com/simclinic/woundsim/internal/domain/procedure"
)

// HTTPClient wraps http.Client with a timeout and JSON helpers.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// decodeInto reads, closes and unmarshals a response body.
func decodeInto(resp *http.Response, v any) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// Wire shapes for the endpoints the runner exercises.

type startSessionRequest struct {
	ScenarioID string `json:"scenario_id"`
	StudentID  string `json:"student_id"`
}

type startSessionResponse struct {
	SessionID    string          `json:"session_id"`
	CurrentStage procedure.Stage `json:"current_stage"`
}

type stageRequest struct {
	SubmissionID string          `json:"submission_id,omitempty"`
	Action       string          `json:"action,omitempty"`
	Transcript   string          `json:"transcript,omitempty"`
	Verdicts     []model.Verdict `json:"verdicts"`
}

type stageResponse struct {
	SessionID  string                `json:"session_id"`
	Stage      procedure.Stage       `json:"stage"`
	Evaluation model.AggregateResult `json:"evaluation"`
	NextStage  *procedure.Stage      `json:"next_stage,omitempty"`
	Duplicate  bool                  `json:"duplicate"`
}

// startSession creates one session and returns its id.
func startSession(ctx context.Context, client *HTTPClient, baseURL string, scenarioID, studentID string) (string, error) {
	resp, err := client.Post(ctx, baseURL+"/sessions", startSessionRequest{
		ScenarioID: scenarioID,
		StudentID:  studentID,
	})
	if err != nil {
		return "", fmt.Errorf("start session request failed: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		_ = resp.Body.Close()
		return "", fmt.Errorf("start session returned status %d", resp.StatusCode)
	}

	var out startSessionResponse
	if err := decodeInto(resp, &out); err != nil {
		return "", err
	}
	if out.CurrentStage != procedure.History {
		return "", fmt.Errorf("new session at stage %q, want %q", out.CurrentStage, procedure.History)
	}
	return out.SessionID, nil
}

// submitStage submits one scripted stage and returns the parsed response.
func submitStage(ctx context.Context, client *HTTPClient, baseURL, sessionID string, script StageScript) (stageResponse, error) {
	resp, err := client.Post(ctx, baseURL+"/sessions/"+sessionID+"/stage", stageRequest{
		SubmissionID: script.SubmissionID,
		Action:       script.Action,
		Transcript:   script.Transcript,
		Verdicts:     script.Verdicts,
	})
	if err != nil {
		return stageResponse{}, fmt.Errorf("stage submission failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return stageResponse{}, fmt.Errorf("stage submission returned status %d", resp.StatusCode)
	}

	var out stageResponse
	if err := decodeInto(resp, &out); err != nil {
		return stageResponse{}, err
	}
	return out, nil
}

// fetchSession retrieves a session for verification.
func fetchSession(ctx context.Context, client *HTTPClient, baseURL, sessionID string) (model.Session, error) {
	resp, err := client.Get(ctx, baseURL+"/sessions/"+sessionID)
	if err != nil {
		return model.Session{}, fmt.Errorf("get session failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return model.Session{}, fmt.Errorf("get session returned status %d", resp.StatusCode)
	}

	var out model.Session
	if err := decodeInto(resp, &out); err != nil {
		return model.Session{}, err
	}
	return out, nil
}
