package scenario

import (
	"fmt"
	"math"
	"strings"

	"github.com/simclinic/woundsim/internal/domain/model"
)

// weightTolerance allows small floating point drift when criteria weights
// are expected to sum to 1.0.
const weightTolerance = 0.01

// Validate checks an authored scenario for structural problems. It collects
// every violation and reports them in one error so authors fix a file in a
// single pass.
func Validate(s model.Scenario) error {
	var errs []string

	if strings.TrimSpace(s.ID) == "" {
		errs = append(errs, "scenario_id cannot be empty")
	}
	if strings.TrimSpace(s.Title) == "" {
		errs = append(errs, "scenario_title cannot be empty")
	}
	if strings.TrimSpace(s.PatientHistory) == "" {
		errs = append(errs, "patient_history cannot be empty")
	}
	if strings.TrimSpace(s.WoundDetails) == "" {
		errs = append(errs, "wound_details cannot be empty")
	}
	if len(s.ConversationPoints) == 0 {
		errs = append(errs, "required_conversation_points cannot be empty")
	}

	if len(s.Questions) == 0 {
		errs = append(errs, "assessment_questions cannot be empty")
	}
	for i, q := range s.Questions {
		if err := validateMCQ(q); err != nil {
			errs = append(errs, fmt.Sprintf("question %d: %v", i+1, err))
		}
	}

	if len(s.Criteria) == 0 {
		errs = append(errs, "evaluation_criteria cannot be empty")
	} else {
		errs = append(errs, validateCriteria(s.Criteria)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidScenario, strings.Join(errs, "; "))
	}
	return nil
}

func validateMCQ(q model.MCQ) error {
	var errs []string

	if strings.TrimSpace(q.Question) == "" {
		errs = append(errs, "question cannot be empty")
	}
	if len(q.Options) < 2 {
		errs = append(errs, "must have at least 2 options")
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			errs = append(errs, fmt.Sprintf("option %d is empty", i+1))
		}
	}
	if strings.TrimSpace(q.CorrectAnswer) == "" {
		errs = append(errs, "correct_answer cannot be empty")
	}
	if q.Points < 0 {
		errs = append(errs, "points cannot be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateCriteria(criteria map[string]model.StageCriteria) []string {
	var errs []string
	totalWeight := 0.0

	for stage, sc := range criteria {
		if len(sc.RequiredPoints) == 0 {
			errs = append(errs, fmt.Sprintf("criteria for %q: required_points cannot be empty", stage))
		}
		if sc.Weight < 0 || sc.Weight > 1 {
			errs = append(errs, fmt.Sprintf("criteria for %q: weight must be between 0 and 1", stage))
			continue
		}
		totalWeight += sc.Weight
	}

	// Weights are optional, but once any are given they must sum to 1.0.
	if totalWeight > 0 && math.Abs(totalWeight-1.0) > weightTolerance {
		errs = append(errs, fmt.Sprintf("criteria weights should sum to 1.0, got %.2f", totalWeight))
	}
	return errs
}
