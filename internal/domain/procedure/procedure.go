// Package procedure defines the ordered stages of the wound-care procedure
// and the action vocabulary that is legal at each stage.
package procedure

// Stage is one ordered phase of the clinical procedure.
type Stage string

// Procedure stages in forward order. Completed is terminal.
const (
	History    Stage = "history"
	Assessment Stage = "assessment"
	Cleaning   Stage = "cleaning"
	Dressing   Stage = "dressing"
	Completed  Stage = "completed"
)

// Stages returns every stage in procedure order.
func Stages() []Stage {
	return []Stage{History, Assessment, Cleaning, Dressing, Completed}
}

// Initial returns the stage every new session starts at.
func Initial() Stage {
	return History
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case History, Assessment, Cleaning, Dressing, Completed:
		return true
	default:
		return false
	}
}

// Terminal reports whether s has no successor.
func (s Stage) Terminal() bool {
	return s == Completed
}

// Next returns the successor of s. It returns ErrInvalidTransition when s is
// terminal or unrecognized; there is no wraparound and no skipping.
func Next(s Stage) (Stage, error) {
	switch s {
	case History:
		return Assessment, nil
	case Assessment:
		return Cleaning, nil
	case Cleaning:
		return Dressing, nil
	case Dressing:
		return Completed, nil
	default:
		return "", ErrInvalidTransition
	}
}

// vocabulary maps each stage to its permitted action event identifiers.
// Completed intentionally maps to an empty set: nothing is legal once done.
var vocabulary = map[Stage]map[string]struct{}{
	History:    toSet("voice_transcript", "question_asked"),
	Assessment: toSet("mcq_answer", "visual_assessment"),
	Cleaning:   toSet("action_handwash", "action_clean", "pick_material"),
	Dressing:   toSet("action_dress", "action_secure_dressing"),
	Completed:  {},
}

func toSet(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// IsActionAllowed reports whether actionID is permitted at stage s.
// Unknown stages resolve to an empty vocabulary, so the answer is always a
// boolean and never an error; callers branch on it.
func IsActionAllowed(s Stage, actionID string) bool {
	allowed, ok := vocabulary[s]
	if !ok {
		return false
	}
	_, ok = allowed[actionID]
	return ok
}

// Actions returns the permitted action identifiers for stage s.
// The slice is a copy; mutating it does not affect the vocabulary.
func Actions(s Stage) []string {
	allowed := vocabulary[s]
	out := make([]string, 0, len(allowed))
	for id := range allowed {
		out = append(out, id)
	}
	return out
}
