package testsessions

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/simclinic/woundsim/internal/domain/model"
	"github.com/simclinic/woundsim/internal/domain/procedure"
	"github.com/simclinic/woundsim/pkg/logger"
)

// Score generation ranges per agent archetype.
const (
	baseScoreMin   = 50.0
	baseScoreRange = 45.0
	confidenceMin  = 0.6
	confidenceVar  = 0.4
)

// agents mirrors the evaluator set the surrounding system ships with.
var agents = []string{"communication", "knowledge", "clinical"}

// firstActionFor picks a deterministic legal action for a stage.
func firstActionFor(stage procedure.Stage) string {
	switch stage {
	case procedure.History:
		return "voice_transcript"
	case procedure.Assessment:
		return "visual_assessment"
	case procedure.Cleaning:
		return "action_handwash"
	case procedure.Dressing:
		return "action_dress"
	default:
		return ""
	}
}

// generateScripts builds NumSessions pre-planned sessions with deterministic
// verdicts, so the expected aggregate score is known before submission.
func generateScripts(ctx context.Context, config *Config, rng *rand.Rand) []SessionScript {
	logger.Get().Info(ctx, "generating session scripts", logger.Int("numSessions", config.NumSessions))

	scripts := make([]SessionScript, config.NumSessions)
	stages := []procedure.Stage{procedure.History, procedure.Assessment, procedure.Cleaning, procedure.Dressing}

	for i := range scripts {
		script := SessionScript{
			StudentID: "student_" + uuid.NewString(),
			Stages:    make([]StageScript, len(stages)),
		}

		for j, stage := range stages {
			verdicts := make([]model.Verdict, len(agents))
			sum := 0.0
			for k, agent := range agents {
				score := round2(baseScoreMin + rng.Float64()*baseScoreRange)
				sum += score
				verdicts[k] = model.Verdict{
					Agent:      agent,
					Score:      score,
					Confidence: round2(confidenceMin + rng.Float64()*confidenceVar),
					Rationale:  fmt.Sprintf("%s check for %s", agent, stage),
					SuggestedActions: []string{
						fmt.Sprintf("review %s guidance", stage),
					},
				}
			}

			ss := StageScript{
				Stage:        stage,
				SubmissionID: "sub_" + uuid.NewString(),
				Action:       firstActionFor(stage),
				Verdicts:     verdicts,
				WantScore:    round2(sum / float64(len(verdicts))),
			}
			if stage == procedure.History {
				ss.Transcript = "Patient reports aching pain at the incision site for two days."
			}
			script.Stages[j] = ss
		}
		scripts[i] = script
	}

	return scripts
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
