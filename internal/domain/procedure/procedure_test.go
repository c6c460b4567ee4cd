package procedure_test

import (
	"sort"
	"testing"

	"github.com/simclinic/woundsim/internal/domain/procedure"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStageOrdering(t *testing.T) {
	Convey("Given the procedure stages", t, func() {
		Convey("When listing all stages", func() {
			stages := procedure.Stages()

			Convey("Then they should be in procedure order", func() {
				So(stages, ShouldResemble, []procedure.Stage{
					procedure.History,
					procedure.Assessment,
					procedure.Cleaning,
					procedure.Dressing,
					procedure.Completed,
				})
			})
		})

		Convey("When asking for the initial stage", func() {
			So(procedure.Initial(), ShouldEqual, procedure.History)
		})

		Convey("When walking the successor chain from the initial stage", func() {
			stage := procedure.Initial()
			visited := []procedure.Stage{stage}

			for !stage.Terminal() {
				next, err := procedure.Next(stage)
				So(err, ShouldBeNil)
				visited = append(visited, next)
				stage = next
			}

			Convey("Then it should visit every stage exactly once and end terminal", func() {
				So(visited, ShouldResemble, procedure.Stages())
				So(stage, ShouldEqual, procedure.Completed)
			})
		})

		Convey("When advancing past the terminal stage", func() {
			next, err := procedure.Next(procedure.Completed)

			Convey("Then it should fail with an invalid transition", func() {
				So(err, ShouldEqual, procedure.ErrInvalidTransition)
				So(next, ShouldEqual, procedure.Stage(""))
			})
		})

		Convey("When advancing an unknown stage", func() {
			_, err := procedure.Next(procedure.Stage("triage"))

			Convey("Then it should fail with an invalid transition", func() {
				So(err, ShouldEqual, procedure.ErrInvalidTransition)
			})
		})
	})
}

func TestStageValidity(t *testing.T) {
	Convey("Given stage values", t, func() {
		Convey("When checking known stages", func() {
			for _, stage := range procedure.Stages() {
				So(stage.Valid(), ShouldBeTrue)
			}
		})

		Convey("When checking unknown values", func() {
			So(procedure.Stage("").Valid(), ShouldBeFalse)
			So(procedure.Stage("triage").Valid(), ShouldBeFalse)
			So(procedure.Stage("History").Valid(), ShouldBeFalse)
		})

		Convey("When checking terminality", func() {
			So(procedure.Completed.Terminal(), ShouldBeTrue)
			So(procedure.History.Terminal(), ShouldBeFalse)
			So(procedure.Dressing.Terminal(), ShouldBeFalse)
		})
	})
}

func TestActionVocabulary(t *testing.T) {
	Convey("Given the per-stage action vocabulary", t, func() {
		Convey("When checking legal actions at their own stage", func() {
			So(procedure.IsActionAllowed(procedure.History, "voice_transcript"), ShouldBeTrue)
			So(procedure.IsActionAllowed(procedure.History, "question_asked"), ShouldBeTrue)
			So(procedure.IsActionAllowed(procedure.Assessment, "mcq_answer"), ShouldBeTrue)
			So(procedure.IsActionAllowed(procedure.Assessment, "visual_assessment"), ShouldBeTrue)
			So(procedure.IsActionAllowed(procedure.Cleaning, "action_handwash"), ShouldBeTrue)
			So(procedure.IsActionAllowed(procedure.Cleaning, "action_clean"), ShouldBeTrue)
			So(procedure.IsActionAllowed(procedure.Cleaning, "pick_material"), ShouldBeTrue)
			So(procedure.IsActionAllowed(procedure.Dressing, "action_dress"), ShouldBeTrue)
			So(procedure.IsActionAllowed(procedure.Dressing, "action_secure_dressing"), ShouldBeTrue)
		})

		Convey("When checking legal actions at the wrong stage", func() {
			So(procedure.IsActionAllowed(procedure.History, "action_dress"), ShouldBeFalse)
			So(procedure.IsActionAllowed(procedure.Dressing, "voice_transcript"), ShouldBeFalse)
			So(procedure.IsActionAllowed(procedure.Cleaning, "mcq_answer"), ShouldBeFalse)
		})

		Convey("When checking the terminal stage", func() {
			Convey("Then no action is legal", func() {
				So(procedure.IsActionAllowed(procedure.Completed, "voice_transcript"), ShouldBeFalse)
				So(procedure.IsActionAllowed(procedure.Completed, "action_dress"), ShouldBeFalse)
				So(procedure.Actions(procedure.Completed), ShouldBeEmpty)
			})
		})

		Convey("When checking unknown actions or stages", func() {
			So(procedure.IsActionAllowed(procedure.History, "unknown_action"), ShouldBeFalse)
			So(procedure.IsActionAllowed(procedure.History, ""), ShouldBeFalse)
			So(procedure.IsActionAllowed(procedure.Stage("triage"), "voice_transcript"), ShouldBeFalse)
		})

		Convey("When listing actions for a stage", func() {
			actions := procedure.Actions(procedure.Cleaning)
			sort.Strings(actions)

			Convey("Then the copy should cover the vocabulary", func() {
				So(actions, ShouldResemble, []string{"action_clean", "action_handwash", "pick_material"})
			})

			Convey("And mutating the copy should not affect the vocabulary", func() {
				actions[0] = "mutated"
				So(procedure.IsActionAllowed(procedure.Cleaning, "action_clean"), ShouldBeTrue)
				So(procedure.IsActionAllowed(procedure.Cleaning, "mutated"), ShouldBeFalse)
			})
		})
	})
}
