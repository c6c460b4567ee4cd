package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/simclinic/woundsim/internal/app"
	"github.com/simclinic/woundsim/internal/domain/model"
	"github.com/simclinic/woundsim/internal/domain/procedure"
	"github.com/simclinic/woundsim/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// fastOptions keeps simulated retrieval latency negligible in tests.
func fastOptions(extra ...app.Option) []app.Option {
	opts := []app.Option{
		app.WithRetrievalLatencyRange(time.Millisecond, 2*time.Millisecond),
		app.WithAuditWorkerCount(1),
	}
	return append(opts, extra...)
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := app.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := app.New(
			app.WithShardCount(4),
			app.WithDedupeSize(1_000),
			app.WithRetrievalTopK(3),
			app.WithAuditQueueCapacity(100),
			app.WithAuditWorkerCount(1),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := app.New(fastOptions()...)
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)

				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["scenarios"], ShouldEqual, 1)
			})

			Convey("And starting again should be a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And stopping should mark it stopped", func() {
				svc.Stop()
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_StartSession(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := app.New(fastOptions()...)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When starting a session for the demo scenario", func() {
			sess, err := svc.StartSession(ctx, "scn_demo_forearm", "student_1")

			Convey("Then the session should begin at the history stage", func() {
				So(err, ShouldBeNil)
				So(sess.ID, ShouldStartWith, "sess_")
				So(sess.Stage, ShouldEqual, procedure.History)
				So(sess.Log, ShouldBeEmpty)
			})

			Convey("And it should be retrievable", func() {
				got, ok := svc.GetSession(ctx, sess.ID)
				So(ok, ShouldBeTrue)
				So(got.ID, ShouldEqual, sess.ID)
			})
		})

		Convey("When the scenario is unknown", func() {
			_, err := svc.StartSession(ctx, "scn_missing", "student_1")

			Convey("Then the request should fail with not-found", func() {
				So(err, ShouldNotBeNil)
				So(app.IsNotFound(err), ShouldBeTrue)
			})
		})
	})
}

func TestService_SubmitStage(t *testing.T) {
	Convey("Given a started service with a fresh session", t, func() {
		svc := app.New(fastOptions()...)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		sess, err := svc.StartSession(ctx, "scn_demo_forearm", "student_1")
		So(err, ShouldBeNil)

		verdicts := []model.Verdict{
			{Agent: "communication", Score: 70, Confidence: 0.8, Rationale: "clear questions"},
			{Agent: "clinical", Score: 90, Confidence: 0.9, Rationale: "good technique"},
		}

		Convey("When submitting a verdict batch without an action", func() {
			res, err := svc.SubmitStage(ctx, app.SubmitRequest{
				SessionID: sess.ID,
				Verdicts:  verdicts,
			})

			Convey("Then the result should be committed and the stage advanced", func() {
				So(err, ShouldBeNil)
				So(res.Stage, ShouldEqual, procedure.History)
				So(res.Evaluation.FinalScore, ShouldEqual, 80.0)
				So(res.NextStage, ShouldNotBeNil)
				So(*res.NextStage, ShouldEqual, procedure.Assessment)

				got, ok := svc.GetSession(ctx, sess.ID)
				So(ok, ShouldBeTrue)
				So(got.Stage, ShouldEqual, procedure.Assessment)
				So(got.Log, ShouldHaveLength, 1)
			})
		})

		Convey("When submitting with a legal action for the current stage", func() {
			res, err := svc.SubmitStage(ctx, app.SubmitRequest{
				SessionID: sess.ID,
				Action:    "voice_transcript",
				Verdicts:  verdicts,
			})

			So(err, ShouldBeNil)
			So(res.Stage, ShouldEqual, procedure.History)
		})

		Convey("When submitting an action that is illegal at the current stage", func() {
			_, err := svc.SubmitStage(ctx, app.SubmitRequest{
				SessionID: sess.ID,
				Action:    "action_dress",
				Verdicts:  verdicts,
			})

			Convey("Then the submission should be rejected before any commit", func() {
				So(err, ShouldWrap, app.ErrActionNotAllowed)

				got, ok := svc.GetSession(ctx, sess.ID)
				So(ok, ShouldBeTrue)
				So(got.Stage, ShouldEqual, procedure.History)
				So(got.Log, ShouldBeEmpty)
			})
		})

		Convey("When the verdict batch is malformed", func() {
			_, err := svc.SubmitStage(ctx, app.SubmitRequest{
				SessionID: sess.ID,
				Verdicts: []model.Verdict{
					{Agent: "", Score: 50, Confidence: 0.5},
				},
			})

			Convey("Then the whole batch should be rejected without commit", func() {
				So(app.IsSchemaViolation(err), ShouldBeTrue)

				got, ok := svc.GetSession(ctx, sess.ID)
				So(ok, ShouldBeTrue)
				So(got.Log, ShouldBeEmpty)
			})
		})

		Convey("When the session does not exist", func() {
			_, err := svc.SubmitStage(ctx, app.SubmitRequest{
				SessionID: "sess_missing",
				Verdicts:  verdicts,
			})

			So(app.IsNotFound(err), ShouldBeTrue)
		})

		Convey("When the batch is empty", func() {
			res, err := svc.SubmitStage(ctx, app.SubmitRequest{
				SessionID: sess.ID,
				Verdicts:  nil,
			})

			Convey("Then the neutral evaluation should still commit", func() {
				So(err, ShouldBeNil)
				So(res.Evaluation.FinalScore, ShouldEqual, 0.0)
				So(res.Evaluation.FinalFeedback, ShouldEqual, "No evaluations provided")

				got, ok := svc.GetSession(ctx, sess.ID)
				So(ok, ShouldBeTrue)
				So(got.Log, ShouldHaveLength, 1)
				So(got.Stage, ShouldEqual, procedure.Assessment)
			})
		})

		Convey("When a transcript is supplied", func() {
			res, err := svc.SubmitStage(ctx, app.SubmitRequest{
				SessionID:  sess.ID,
				Transcript: "patient reports aching pain",
				Verdicts:   verdicts,
			})

			Convey("Then retrieval context should be attached", func() {
				So(err, ShouldBeNil)
				So(res.Context, ShouldNotBeEmpty)
			})
		})

		Convey("When no transcript is supplied", func() {
			res, err := svc.SubmitStage(ctx, app.SubmitRequest{
				SessionID: sess.ID,
				Verdicts:  verdicts,
			})

			Convey("Then the context should be empty", func() {
				So(err, ShouldBeNil)
				So(res.Context, ShouldBeEmpty)
			})
		})

		Convey("When the submission context is already cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := svc.SubmitStage(cancelled, app.SubmitRequest{
				SessionID:  sess.ID,
				Transcript: "patient reports pain",
				Verdicts:   verdicts,
			})

			Convey("Then nothing should be committed", func() {
				So(err, ShouldNotBeNil)

				got, ok := svc.GetSession(ctx, sess.ID)
				So(ok, ShouldBeTrue)
				So(got.Log, ShouldBeEmpty)
				So(got.Stage, ShouldEqual, procedure.History)
			})
		})
	})
}

func TestService_RetrievalDegradation(t *testing.T) {
	Convey("Given a service whose retriever always fails", t, func() {
		svc := app.New(fastOptions(app.WithRetrievalFailureRate(1.0))...)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		sess, err := svc.StartSession(ctx, "scn_demo_forearm", "student_1")
		So(err, ShouldBeNil)

		Convey("When submitting with a transcript", func() {
			res, err := svc.SubmitStage(ctx, app.SubmitRequest{
				SessionID:  sess.ID,
				Transcript: "patient reports pain",
				Verdicts: []model.Verdict{
					{Agent: "clinical", Score: 85, Confidence: 0.9, Rationale: "ok"},
				},
			})

			Convey("Then the failure should degrade to empty context and still commit", func() {
				So(err, ShouldBeNil)
				So(res.Context, ShouldBeEmpty)
				So(res.Evaluation.FinalScore, ShouldEqual, 85.0)

				got, ok := svc.GetSession(ctx, sess.ID)
				So(ok, ShouldBeTrue)
				So(got.Log, ShouldHaveLength, 1)
			})
		})
	})
}

func TestService_Idempotency(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := app.New(fastOptions()...)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When recording a submission id twice", func() {
			first := svc.SeenAndRecord(ctx, "sub_1")
			second := svc.SeenAndRecord(ctx, "sub_1")

			Convey("Then only the second should read as seen", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(svc.Size(), ShouldEqual, 1)
			})
		})

		Convey("When unrecording after a downstream failure", func() {
			So(svc.SeenAndRecord(ctx, "sub_2"), ShouldBeFalse)
			svc.Unrecord(ctx, "sub_2")

			Convey("Then the id should be retryable", func() {
				So(svc.SeenAndRecord(ctx, "sub_2"), ShouldBeFalse)
			})
		})
	})
}

func TestService_WeightedAggregation(t *testing.T) {
	Convey("Given a service configured with agent weights", t, func() {
		svc := app.New(fastOptions(
			app.WithAgentWeights(map[string]float64{"clinical": 2.0}, 1.0),
		)...)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		sess, err := svc.StartSession(ctx, "scn_demo_forearm", "student_1")
		So(err, ShouldBeNil)

		Convey("When submitting verdicts from weighted and unweighted agents", func() {
			res, err := svc.SubmitStage(ctx, app.SubmitRequest{
				SessionID: sess.ID,
				Verdicts: []model.Verdict{
					{Agent: "clinical", Score: 90, Confidence: 0.9},
					{Agent: "communication", Score: 60, Confidence: 0.6},
				},
			})

			Convey("Then the weighted mean should apply", func() {
				So(err, ShouldBeNil)
				So(res.Evaluation.FinalScore, ShouldEqual, 80.0)
			})
		})
	})
}
