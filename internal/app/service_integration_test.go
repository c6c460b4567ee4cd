package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/simclinic/woundsim/internal/app"
	"github.com/simclinic/woundsim/internal/domain/model"
	"github.com/simclinic/woundsim/internal/domain/procedure"
	. "github.com/smartystreets/goconvey/convey"
)

func TestService_FullProcedure(t *testing.T) {
	Convey("Given a started service with a fresh session", t, func() {
		svc := app.New(fastOptions()...)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		sess, err := svc.StartSession(ctx, "scn_demo_forearm", "student_1")
		So(err, ShouldBeNil)

		submissions := []struct {
			stage  procedure.Stage
			action string
			score  float64
		}{
			{procedure.History, "question_asked", 70},
			{procedure.Assessment, "mcq_answer", 80},
			{procedure.Cleaning, "action_clean", 90},
			{procedure.Dressing, "action_secure_dressing", 85},
		}

		Convey("When driving the session through all four stages", func() {
			for _, sub := range submissions {
				res, err := svc.SubmitStage(ctx, app.SubmitRequest{
					SessionID: sess.ID,
					Action:    sub.action,
					Verdicts: []model.Verdict{
						{Agent: "clinical", Score: sub.score, Confidence: 0.9, Rationale: "checked"},
					},
				})
				So(err, ShouldBeNil)
				So(res.Stage, ShouldEqual, sub.stage)
				So(res.Evaluation.FinalScore, ShouldEqual, sub.score)
			}

			Convey("Then the session should be completed with four records in stage order", func() {
				got, ok := svc.GetSession(ctx, sess.ID)
				So(ok, ShouldBeTrue)
				So(got.Stage, ShouldEqual, procedure.Completed)
				So(got.Log, ShouldHaveLength, 4)
				for i, sub := range submissions {
					So(got.Log[i].Stage, ShouldEqual, sub.stage)
					So(got.Log[i].Evaluation.FinalScore, ShouldEqual, sub.score)
				}
			})

			Convey("And a fifth submission should append without advancing", func() {
				res, err := svc.SubmitStage(ctx, app.SubmitRequest{
					SessionID: sess.ID,
					Verdicts: []model.Verdict{
						{Agent: "clinical", Score: 60, Confidence: 0.9, Rationale: "late review"},
					},
				})

				So(err, ShouldBeNil)
				So(res.Stage, ShouldEqual, procedure.Completed)
				So(res.NextStage, ShouldBeNil)

				got, ok := svc.GetSession(ctx, sess.ID)
				So(ok, ShouldBeTrue)
				So(got.Stage, ShouldEqual, procedure.Completed)
				So(got.Log, ShouldHaveLength, 5)
				So(got.Log[4].Stage, ShouldEqual, procedure.Completed)
			})

			Convey("And actions are rejected once the session is completed", func() {
				_, err := svc.SubmitStage(ctx, app.SubmitRequest{
					SessionID: sess.ID,
					Action:    "action_dress",
					Verdicts:  []model.Verdict{{Agent: "clinical", Score: 60, Confidence: 0.9}},
				})

				So(err, ShouldWrap, app.ErrActionNotAllowed)
			})
		})
	})
}

func TestService_ConcurrentSubmissions(t *testing.T) {
	Convey("Given a started service with one session under concurrent load", t, func() {
		svc := app.New(fastOptions()...)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		sess, err := svc.StartSession(ctx, "scn_demo_forearm", "student_1")
		So(err, ShouldBeNil)

		Convey("When many goroutines submit results concurrently", func() {
			const numGoroutines = 16
			var wg sync.WaitGroup
			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func(n int) {
					defer wg.Done()
					_, err := svc.SubmitStage(ctx, app.SubmitRequest{
						SessionID: sess.ID,
						Verdicts: []model.Verdict{
							{Agent: "clinical", Score: 50, Confidence: 0.5, Rationale: fmt.Sprintf("run %d", n)},
						},
					})
					if err != nil {
						t.Error(err)
					}
				}(i)
			}
			wg.Wait()

			Convey("Then no log entry should be lost or duplicated", func() {
				got, ok := svc.GetSession(ctx, sess.ID)
				So(ok, ShouldBeTrue)
				So(got.Log, ShouldHaveLength, numGoroutines)
				So(got.Stage, ShouldEqual, procedure.Completed)

				seen := make(map[string]int)
				for _, rec := range got.Log {
					seen[rec.Evaluation.FinalFeedback]++
				}
				So(seen, ShouldHaveLength, numGoroutines)
				for _, n := range seen {
					So(n, ShouldEqual, 1)
				}
			})
		})

		Convey("When several sessions run concurrently end to end", func() {
			const numSessions = 8
			var wg sync.WaitGroup
			ids := make(chan string, numSessions)

			for i := 0; i < numSessions; i++ {
				wg.Add(1)
				go func(n int) {
					defer wg.Done()
					s, err := svc.StartSession(ctx, "scn_demo_forearm", fmt.Sprintf("student_%d", n))
					if err != nil {
						t.Error(err)
						return
					}
					for j := 0; j < 4; j++ {
						if _, err := svc.SubmitStage(ctx, app.SubmitRequest{
							SessionID: s.ID,
							Verdicts: []model.Verdict{
								{Agent: "clinical", Score: 75, Confidence: 0.8},
							},
						}); err != nil {
							t.Error(err)
							return
						}
					}
					ids <- s.ID
				}(i)
			}
			wg.Wait()
			close(ids)

			Convey("Then each session should complete independently", func() {
				count := 0
				for id := range ids {
					got, ok := svc.GetSession(ctx, id)
					So(ok, ShouldBeTrue)
					So(got.Stage, ShouldEqual, procedure.Completed)
					So(got.Log, ShouldHaveLength, 4)
					count++
				}
				So(count, ShouldEqual, numSessions)
			})
		})
	})
}
