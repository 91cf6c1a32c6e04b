package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	service "github.com/lernado/sage/internal/app"
	"github.com/lernado/sage/internal/domain/model"
	"github.com/lernado/sage/internal/llm"
	. "github.com/smartystreets/goconvey/convey"
)

const quizJSON = `{
  "questions": [
    { "type": "multiple-choice", "question": "Q1", "options": ["a", "b", "c", "d"], "answer": "a", "hint": "h1" },
    { "type": "multiple-choice", "question": "Q2", "options": ["a", "b", "c", "d"], "answer": "b", "hint": "h2" },
    { "type": "multiple-choice", "question": "Q3", "options": ["a", "b", "c", "d"], "answer": "c", "hint": "h3" },
    { "type": "short-answer", "question": "Q4", "answer": "ideal four", "hint": "h4" },
    { "type": "short-answer", "question": "Q5", "answer": "ideal five", "hint": "h5" }
  ]
}`

func enqueueAttempt(ctx context.Context, svc *service.Service, userID, conceptID string, correct bool) bool {
	return svc.Enqueue(ctx, model.InteractionEvent{
		InteractionType: model.KindQuizAttempt,
		UserID:          userID,
		Data:            model.EventData{ConceptID: conceptID, IsCorrect: &correct},
		TS:              time.Now().UTC(),
	})
}

// waitUntil polls cond until it holds or three seconds pass.
func waitUntil(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a running service with content and a learner", t, func() {
		svc := startService(t, service.WithOracleProvider(llm.NewMock(quizJSON)))
		ctx := context.Background()

		_, err := svc.CreateProfile(ctx, "user-1")
		So(err, ShouldBeNil)

		So(svc.PutContent(ctx, &model.ContentNode{
			ID:       "node-math",
			Metadata: map[string]any{"conceptId": "math"},
		}), ShouldBeNil)
		So(svc.PutContent(ctx, &model.ContentNode{
			ID:       "node-reading",
			Metadata: map[string]any{"conceptId": "reading"},
		}), ShouldBeNil)

		Convey("When quiz attempts flow through the queue", func() {
			// reading: enough correct answers to reach mastery.
			for i := 0; i < 15; i++ {
				So(enqueueAttempt(ctx, svc, "user-1", "reading", true), ShouldBeTrue)
			}
			// math: a miss keeps it weak.
			So(enqueueAttempt(ctx, svc, "user-1", "math", false), ShouldBeTrue)

			Convey("Then the weakest concept drives the recommendation", func() {
				So(waitUntil(func() bool {
					node, err := svc.Recommend(ctx, "user-1")
					return err == nil && node != nil && node.ID == "node-math"
				}), ShouldBeTrue)
			})

			Convey("And the report reflects strengths, weaknesses and activity", func() {
				// Wait until all 16 updates landed.
				So(waitUntil(func() bool {
					node, err := svc.Recommend(ctx, "user-1")
					return err == nil && node != nil && node.ID == "node-math"
				}), ShouldBeTrue)

				svc.TriggerReport("user-1", "detailed")

				var report *model.Report
				So(waitUntil(func() bool {
					r, err := svc.LatestReport(ctx, "user-1")
					if err != nil {
						return false
					}
					report = r
					return true
				}), ShouldBeTrue)

				So(report.Weaknesses, ShouldContain, "math")
				So(report.ActivityCount, ShouldBeGreaterThanOrEqualTo, 1)
				So(report.Summary, ShouldEqual,
					fmt.Sprintf("You completed %d activities this week. Great job!", report.ActivityCount))
				So(report.Concepts, ShouldNotBeEmpty)
			})
		})

		Convey("When generating and evaluating a quiz", func() {
			q, err := svc.GenerateQuiz(ctx, "A sufficiently long source text about mathematics and its many wonders, easily over fifty characters.")
			So(err, ShouldBeNil)
			So(q.Questions, ShouldHaveLength, 5)

			// Mock oracle keeps answering with the quiz JSON; only the
			// multiple-choice questions grade deterministically here.
			eval, err := svc.EvaluateQuiz(ctx, q.Questions[:3], []string{"A", "b ", "wrong"})
			So(err, ShouldBeNil)
			So(eval.Score, ShouldAlmostEqual, 2.0/3.0)
			So(eval.Results[2].IsCorrect, ShouldBeFalse)
		})

		Convey("When an unknown user asks for a recommendation", func() {
			_, err := svc.Recommend(ctx, "ghost")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestServiceIntegration_MasteredLearner(t *testing.T) {
	Convey("Given a learner who mastered every observed concept", t, func() {
		svc := startService(t)
		ctx := context.Background()

		_, err := svc.CreateProfile(ctx, "user-1")
		So(err, ShouldBeNil)

		Convey("Then the recommendation is empty once mastery crosses the bar", func() {
			// First the concept shows up weak (no content registered,
			// so the selector reports the gap)...
			So(enqueueAttempt(ctx, svc, "user-1", "math", true), ShouldBeTrue)
			So(waitUntil(func() bool {
				_, err := svc.Recommend(ctx, "user-1")
				return err != nil
			}), ShouldBeTrue)

			// ...then repeated correct answers push it past the bar.
			for i := 0; i < 19; i++ {
				So(enqueueAttempt(ctx, svc, "user-1", "math", true), ShouldBeTrue)
			}
			So(waitUntil(func() bool {
				node, err := svc.Recommend(ctx, "user-1")
				return err == nil && node == nil
			}), ShouldBeTrue)
		})
	})
}
