package recommend_test

import (
	"context"
	"testing"

	"github.com/lernado/sage/internal/adapters/repository"
	"github.com/lernado/sage/internal/domain/competence"
	"github.com/lernado/sage/internal/domain/estimator"
	"github.com/lernado/sage/internal/domain/model"
	"github.com/lernado/sage/internal/domain/recommend"
	. "github.com/smartystreets/goconvey/convey"
)

func newFixture(t *testing.T) (*recommend.Selector, *repository.BadgerStore) {
	t.Helper()
	repo, err := repository.NewBadgerStore()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	est, err := estimator.New()
	if err != nil {
		t.Fatalf("new estimator: %v", err)
	}
	comp := competence.New(est, repo)
	return recommend.New(comp, repo), repo
}

func createProfile(t *testing.T, repo *repository.BadgerStore, userID string, m model.CompetenceMap) {
	t.Helper()
	if err := repo.CreateProfile(context.Background(), &model.LearnerProfile{
		ID:            "lp-" + userID,
		UserID:        userID,
		CompetenceMap: m,
	}); err != nil {
		t.Fatalf("create profile: %v", err)
	}
}

func TestSelectTarget(t *testing.T) {
	Convey("Given the selector", t, func() {
		sel, repo := newFixture(t)
		ctx := context.Background()

		Convey("When the learner has weak concepts", func() {
			createProfile(t, repo, "user-1", model.CompetenceMap{
				"math":    0.5,
				"reading": 0.95,
				"science": 0.3,
			})

			target, err := sel.SelectTarget(ctx, "user-1")

			Convey("Then the lowest-mastery concept wins", func() {
				So(err, ShouldBeNil)
				So(target, ShouldEqual, "science")
			})
		})

		Convey("When every concept is mastered", func() {
			createProfile(t, repo, "user-2", model.CompetenceMap{
				"math":    0.95,
				"reading": 0.90, // boundary: mastered
			})

			target, err := sel.SelectTarget(ctx, "user-2")

			Convey("Then no target is selected and no error raised", func() {
				So(err, ShouldBeNil)
				So(target, ShouldBeEmpty)
			})
		})

		Convey("When several concepts tie on the minimum", func() {
			createProfile(t, repo, "user-3", model.CompetenceMap{
				"zebra":  0.4,
				"apple":  0.4,
				"mango":  0.4,
				"master": 0.99,
			})

			target, err := sel.SelectTarget(ctx, "user-3")

			Convey("Then the lexicographically smallest concept wins", func() {
				So(err, ShouldBeNil)
				So(target, ShouldEqual, "apple")
			})
		})

		Convey("When the profile does not exist", func() {
			_, err := sel.SelectTarget(ctx, "ghost")
			So(err, ShouldWrap, repository.ErrProfileNotFound)
		})
	})
}

func TestRecommend(t *testing.T) {
	Convey("Given the selector with content", t, func() {
		sel, repo := newFixture(t)
		ctx := context.Background()

		So(repo.PutContent(ctx, &model.ContentNode{
			ID:       "node-math",
			Metadata: map[string]any{"conceptId": "math"},
		}), ShouldBeNil)

		Convey("When the weakest concept has content", func() {
			createProfile(t, repo, "user-1", model.CompetenceMap{
				"math":    0.5,
				"reading": 0.95,
			})

			node, err := sel.Recommend(ctx, "user-1")

			Convey("Then the node is resolved", func() {
				So(err, ShouldBeNil)
				So(node, ShouldNotBeNil)
				So(node.ID, ShouldEqual, "node-math")
			})
		})

		Convey("When the weakest concept has no content", func() {
			createProfile(t, repo, "user-2", model.CompetenceMap{"history": 0.2})

			node, err := sel.Recommend(ctx, "user-2")

			Convey("Then the outcome is ErrNoContentForConcept", func() {
				So(node, ShouldBeNil)
				So(err, ShouldWrap, recommend.ErrNoContentForConcept)
			})
		})

		Convey("When everything is mastered", func() {
			createProfile(t, repo, "user-3", model.CompetenceMap{"math": 0.95})

			node, err := sel.Recommend(ctx, "user-3")

			Convey("Then no node and no error are returned", func() {
				So(err, ShouldBeNil)
				So(node, ShouldBeNil)
			})
		})
	})
}
