package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lernado/sage/internal/adapters/http/api"
	"github.com/lernado/sage/internal/adapters/repository"
	"github.com/lernado/sage/internal/domain/model"
	"github.com/lernado/sage/internal/domain/report"
	"github.com/lernado/sage/internal/llm"
	"github.com/lernado/sage/internal/quiz"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementation of api.Dependencies for handler tests.
type mockDeps struct {
	enqueueOK bool
	enqueued  []model.InteractionEvent

	profiles map[string]*model.LearnerProfile
	content  map[string]*model.ContentNode

	recommendNode *model.ContentNode
	recommendErr  error

	triggered []string
	report    *model.Report
	reportErr error

	quizSvc *quiz.Service
}

func newMockDeps() *mockDeps {
	return &mockDeps{
		enqueueOK: true,
		profiles:  map[string]*model.LearnerProfile{},
		content:   map[string]*model.ContentNode{},
		quizSvc:   quiz.New(llm.NewMock("true")),
	}
}

func (m *mockDeps) Enqueue(_ context.Context, e model.InteractionEvent) bool {
	if m.enqueueOK {
		m.enqueued = append(m.enqueued, e)
	}
	return m.enqueueOK
}

func (m *mockDeps) CreateProfile(_ context.Context, userID string) (*model.LearnerProfile, error) {
	if _, ok := m.profiles[userID]; ok {
		return nil, fmt.Errorf("user %s: %w", userID, repository.ErrProfileExists)
	}
	p := &model.LearnerProfile{ID: "lp-" + userID, UserID: userID, EngagementScore: 0.5}
	m.profiles[userID] = p
	return p, nil
}

func (m *mockDeps) PutContent(_ context.Context, node *model.ContentNode) error {
	m.content[node.ID] = node
	return nil
}

func (m *mockDeps) Recommend(_ context.Context, _ string) (*model.ContentNode, error) {
	if m.recommendErr != nil {
		return nil, m.recommendErr
	}
	return m.recommendNode, nil
}

func (m *mockDeps) LatestReport(_ context.Context, _ string) (*model.Report, error) {
	if m.reportErr != nil {
		return nil, m.reportErr
	}
	return m.report, nil
}

func (m *mockDeps) TriggerReport(userID string, _ report.Tier) {
	m.triggered = append(m.triggered, userID)
}

func (m *mockDeps) GenerateQuiz(ctx context.Context, sourceText string) (*quiz.Quiz, error) {
	return m.quizSvc.Generate(ctx, sourceText)
}

func (m *mockDeps) EvaluateQuiz(ctx context.Context, questions []quiz.Question, answers []string) (*quiz.Evaluation, error) {
	return m.quizSvc.Evaluate(ctx, questions, answers)
}

func (m *mockDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestServer(deps *mockDeps, opts ...api.ServerOption) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps, deps, opts...).Register(mux)
	return httptest.NewServer(mux)
}

func postJSON(t *testing.T, url, body string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestEventsEndpoint(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := newMockDeps()
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When posting a valid event", func() {
			resp, body := postJSON(t, srv.URL+"/events",
				`{"interactionType":"QUIZ_ATTEMPT","userId":"user-1","data":{"conceptId":"math","isCorrect":true}}`, nil)

			Convey("Then it is accepted and enqueued", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
				So(body["status"], ShouldEqual, "accepted")
				So(deps.enqueued, ShouldHaveLength, 1)
				So(deps.enqueued[0].UserID, ShouldEqual, "user-1")
				So(deps.enqueued[0].Data.ConceptID, ShouldEqual, "math")
			})
		})

		Convey("When the payload is not JSON", func() {
			resp, _ := postJSON(t, srv.URL+"/events", `{not json`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When required fields are missing", func() {
			resp, _ := postJSON(t, srv.URL+"/events", `{"interactionType":"QUIZ_ATTEMPT"}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the queue pushes back", func() {
			deps.enqueueOK = false
			resp, _ := postJSON(t, srv.URL+"/events",
				`{"interactionType":"QUIZ_ATTEMPT","userId":"user-1","data":{"conceptId":"math","isCorrect":true}}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusTooManyRequests)
		})
	})
}

func TestAPIKeyMiddleware(t *testing.T) {
	Convey("Given a server with an internal API key", t, func() {
		deps := newMockDeps()
		srv := newTestServer(deps, api.WithAPIKey("sekrit"))
		defer srv.Close()

		Convey("When the key is missing", func() {
			resp, _ := postJSON(t, srv.URL+"/recommend", `{"userId":"user-1"}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When the key is wrong", func() {
			resp, _ := postJSON(t, srv.URL+"/recommend", `{"userId":"user-1"}`,
				map[string]string{"X-Internal-API-Key": "nope"})
			So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When the key is right", func() {
			resp, _ := postJSON(t, srv.URL+"/recommend", `{"userId":"user-1"}`,
				map[string]string{"X-Internal-API-Key": "sekrit"})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("When probing health without a key", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})
	})
}

func TestRecommendEndpoint(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := newMockDeps()
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When a recommendation exists", func() {
			deps.recommendNode = &model.ContentNode{ID: "node-math"}

			resp, body := postJSON(t, srv.URL+"/recommend", `{"userId":"user-1"}`, nil)

			Convey("Then the node id is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["contentNodeId"], ShouldEqual, "node-math")
			})
		})

		Convey("When everything is mastered", func() {
			resp, body := postJSON(t, srv.URL+"/recommend", `{"userId":"user-1"}`, nil)

			Convey("Then contentNodeId is null", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				val, present := body["contentNodeId"]
				So(present, ShouldBeTrue)
				So(val, ShouldBeNil)
			})
		})

		Convey("When the profile does not exist", func() {
			deps.recommendErr = repository.ErrProfileNotFound
			resp, _ := postJSON(t, srv.URL+"/recommend", `{"userId":"ghost"}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the userId is missing", func() {
			resp, _ := postJSON(t, srv.URL+"/recommend", `{}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestProfileAndContentEndpoints(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := newMockDeps()
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When provisioning a profile", func() {
			resp, body := postJSON(t, srv.URL+"/profiles", `{"userId":"user-1"}`, nil)

			Convey("Then it is created", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				So(body["userId"], ShouldEqual, "user-1")
			})

			Convey("And creating it again conflicts", func() {
				resp, _ := postJSON(t, srv.URL+"/profiles", `{"userId":"user-1"}`, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When registering content with a concept", func() {
			resp, _ := postJSON(t, srv.URL+"/content",
				`{"id":"node-1","metadata":{"conceptId":"math"}}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
			So(deps.content["node-1"], ShouldNotBeNil)
		})

		Convey("When registering content without a concept", func() {
			resp, _ := postJSON(t, srv.URL+"/content", `{"id":"node-2","metadata":{}}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestReportEndpoints(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := newMockDeps()
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When triggering report generation", func() {
			resp, body := postJSON(t, srv.URL+"/reports/generate", `{"userId":"user-1","tier":"detailed"}`, nil)

			Convey("Then the job is queued asynchronously", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
				So(body["message"], ShouldEqual, "Report generation has been queued.")
				So(deps.triggered, ShouldResemble, []string{"user-1"})
			})
		})

		Convey("When fetching the latest report", func() {
			deps.report = &model.Report{ID: "rep-1", UserID: "user-1", Summary: "You completed 2 activities this week. Great job!"}

			resp, err := http.Get(srv.URL + "/reports/latest?userId=user-1")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			var body map[string]any
			So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body["userId"], ShouldEqual, "user-1")
		})

		Convey("When no report exists yet", func() {
			deps.reportErr = repository.ErrReportNotFound
			resp, err := http.Get(srv.URL + "/reports/latest?userId=user-1")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestQuizEndpoints(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := newMockDeps()
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When the source text is too short", func() {
			resp, _ := postJSON(t, srv.URL+"/quiz/generate", `{"sourceText":"short"}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When evaluating multiple-choice answers", func() {
			resp, body := postJSON(t, srv.URL+"/quiz/evaluate",
				`{"questions":[{"type":"multiple-choice","question":"Q1","answer":"A"}],"userAnswers":["a"]}`, nil)

			Convey("Then the score comes back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["score"], ShouldEqual, 1.0)
			})
		})

		Convey("When answers do not match questions", func() {
			resp, _ := postJSON(t, srv.URL+"/quiz/evaluate",
				`{"questions":[{"type":"multiple-choice","question":"Q1","answer":"A"}],"userAnswers":[]}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}
