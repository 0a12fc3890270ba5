package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cyberlab/core"
	"github.com/trezcool/cyberlab/core/quiz"
	labtestutil "github.com/trezcool/cyberlab/tests"
)

func TestQuizApi_CheckAnswer(t *testing.T) {
	env := setup(t)
	lb := labtestutil.CreateLab(t, env.labSvc, "Network services")
	q, err := env.quizSvc.CreateQuestion(context.Background(), lb.ID, quiz.NewQuestion{
		Question:      "Which protocol hands out IP addresses?",
		CorrectAnswer: "DHCP",
		Points:        1,
	})
	require.NoError(t, err)

	incomplete := marshallObj(t, map[string]interface{}{"correct": false, "error": "بيانات غير مكتملة"})

	tests := []httpTest{
		{
			name:     "correct",
			body:     []byte(`{"questionId": "` + q.ID + `", "userAnswer": "dhcp"}`),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, quiz.CheckResult{
				Correct: true, UserAnswer: "dhcp", CorrectAnswer: "DHCP", NormalizedUser: "dhcp", NormalizedCorrect: "dhcp",
			}),
		},
		{
			name:     "incorrect",
			body:     []byte(`{"questionId": "` + q.ID + `", "userAnswer": "http"}`),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, quiz.CheckResult{
				Correct: false, UserAnswer: "http", CorrectAnswer: "DHCP", NormalizedUser: "http", NormalizedCorrect: "dhcp",
			}),
		},
		{
			name:     "empty answer",
			body:     []byte(`{"questionId": "` + q.ID + `", "userAnswer": ""}`),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, quiz.CheckResult{CorrectAnswer: "DHCP", NormalizedCorrect: "dhcp"}),
		},
		{
			name:     "unknown question",
			body:     []byte(`{"questionId": "nope", "userAnswer": "dhcp"}`),
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, map[string]interface{}{"correct": false, "error": "لم يتم العثور على السؤال"}),
		},
		{
			name:     "numeric question id",
			body:     []byte(`{"questionId": 42, "userAnswer": "dhcp"}`),
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, map[string]interface{}{"correct": false, "error": "لم يتم العثور على السؤال"}),
		},
		{
			name:     "question id not a scalar",
			body:     []byte(`{"questionId": {"id": "x"}, "userAnswer": "dhcp"}`),
			wantCode: http.StatusBadRequest,
			wantData: incomplete,
		},
		{
			name:     "missing question id",
			body:     []byte(`{"userAnswer": "dhcp"}`),
			wantCode: http.StatusBadRequest,
			wantData: incomplete,
		},
		{
			name:     "missing answer",
			body:     []byte(`{"questionId": "` + q.ID + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: incomplete,
		},
		{
			name:     "answer not a string",
			body:     []byte(`{"questionId": "` + q.ID + `", "userAnswer": 42}`),
			wantCode: http.StatusBadRequest,
			wantData: incomplete,
		},
		{
			name:     "malformed body",
			body:     []byte(`{"questionId": `),
			wantCode: http.StatusBadRequest,
			wantData: incomplete,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path = http.MethodPost, "/api/lab/check-answer"
			checkCodeAndData(t, tt, env.do(tt))
		})
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.AnswersGradedTotal.WithLabelValues("correct", "exact")))
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.AnswersGradedTotal.WithLabelValues("incorrect", "none")))
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.AnswersGradedTotal.WithLabelValues("incorrect", "empty")))
}

type failingQuizService struct {
	quiz.ServiceInterface
	err error
}

func (svc *failingQuizService) CheckAnswer(context.Context, string, string) (quiz.CheckResult, error) {
	return quiz.CheckResult{}, svc.err
}

type errorLogger struct {
	core.Logger
	errs []error
}

func (l *errorLogger) Error(_ string, args ...interface{}) {
	for _, arg := range args {
		if err, ok := arg.(error); ok {
			l.errs = append(l.errs, err)
		}
	}
}

func TestQuizApi_CheckAnswerFailure(t *testing.T) {
	env := setup(t)
	logger := &errorLogger{Logger: labtestutil.NewLogger()}
	app := newServer(env.conf, logger, env.labSvc, &failingQuizService{err: errors.New("db down")}, env.metrics)

	tt := httpTest{
		method:   http.MethodPost,
		path:     "/api/lab/check-answer",
		body:     []byte(`{"questionId": "q-1", "userAnswer": "dhcp"}`),
		wantCode: http.StatusInternalServerError,
		wantData: marshallObj(t, map[string]interface{}{"correct": false, "error": "db down"}),
	}
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)

	if assert.Len(t, logger.errs, 1) {
		assert.EqualError(t, errors.Cause(logger.errs[0]), "db down")
	}
}

func TestQuizApi_Questions(t *testing.T) {
	env := setup(t)
	admin := env.adminToken(t)
	student := env.studentToken(t, "student-1")
	lb := labtestutil.CreateLab(t, env.labSvc, "Ports")
	base := "/api/labs/" + lb.ID + "/questions"

	rec := env.do(httpTest{method: http.MethodPost, path: base, token: student, body: []byte(`{"question": "?", "correct_answer": "22"}`)})
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"})}, rec)

	rec = env.do(httpTest{method: http.MethodPost, path: base, token: admin, body: []byte(`{"question": "  ", "correct_answer": "22"}`)})
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marshallObj(t, map[string]string{"question": "this field is required"}),
	}, rec)

	rec = env.do(httpTest{method: http.MethodPost, path: base, token: admin, body: []byte(`{
		"question": "Which port does SSH use?",
		"correct_answer": "22",
		"hints": [{"hint": "below 100"}, {"hint": "secure shell"}]
	}`)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created quiz.Question
	unmarshall(t, rec, &created)
	assert.Equal(t, 1, created.Points)
	require.Len(t, created.Hints, 2)

	t.Run("students do not see answers", func(t *testing.T) {
		rec := env.do(httpTest{method: http.MethodGet, path: base, token: student})
		require.Equal(t, http.StatusOK, rec.Code)
		var got []map[string]interface{}
		unmarshall(t, rec, &got)
		require.Len(t, got, 1)
		assert.NotContains(t, got[0], "correct_answer")
		assert.Equal(t, "Which port does SSH use?", got[0]["question"])
	})

	t.Run("admins do", func(t *testing.T) {
		rec := env.do(httpTest{method: http.MethodGet, path: base, token: admin})
		require.Equal(t, http.StatusOK, rec.Code)
		var got []map[string]interface{}
		unmarshall(t, rec, &got)
		require.Len(t, got, 1)
		assert.Equal(t, "22", got[0]["correct_answer"])
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rec := env.do(httpTest{method: http.MethodGet, path: base})
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)}, rec)
	})

	body := `{"points": 3, "hints": [{"id": "` + created.Hints[1].ID + `", "hint": "think secure shell"}]}`
	rec = env.do(httpTest{method: http.MethodPut, path: "/api/questions/" + created.ID, token: admin, body: []byte(body)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated quiz.Question
	unmarshall(t, rec, &updated)
	assert.Equal(t, 3, updated.Points)
	require.Len(t, updated.Hints, 1)
	assert.Equal(t, created.Hints[1].ID, updated.Hints[0].ID)
	assert.Equal(t, "think secure shell", updated.Hints[0].Hint)

	rec = env.do(httpTest{method: http.MethodDelete, path: "/api/questions/" + created.ID, token: admin})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(httpTest{method: http.MethodDelete, path: "/api/questions/" + created.ID, token: admin})
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "question not found"})}, rec)
}
