package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	echoapi "github.com/trezcool/cyberlab/apps/api/echo"
	"github.com/trezcool/cyberlab/core"
	"github.com/trezcool/cyberlab/core/lab"
	"github.com/trezcool/cyberlab/core/quiz"
	"github.com/trezcool/cyberlab/services/metrics"
	inmemdb "github.com/trezcool/cyberlab/storage/database/inmem"
	"github.com/trezcool/cyberlab/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app     *echoapi.Server
	conf    *core.Config
	labSvc  *lab.Service
	quizSvc *quiz.Service
	metrics *metrics.Registry
}

func setup(t *testing.T) testEnv {
	t.Helper()
	conf := testutil.NewConfig()
	logger := testutil.NewLogger()
	reg := metrics.NewRegistry()
	db := inmemdb.Open()

	labSvc := lab.NewService(inmemdb.NewLabRepository(db), logger, conf, reg)
	quizSvc := quiz.NewService(inmemdb.NewQuestionRepository(db), labSvc, logger, conf, reg)
	app := newServer(conf, logger, labSvc, quizSvc, reg)
	return testEnv{app: app, conf: conf, labSvc: labSvc, quizSvc: quizSvc, metrics: reg}
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	labSvc lab.ServiceInterface,
	quizSvc quiz.ServiceInterface,
	reg *metrics.Registry,
) *echoapi.Server {
	validate, translator := testutil.NewValidator()
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		LabSvc:         labSvc,
		QuizSvc:        quizSvc,
		Metrics:        reg,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
}

func (env testEnv) adminToken(t *testing.T) string {
	return env.token(t, core.Person{ID: "admin-1", Username: "admin", Email: "admin@cyberlab.test"}, true)
}

func (env testEnv) studentToken(t *testing.T, id string) string {
	return env.token(t, core.Person{ID: id, Username: id}, false)
}

func (env testEnv) token(t *testing.T, person core.Person, isAdmin bool) string {
	t.Helper()
	token, err := echoapi.GenerateToken(env.conf, echoapi.NewClaims(env.conf, person, isAdmin))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

func (env testEnv) do(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	env.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarshall(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
