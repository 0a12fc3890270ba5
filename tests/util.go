// Package testutil holds helpers shared by the test suites.
package testutil

import (
	"context"
	"database/sql"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cyberlab/core"
	"github.com/trezcool/cyberlab/core/lab"
	logsvc "github.com/trezcool/cyberlab/services/logger"
	"github.com/trezcool/cyberlab/storage/database"
)

// DBTestsEnv enables the suites that need a running postgres.
const DBTestsEnv = "CYBERLAB_DB_TESTS"

// NewLogger returns a logger that reports nowhere.
func NewLogger() core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), &core.Config{Env: "TEST"})
	logger.Enable(false)
	return logger
}

func NewConfig() *core.Config {
	return &core.Config{
		AppName:   "Cyber Lab",
		Env:       "TEST",
		TestMode:  true,
		SecretKey: "test-secret",
		Server:    core.ServerConfig{Address: ":0", JWTExpirationDelta: time.Hour},
		Grader:    core.GraderConfig{SimilarityThreshold: 0.8, MinContainmentLength: 3},
		Layout:    lab.DefaultLayout,
	}
}

func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	lab.InitValidators(validate, translator)
	return validate, translator
}

// PrepareDB opens the test database, migrates it and empties it.
// The test is skipped unless DBTestsEnv is set.
func PrepareDB(t *testing.T) *sql.DB {
	t.Helper()
	if os.Getenv(DBTestsEnv) == "" {
		t.Skipf("set %s to run database tests", DBTestsEnv)
	}

	conf := core.NewTestConfig()
	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	ResetDB(t, db)
	return db
}

func ResetDB(t *testing.T, db *sql.DB) {
	t.Helper()
	if err := database.Truncate(db); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}

func CreateLab(t *testing.T, svc lab.ServiceInterface, title string) lab.Lab {
	t.Helper()
	lb, err := svc.CreateLab(context.Background(), lab.NewLab{Title: title})
	if err != nil {
		t.Fatalf("CreateLab() failed: %v", err)
	}
	return lb
}

func CreateDevice(t *testing.T, svc lab.ServiceInterface, labID, name string, typ lab.DeviceType, url string, pos ...int) lab.Device {
	t.Helper()
	nd := lab.NewDevice{Name: name, Type: typ, IP: "10.0.0.1", URL: url}
	if len(pos) == 2 {
		nd.X, nd.Y = &pos[0], &pos[1]
	}
	dev, err := svc.CreateDevice(context.Background(), labID, nd)
	if err != nil {
		t.Fatalf("CreateDevice() failed: %v", err)
	}
	return dev
}

func Connect(t *testing.T, svc lab.ServiceInterface, labID, a, b string, status lab.ConnectionStatus) lab.Connection {
	t.Helper()
	nc := lab.NewConnection{SourceDeviceID: a, TargetDeviceID: b, Type: lab.ConnectionEthernet}
	conn, err := svc.AddConnection(context.Background(), labID, nc, status)
	if err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	return conn
}

// Position builds a stored device position.
func Position(x, y int) (null.Int, null.Int) {
	return null.IntFrom(x), null.IntFrom(y)
}
