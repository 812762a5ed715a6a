package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	. "github.com/definite-d/zonosign-backend/apps/api/echo"
	"github.com/definite-d/zonosign-backend/core"
	"github.com/definite-d/zonosign-backend/core/catalog"
	"github.com/definite-d/zonosign-backend/core/progress"
	"github.com/definite-d/zonosign-backend/core/session"
	logsvc "github.com/definite-d/zonosign-backend/services/logger"
	recognitionsvc "github.com/definite-d/zonosign-backend/services/recognition"
	sqlxrepos "github.com/definite-d/zonosign-backend/storage/database/sqlx"
	"github.com/definite-d/zonosign-backend/storage/database/testutil"
)

var (
	conf *core.Config

	errMissingToken = httpErr{Kind: "unauthorized", Error: "missing or malformed jwt"}
	errInvalidToken = httpErr{Kind: "unauthorized", Error: "invalid or expired jwt"}
)

type services struct {
	progress *progress.Service
	session  *session.Service
}

func setup(t *testing.T) (*Server, services) {
	t.Helper()
	conf = core.NewTestConfig()

	// set up DB & repos
	db := testutil.PrepareDB(t)
	testutil.SeedCatalog(t, db)

	// set up services
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)

	locks := core.NewKeyedMutex()
	catalogSvc := catalog.NewService(sqlxrepos.NewCatalogRepository(db), conf)
	progressSvc := progress.NewService(sqlxrepos.NewProgressRepository(db), catalogSvc, locks, conf)
	sessionSvc := session.NewService(
		session.Deps{
			Repo:       sqlxrepos.NewSessionRepository(db),
			Catalog:    catalogSvc,
			Recognizer: recognitionsvc.NewConsoleServiceMock(),
			Lessons:    progressSvc,
			Locks:      locks,
			Logger:     logger,
		},
		conf,
	)

	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	// set up server
	srv := NewServer(
		ServerDeps{
			Conf:        conf,
			Logger:      logger,
			ProgressSvc: progressSvc,
			SessionSvc:  sessionSvc,
			Validate:    validate,
			Translator:  translator,
		},
	)
	return srv, services{progress: progressSvc, session: sessionSvc}
}

type httpErr struct {
	Kind   string            `json:"kind"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
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

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, userID string) string {
	token, err := GenerateToken(NewClaims(userID, conf), conf.SecretKey)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarshalObj(t *testing.T, data []byte, obj interface{}) {
	if err := json.Unmarshal(data, obj); err != nil {
		t.Fatalf("unmarshalObj(%s): %v", data, err)
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

func checkCode(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	checkCode(t, tt, rec)
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func serve(srv *Server, tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	srv.ServeHTTP(rec, req)
	return rec
}
