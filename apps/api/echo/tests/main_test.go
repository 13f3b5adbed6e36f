package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trackside/carnival/apps/api/echo"
	"github.com/trackside/carnival/core/audit"
	"github.com/trackside/carnival/core/house"
	"github.com/trackside/carnival/core/race"
	"github.com/trackside/carnival/core/staff"
	emailsvc "github.com/trackside/carnival/services/email"
	inmemdb "github.com/trackside/carnival/storage/database/inmem"
	testutil "github.com/trackside/carnival/tests"
)

var (
	errMissingToken     = httpErr{Error: "missing or malformed jwt"}
	errPermissionDenied = httpErr{Error: "permission denied"}
)

type testApp struct {
	app echoapi.Server

	raceRepo  race.Repository
	houseRepo house.Repository
	auditRepo audit.Repository
	staffRepo staff.Repository

	raceSvc  *race.Service
	houseSvc *house.Service
	auditSvc *audit.Service
	staffSvc *staff.Service
}

func setup(t *testing.T) *testApp {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}

	ta := &testApp{
		raceRepo:  inmemdb.NewRaceRepository(db),
		houseRepo: inmemdb.NewHouseRepository(db),
		auditRepo: inmemdb.NewAuditRepository(db),
		staffRepo: inmemdb.NewStaffRepository(db),
	}

	conf := testutil.NewTestConfig()
	logger := testutil.NopLogger{}
	ta.auditSvc = audit.NewService(ta.auditRepo)
	ta.houseSvc = house.NewService(ta.houseRepo, ta.auditSvc, emailsvc.NewConsoleServiceMock(conf), logger, conf)
	ta.raceSvc = race.NewService(ta.raceRepo, ta.houseSvc, ta.auditSvc, logger)
	ta.staffSvc = staff.NewService(ta.staffRepo, ta.auditSvc, logger)

	validate, translator := testutil.NewValidators(t)

	ta.app = echoapi.NewServer(
		"", /* addr */
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			StaffSvc:   ta.staffSvc,
			RaceSvc:    ta.raceSvc,
			HouseSvc:   ta.houseSvc,
			AuditSvc:   ta.auditSvc,
			Validate:   validate,
			Translator: translator,
		},
	)
	return ta
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
	extra    interface{}
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

func getToken(t *testing.T, stf staff.Staff) string {
	t.Helper()

	token, err := echoapi.GenerateToken(echoapi.GetStaffClaims(stf))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()

	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decodeBody(): %v; body = %s", err, rec.Body.String())
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
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
