package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appI18n "github.com/pavelanni/mcqengine/internal/i18n"
	"github.com/pavelanni/mcqengine/internal/model"
	"github.com/pavelanni/mcqengine/internal/store"
)

func TestMain(m *testing.M) {
	if err := appI18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type testServer struct {
	store  *store.Store
	router http.Handler
}

func newTestServer(t *testing.T, policy model.RetakePolicy) *testServer {
	t.Helper()
	s, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	h, err := New(s, nil, Config{RetakePolicy: policy})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.CreateFaculty(ctx, model.Faculty{ID: "F1", InstitutionID: "INST1", Name: "Ada"}))
	require.NoError(t, s.CreateFaculty(ctx, model.Faculty{ID: "F2", InstitutionID: "INST1", Name: "Bob"}))
	require.NoError(t, s.CreateFaculty(ctx, model.Faculty{ID: "F9", InstitutionID: "INST2", Name: "Eve"}))
	return &testServer{store: s, router: h.Router()}
}

func (ts *testServer) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorResponse](t, rec).Error.Code
}

// createTest creates an aptitude test for INST1 and returns its id.
func (ts *testServer) createTest(t *testing.T) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/institutions/INST1/tests", `{"type":"aptitude"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.TestView](t, rec).ID
}

func TestScenario(t *testing.T) {
	ts := newTestServer(t, model.RetakeUnlimited)

	rec := ts.do(t, http.MethodPost, "/institutions/INST1/batches", `{"batch_code":"B1","department":"CSE","year":"2","section":"A","faculty_id":"F1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decode[model.Batch](t, rec)
	assert.Equal(t, "B1", b.Code)
	assert.Empty(t, b.Students)

	rec = ts.do(t, http.MethodPost, "/faculty/F1/batches/B1/assign", `{"student_ids":["S1","S2"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.ElementsMatch(t, []string{"S1", "S2"}, decode[model.Batch](t, rec).Students)

	rec = ts.do(t, http.MethodPost, "/institutions/INST1/tests", `{"type":"aptitude","batch_codes":["B1"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.TestView](t, rec)
	assert.Equal(t, "aptitude test", created.Title)
	require.Len(t, created.Questions, 5)
	require.NotNil(t, created.Questions[0].CorrectIndex)
	assert.Equal(t, 3, *created.Questions[0].CorrectIndex)

	rec = ts.do(t, http.MethodPut, "/institutions/INST1/tests/"+created.ID+"/assign", `{"batch_codes":["B1"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	targets := decode[model.Targets](t, rec)
	assert.ElementsMatch(t, []string{"S1", "S2"}, targets.AssignedStudentIDs)
	assert.Equal(t, []string{"B1"}, targets.AssignedBatchCodes)

	rec = ts.do(t, http.MethodPost, "/students/S1/tests/"+created.ID+"/submit", `{"answers":[3,1,0,2,1]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.ScoreResult{Score: 5, Total: 5}, decode[model.ScoreResult](t, rec))

	// The aptitude key has 0 at index 2, so an all-zero retake scores 1.
	rec = ts.do(t, http.MethodPost, "/students/S1/tests/"+created.ID+"/submit", `{"answers":[0,0,0,0,0]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.ScoreResult{Score: 1, Total: 5}, decode[model.ScoreResult](t, rec))

	rec = ts.do(t, http.MethodGet, "/faculty/F1/tests/"+created.ID+"/results", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"attemptedAt"`)
	results := decode[model.TestResults](t, rec)
	require.Len(t, results.Submissions, 2)
	assert.Equal(t, 5, results.Submissions[0].Score)
	assert.Equal(t, 1, results.Submissions[1].Score)

	rec = ts.do(t, http.MethodGet, "/institutions/INST1/announcements", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]model.Announcement](t, rec), "no announcer configured")
}

func TestStudentViewHasNoAnswerKey(t *testing.T) {
	ts := newTestServer(t, "")
	id := ts.createTest(t)
	ts.do(t, http.MethodPut, "/institutions/INST1/tests/"+id+"/assign", `{"student_ids":["S1"]}`)
	ts.do(t, http.MethodPost, "/students/S1/tests/"+id+"/submit", `{"answers":[3]}`)

	for _, path := range []string{"/students/S1/tests/" + id, "/institutions/INST1/students/S1/tests"} {
		rec := ts.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "correct_index", path)
		assert.NotContains(t, rec.Body.String(), "submissions", path)
		assert.Contains(t, rec.Body.String(), "options", path)
	}

	rec := ts.do(t, http.MethodGet, "/faculty/F1/tests", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	ts.do(t, http.MethodPut, "/institutions/INST1/tests/"+id+"/assign", `{"faculty_ids":["F1"]}`)
	rec = ts.do(t, http.MethodGet, "/faculty/F1/tests", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "questions")
	assert.Contains(t, rec.Body.String(), "submissions")
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t, "")
	id := ts.createTest(t)
	ts.do(t, http.MethodPost, "/institutions/INST1/batches", `{"batch_code":"B1","faculty_id":"F1"}`)
	missing := "00000000-0000-0000-0000-000000000000"

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"duplicate batch", http.MethodPost, "/institutions/INST1/batches", `{"batch_code":"B1"}`, http.StatusBadRequest, "conflict"},
		{"missing batch code", http.MethodPost, "/institutions/INST1/batches", `{}`, http.StatusBadRequest, "validation_error"},
		{"malformed body", http.MethodPost, "/institutions/INST1/batches", `{"batch_code":`, http.StatusBadRequest, "validation_error"},
		{"bad test type", http.MethodPost, "/institutions/INST1/tests", `{"type":"quiz"}`, http.StatusBadRequest, "validation_error"},
		{"malformed test id", http.MethodGet, "/students/S1/tests/not-a-uuid", "", http.StatusBadRequest, "invalid_identifier"},
		{"overlong institution id", http.MethodGet, "/institutions/" + strings.Repeat("x", 200) + "/tests", "", http.StatusBadRequest, "invalid_identifier"},
		{"control character in student id", http.MethodGet, "/students/S%091/tests/" + id, "", http.StatusBadRequest, "invalid_identifier"},
		{"unknown test", http.MethodGet, "/students/S1/tests/" + missing, "", http.StatusNotFound, "not_found"},
		{"submit unknown test", http.MethodPost, "/students/S1/tests/" + missing + "/submit", `{"answers":[1]}`, http.StatusNotFound, "not_found"},
		{"submit without answers", http.MethodPost, "/students/S1/tests/" + id + "/submit", `{}`, http.StatusBadRequest, "validation_error"},
		{"assign nothing", http.MethodPut, "/institutions/INST1/tests/" + id + "/assign", `{"student_ids":[]}`, http.StatusBadRequest, "empty_participants"},
		{"assign unknown test", http.MethodPut, "/institutions/INST1/tests/" + missing + "/assign", `{"student_ids":["S1"]}`, http.StatusNotFound, "not_found"},
		{"assign cross tenant", http.MethodPut, "/institutions/INST2/tests/" + id + "/assign", `{"student_ids":["S1"]}`, http.StatusForbidden, "forbidden_cross_tenant"},
		{"delete cross tenant", http.MethodDelete, "/institutions/INST2/tests/" + id, "", http.StatusForbidden, "forbidden_cross_tenant"},
		{"results cross tenant", http.MethodGet, "/faculty/F9/tests/" + id + "/results", "", http.StatusForbidden, "forbidden_cross_tenant"},
		{"unknown faculty", http.MethodPost, "/faculty/NOPE/batches/B1/assign", `{"student_ids":["S1"]}`, http.StatusNotFound, "not_found"},
		{"other faculty's batch", http.MethodPost, "/faculty/F2/batches/B1/assign", `{"student_ids":["S1"]}`, http.StatusForbidden, "forbidden_cross_tenant"},
		{"unknown batch", http.MethodPost, "/institutions/INST1/batches/NOPE/students", `{"student_ids":["S1"]}`, http.StatusNotFound, "not_found"},
		{"unknown route", http.MethodGet, "/nowhere", "", http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, errorCode(t, rec))
		})
	}
}

func TestValidationFieldsAndLocalization(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(t, http.MethodPost, "/institutions/INST1/tests", `{"type":"quiz"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorResponse](t, rec).Error
	assert.Contains(t, body.Fields, "type")
	assert.Equal(t, "The request is invalid. 1 field is invalid.", body.Message)

	rec = ts.do(t, http.MethodPost, "/institutions/INST1/tests", `{"type":"quiz"}`, "Accept-Language", "ru")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.HasPrefix(decode[errorResponse](t, rec).Error.Message, "Некорректный запрос."))
}

func TestDeleteTest(t *testing.T) {
	ts := newTestServer(t, "")
	id := ts.createTest(t)

	rec := ts.do(t, http.MethodDelete, "/institutions/INST1/tests/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/institutions/INST1/tests/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/students/S1/tests/"+id+"/submit", `{"answers":[3]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/institutions/INST1/tests", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]model.TestView](t, rec))
}

func TestSubmitCoercesAnswers(t *testing.T) {
	ts := newTestServer(t, "")
	id := ts.createTest(t)
	ts.do(t, http.MethodPut, "/institutions/INST1/tests/"+id+"/assign", `{"student_ids":["S1"]}`)

	rec := ts.do(t, http.MethodPost, "/students/S1/tests/"+id+"/submit", `{"answers":["3",1.0,"x",null,1,7,7]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.ScoreResult{Score: 3, Total: 5}, decode[model.ScoreResult](t, rec))
}

func TestSingleAttemptPolicy(t *testing.T) {
	ts := newTestServer(t, model.RetakeSingle)
	id := ts.createTest(t)
	ts.do(t, http.MethodPut, "/institutions/INST1/tests/"+id+"/assign", `{"student_ids":["S1"]}`)

	rec := ts.do(t, http.MethodPost, "/students/S1/tests/"+id+"/submit", `{"answers":[3]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/students/S1/tests/"+id+"/submit", `{"answers":[3]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "conflict", errorCode(t, rec))
}

func TestStudentTenantIsolation(t *testing.T) {
	ts := newTestServer(t, "")
	inst1 := ts.createTest(t)
	rec := ts.do(t, http.MethodPost, "/institutions/INST2/tests", `{"type":"technical"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inst2 := decode[model.TestView](t, rec).ID

	// The same enrollment id exists at both institutions.
	ts.do(t, http.MethodPut, "/institutions/INST1/tests/"+inst1+"/assign", `{"student_ids":["S1"]}`)
	ts.do(t, http.MethodPut, "/institutions/INST2/tests/"+inst2+"/assign", `{"student_ids":["S1"]}`)

	for inst, want := range map[string]string{"INST1": inst1, "INST2": inst2} {
		rec := ts.do(t, http.MethodGet, "/institutions/"+inst+"/students/S1/tests", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		tests := decode[[]model.TestView](t, rec)
		require.Len(t, tests, 1, inst)
		assert.Equal(t, want, tests[0].ID, inst)
	}

	rec = ts.do(t, http.MethodPost, "/students/OUTSIDER/tests/"+inst1+"/submit", `{"answers":[3,1,0,2,1]}`)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	assert.Equal(t, "forbidden_cross_tenant", errorCode(t, rec))

	rec = ts.do(t, http.MethodGet, "/students/OUTSIDER/tests/"+inst1, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/institutions/INST1/tests/"+inst1+"/results", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decode[model.TestResults](t, rec).Submissions)

	// An account holder of the owning institution may take an untargeted test.
	require.NoError(t, ts.store.CreateStudent(context.Background(), model.Student{EnrollmentID: "S7", InstitutionID: "INST1", Name: "Kim"}))
	rec = ts.do(t, http.MethodPost, "/students/S7/tests/"+inst1+"/submit", `{"answers":[3]}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = ts.do(t, http.MethodPost, "/students/S7/tests/"+inst2+"/submit", `{"answers":[3]}`)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
}

func TestPrintableIdentifiers(t *testing.T) {
	ts := newTestServer(t, "")
	id := ts.createTest(t)

	rec := ts.do(t, http.MethodPut, "/institutions/INST1/tests/"+id+"/assign", `{"student_ids":["jane.doe@uni.edu","2021/CS/001"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.ElementsMatch(t, []string{"jane.doe@uni.edu", "2021/CS/001"}, decode[model.Targets](t, rec).AssignedStudentIDs)

	for _, seg := range []string{"jane.doe@uni.edu", "2021%2FCS%2F001"} {
		rec := ts.do(t, http.MethodPost, "/students/"+seg+"/tests/"+id+"/submit", `{"answers":[3,1]}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, 2, decode[model.ScoreResult](t, rec).Score, seg)
	}

	rec = ts.do(t, http.MethodGet, "/institutions/INST1/students/2021%2FCS%2F001/tests", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[[]model.TestView](t, rec), 1)
}

func TestBatchListings(t *testing.T) {
	ts := newTestServer(t, "")
	ts.do(t, http.MethodPost, "/institutions/INST1/batches", `{"batch_code":"B1","faculty_id":"F1"}`)
	ts.do(t, http.MethodPost, "/institutions/INST1/batches", `{"batch_code":"B2"}`)

	rec := ts.do(t, http.MethodPost, "/institutions/INST1/batches/B2/students", `{"student_ids":[101," S2 ",101]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.ElementsMatch(t, []string{"101", "S2"}, decode[model.Batch](t, rec).Students)

	rec = ts.do(t, http.MethodGet, "/institutions/INST1/batches", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Batch](t, rec), 2)

	rec = ts.do(t, http.MethodGet, "/faculty/F1/batches", "")
	require.Equal(t, http.StatusOK, rec.Code)
	batches := decode[[]model.Batch](t, rec)
	require.Len(t, batches, 1)
	assert.Equal(t, "B1", batches[0].Code)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "")
	rec := ts.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestNewRejectsUnknownPolicy(t *testing.T) {
	s, err := store.New(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = New(s, nil, Config{RetakePolicy: "twice"})
	assert.Error(t, err)
}
