package tests

import (
	"fmt"
	"net/http"
	"testing"

	. "github.com/trezcool/trainings/apps/api/echo"
	"github.com/trezcool/trainings/core/session"
	"github.com/trezcool/trainings/tests"
)

func Test_sessionApi_auth(t *testing.T) {
	srv, env := setup(t)
	s := testutil.CreateSession(t, env.Svc, session.ModeGlobal, testutil.Date(2026, 3, 10), testutil.Date(2026, 3, 10))
	path := "/v1/sessions/" + s.ID

	tests := []httpTest{
		{name: "Auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Invalid token", path: path, token: "not-a-jwt", wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "Admin required", path: path, token: getToken(t, env, "trainer-1", RoleTrainer),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Admin", path: path, token: getToken(t, env, "admin-1", RoleAdmin),
			wantCode: http.StatusOK, wantData: marchallObj(t, s),
		},
		{
			name: "Not found", path: "/v1/sessions/nope", token: getToken(t, env, "admin-1", RoleAdmin),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: session.ErrSessionNotFound.Error()}),
		},
	}
	run(t, srv, tests)
}

func Test_sessionApi_create(t *testing.T) {
	srv, env := setup(t)
	adminToken := getToken(t, env, "admin-1", RoleAdmin)

	tests := []httpTest{
		{
			name: "Invalid data", method: http.MethodPost, path: "/v1/sessions", token: adminToken,
			body:     []byte(`{"training_id": " ", "signature_mode": "DAILY"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"training_id":    "this field is required",
				"signature_mode": "signature mode must be one of GLOBAL, PER_SLOT",
			}),
		},
		{
			name: "Bad JSON", method: http.MethodPost, path: "/v1/sessions", token: adminToken,
			body: []byte(`{"training_id": `), wantCode: http.StatusBadRequest,
		},
	}
	run(t, srv, tests)

	t.Run("Created", func(t *testing.T) {
		body := []byte(`{
			"training_id": "training-1",
			"trainer_id": "trainer-1",
			"start_date": "2026-03-10T00:00:00Z",
			"end_date": "2026-03-11T00:00:00Z",
			"location": "Room 101",
			"signature_mode": "PER_SLOT"
		}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/sessions", adminToken, body)
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v (%s)", rec.Code, http.StatusCreated, rec.Body.String())
		}

		var s session.Session
		unmarshal(t, rec, &s)
		if s.Status != session.StatusDraft || s.SignatureMode != session.ModePerSlot || s.AccessToken == "" {
			t.Errorf("failed! session = %+v", s)
		}
		if _, err := env.Svc.Get(ctx, s.ID); err != nil {
			t.Errorf("session %s was not stored: %v", s.ID, err)
		}
	})
}

type transitionResponse struct {
	code int
	body map[string]interface{}
}

func Test_sessionApi_lifecycle(t *testing.T) {
	srv, env := setup(t)
	adminToken := getToken(t, env, "admin-1", RoleAdmin)
	s := testutil.CreateSession(t, env.Svc, session.ModePerSlot, testutil.Date(2026, 3, 10), testutil.Date(2026, 3, 11))
	path := "/v1/sessions/" + s.ID

	post := func(t *testing.T, path string) *transitionResponse {
		req, rec := newAuthRequest(http.MethodPost, path, adminToken)
		srv.ServeHTTP(rec, req)
		res := &transitionResponse{code: rec.Code}
		unmarshal(t, rec, &res.body)
		return res
	}

	// DRAFT -> ACTIVE is not an edge
	res := post(t, path+"/open")
	if res.code != http.StatusConflict || res.body["code"] != "invalid_transition" {
		t.Fatalf("open from DRAFT: %d %v", res.code, res.body)
	}
	if res.body["from"] != "DRAFT" || res.body["to"] != "ACTIVE" {
		t.Errorf("open from DRAFT: %v", res.body)
	}

	res = post(t, path+"/schedule")
	if res.code != http.StatusOK || res.body["to"] != "NOT_STARTED" {
		t.Fatalf("schedule: %d %v", res.code, res.body)
	}

	req, rec := newAuthRequest(http.MethodPut, path, adminToken, []byte(`{"location": "Room 9"}`))
	srv.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusConflict,
		wantData: marchallObj(t, httpErr{Error: session.ErrSessionLocked.Error()}),
	}, rec)

	req, rec = newAuthRequest(http.MethodGet, path+"/slots", adminToken)
	srv.ServeHTTP(rec, req)
	var slots []session.Slot
	unmarshal(t, rec, &slots)
	if len(slots) != 4 {
		t.Fatalf("len(slots) = %d; want 4", len(slots))
	}

	res = post(t, path+"/open")
	if res.code != http.StatusOK || res.body["to"] != "ACTIVE" {
		t.Fatalf("open: %d %v", res.code, res.body)
	}

	if r := post(t, "/v1/slots/"+slots[0].ID+"/open"); r.code != http.StatusOK {
		t.Fatalf("open slot: %d %v", r.code, r.body)
	}
	res = post(t, path+"/complete")
	if res.code != http.StatusConflict || res.body["code"] != "invalid_transition" {
		t.Errorf("complete with an open slot: %d %v", res.code, res.body)
	}
	if r := post(t, "/v1/slots/"+slots[0].ID+"/close"); r.code != http.StatusOK {
		t.Fatalf("close slot: %d %v", r.code, r.body)
	}
	res = post(t, path+"/complete")
	if res.code != http.StatusOK || res.body["to"] != "COMPLETED" {
		t.Errorf("complete: %d %v", res.code, res.body)
	}
	res = post(t, path+"/cancel")
	if res.code != http.StatusConflict {
		t.Errorf("cancel a completed session: %d %v", res.code, res.body)
	}
}

func Test_sessionApi_enroll(t *testing.T) {
	srv, env := setup(t)
	adminToken := getToken(t, env, "admin-1", RoleAdmin)
	s := testutil.CreateSession(t, env.Svc, session.ModeGlobal, testutil.Date(2026, 3, 10), testutil.Date(2026, 3, 10))
	path := fmt.Sprintf("/v1/sessions/%s/enrollments", s.ID)

	req, rec := newAuthRequest(http.MethodPost, path, adminToken,
		[]byte(`{"employee_id": "emp-1", "employee_name": "Jean Dupont", "employee_email": "jean@example.com"}`))
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; wantCode %v (%s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var enr session.Enrollment
	unmarshal(t, rec, &enr)

	tests := []httpTest{
		{
			name: "Duplicate", method: http.MethodPost, path: path, token: adminToken,
			body:     []byte(`{"employee_id": "emp-1"}`),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: session.ErrAlreadyEnrolled.Error()}),
		},
		{
			name: "Invalid email", method: http.MethodPost, path: path, token: adminToken,
			body:     []byte(`{"employee_id": "emp-2", "employee_email": "nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"employee_email": "employee_email must be a valid email address"}),
		},
		{
			name: "List", path: path, token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, []session.Enrollment{enr}),
		},
	}
	run(t, srv, tests)
}

func Test_slotApi(t *testing.T) {
	srv, env := setup(t)
	s, slots := testutil.ActiveSession(t, env.Svc, session.ModeGlobal, testutil.Date(2026, 3, 10), testutil.Date(2026, 3, 10))
	e1 := testutil.Enroll(t, env.Svc, s.ID, "emp-1", "emp1@example.com")
	slotPath := "/v1/slots/" + slots[0].ID

	trainerToken := getToken(t, env, s.TrainerID, RoleTrainer)
	otherTrainerToken := getToken(t, env, "trainer-2", RoleTrainer)
	employeeToken := getToken(t, env, "emp-1")

	tests := []httpTest{
		{
			name: "Other trainer", method: http.MethodPost, path: slotPath + "/open", token: otherTrainerToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "No role", method: http.MethodPost, path: slotPath + "/open", token: employeeToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Unknown slot", method: http.MethodPost, path: "/v1/slots/nope/open", token: trainerToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: session.ErrSlotNotFound.Error()}),
		},
		{
			name: "Reminders before opening", method: http.MethodPost, path: slotPath + "/reminders",
			token: getToken(t, env, "admin-1", RoleAdmin), wantCode: http.StatusConflict,
			wantData: marchallObj(t, map[string]string{"error": session.ErrSlotNotOpen.Error(), "code": "slot_not_open"}),
		},
		{name: "Trainer opens", method: http.MethodPost, path: slotPath + "/open", token: trainerToken, wantCode: http.StatusOK},
		{
			name: "Missing signatures", path: slotPath + "/missing-signatures", token: trainerToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, []session.Enrollment{e1}),
		},
		{
			name: "Reminders are admin only", method: http.MethodPost, path: slotPath + "/reminders", token: trainerToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Reminders", method: http.MethodPost, path: slotPath + "/reminders",
			token: getToken(t, env, "admin-1", RoleAdmin), wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]int{"sent": 1}),
		},
		{name: "Trainer closes", method: http.MethodPost, path: slotPath + "/close", token: trainerToken, wantCode: http.StatusOK},
		{
			name: "Closed for good", method: http.MethodPost, path: slotPath + "/open", token: trainerToken,
			wantCode: http.StatusConflict,
		},
	}
	run(t, srv, tests)
}

func Test_server_home(t *testing.T) {
	srv, env := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "Welcome to "+env.Conf.AppName+" API!" {
		t.Errorf("failed! %d %q", rec.Code, rec.Body.String())
	}

	req, rec = newRequest(http.MethodGet, "/metrics")
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("failed! /metrics code = %d", rec.Code)
	}

	req, rec = newRequest(http.MethodGet, "/v1/nowhere")
	srv.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Not Found"})}, rec)
}
