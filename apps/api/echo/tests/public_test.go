package tests

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/trezcool/trainings/core/session"
	"github.com/trezcool/trainings/tests"
)

func Test_publicApi_sign(t *testing.T) {
	srv, env := setup(t)
	s, slots := testutil.ActiveSession(t, env.Svc, session.ModeGlobal, testutil.Date(2026, 3, 10), testutil.Date(2026, 3, 10))
	enr := testutil.Enroll(t, env.Svc, s.ID, "emp-1", "")
	slotToken := slots[0].AccessToken
	signPath := fmt.Sprintf("/v1/public/slots/%s/signatures", slotToken)
	sigBody := []byte(fmt.Sprintf(`{"enrollment_token": %q, "signature": "J. Dupont"}`, enr.Token))

	unknownToken := marchallObj(t, map[string]string{"error": session.ErrUnknownToken.Error(), "code": "unknown_token"})
	slotNotOpen := marchallObj(t, map[string]string{"error": session.ErrSlotNotOpen.Error(), "code": "slot_not_open"})

	run(t, srv, []httpTest{
		{name: "Slot not open", method: http.MethodPost, path: signPath, body: sigBody, wantCode: http.StatusConflict, wantData: slotNotOpen},
		{
			name: "Unknown slot token", method: http.MethodPost, path: "/v1/public/slots/nope/signatures", body: sigBody,
			wantCode: http.StatusNotFound, wantData: unknownToken,
		},
		{
			name: "Missing value", method: http.MethodPost, path: signPath,
			body:     []byte(fmt.Sprintf(`{"enrollment_token": %q}`, enr.Token)),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"signature": "this field is required"}),
		},
	})

	testutil.OpenSlot(t, env.Svc, slots[0].ID)

	t.Run("Recorded", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, signPath, sigBody)
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v (%s)", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var res session.SignatureRecorded
		unmarshal(t, rec, &res)
		if res.SlotID != slots[0].ID || res.EnrollmentID != enr.ID {
			t.Errorf("failed! res = %+v", res)
		}
	})

	run(t, srv, []httpTest{
		{
			name: "Already signed", method: http.MethodPost, path: signPath, body: sigBody, wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]string{"status": "already_signed", "message": session.ErrAlreadySigned.Error()}),
		},
		{
			name: "Signature exists", path: fmt.Sprintf("/v1/public/slots/%s/signatures/%s", slotToken, enr.Token),
			wantCode: http.StatusOK, wantData: marchallObj(t, map[string]bool{"signed": true}),
		},
		{
			name: "Unknown enrollment token", path: fmt.Sprintf("/v1/public/slots/%s/signatures/nope", slotToken),
			wantCode: http.StatusNotFound, wantData: unknownToken,
		},
	})

	if _, err := env.Svc.CloseSlot(ctx, slots[0].ID); err != nil {
		t.Fatalf("CloseSlot() failed: %v", err)
	}
	late := testutil.Enroll(t, env.Svc, s.ID, "emp-2", "")
	run(t, srv, []httpTest{
		{
			name: "Slot closed", method: http.MethodPost, path: signPath,
			body:     []byte(fmt.Sprintf(`{"enrollment_token": %q, "signature": "Late"}`, late.Token)),
			wantCode: http.StatusConflict, wantData: slotNotOpen,
		},
	})
}

func Test_publicApi_sheets(t *testing.T) {
	srv, env := setup(t)
	s, slots := testutil.ActiveSession(t, env.Svc, session.ModeGlobal, testutil.Date(2026, 3, 10), testutil.Date(2026, 3, 10))
	_, foreign := testutil.ActiveSession(t, env.Svc, session.ModeGlobal, testutil.Date(2026, 3, 10), testutil.Date(2026, 3, 10))
	enr := testutil.Enroll(t, env.Svc, s.ID, "emp-1", "")
	sessionPath := "/v1/public/sessions/" + s.AccessToken
	unknownToken := marchallObj(t, map[string]string{"error": session.ErrUnknownToken.Error(), "code": "unknown_token"})

	run(t, srv, []httpTest{
		{name: "Unknown session token", path: "/v1/public/sessions/nope", wantCode: http.StatusNotFound, wantData: unknownToken},
		{name: "Unknown slot token", path: "/v1/public/slots/nope", wantCode: http.StatusNotFound, wantData: unknownToken},
		{
			name: "Foreign slot", method: http.MethodPost, path: sessionPath + "/slots/" + foreign[0].ID + "/open",
			wantCode: http.StatusNotFound, wantData: unknownToken,
		},
		{name: "Open slot", method: http.MethodPost, path: sessionPath + "/slots/" + slots[0].ID + "/open", wantCode: http.StatusOK},
	})

	t.Run("Session sheet", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, sessionPath)
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v (%s)", rec.Code, rec.Body.String())
		}
		var sheet session.SessionSheet
		unmarshal(t, rec, &sheet)
		if sheet.Session.ID != s.ID || len(sheet.Slots) != 1 || sheet.Slots[0].Status != session.SlotOpen {
			t.Errorf("failed! sheet = %+v", sheet)
		}
		if len(sheet.Enrollments) != 1 || sheet.Enrollments[0].Token != enr.Token || sheet.Enrollments[0].Signed {
			t.Errorf("failed! enrollments = %+v", sheet.Enrollments)
		}
	})

	t.Run("Slot sheet", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/public/slots/"+slots[0].AccessToken)
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v (%s)", rec.Code, rec.Body.String())
		}
		var sheet session.SlotSheet
		unmarshal(t, rec, &sheet)
		if sheet.Slot.ID != slots[0].ID || sheet.Session.Location != s.Location || len(sheet.Enrollments) != 1 {
			t.Errorf("failed! sheet = %+v", sheet)
		}
		if strings.Contains(rec.Body.String(), enr.Token) {
			t.Errorf("failed! slot sheet exposes enrollment token: %s", rec.Body.String())
		}
	})

	run(t, srv, []httpTest{
		{name: "Close slot", method: http.MethodPost, path: sessionPath + "/slots/" + slots[0].ID + "/close", wantCode: http.StatusOK},
		{
			name: "Feedback", method: http.MethodPost, path: "/v1/public/enrollments/" + enr.Token + "/feedback",
			body: []byte(`{"feedback_id": "fb-42"}`), wantCode: http.StatusOK,
		},
		{
			name: "Feedback unknown token", method: http.MethodPost, path: "/v1/public/enrollments/nope/feedback",
			body: []byte(`{"feedback_id": "fb-42"}`), wantCode: http.StatusNotFound, wantData: unknownToken,
		},
	})

	enrs, err := env.Svc.Enrollments(ctx, s.ID)
	if err != nil {
		t.Fatalf("Enrollments() failed: %v", err)
	}
	if enrs[0].FeedbackID != "fb-42" {
		t.Errorf("FeedbackID = %q; want fb-42", enrs[0].FeedbackID)
	}
}

func Test_publicApi_rateLimit(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Conf.Server.PublicRateLimit = 0.001
	env.Conf.Server.PublicRateBurst = 2
	srv := newServer(env)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req, rec := newRequest(http.MethodGet, "/v1/public/sessions/nope")
		srv.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	want := []int{http.StatusNotFound, http.StatusNotFound, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d: code = %d; want %d", i, codes[i], want[i])
		}
	}
}
