package webhook

import (
	"net/http"
	"testing"

	"github.com/pigeon-sms/pigeon/internal/intent"
)

func (f *handlerFixture) registerSMS() {
	f.app.Post("/api/sms", f.handler.SMS)
}

func TestSMSEndpointOnboard(t *testing.T) {
	f := newHandlerFixture(t, "")
	f.registerSMS()
	f.classifier.res = intent.Result{Intent: intent.TypeOnboard}

	status, body := f.post(t, "/api/sms", map[string]any{
		"from":     "+15551234",
		"message":  "create wallet",
		"password": "hunter2",
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	onboarding := body["onboarding"].(map[string]any)
	if onboarding["success"] != true || onboarding["address"] == "" {
		t.Fatalf("onboarding = %v", onboarding)
	}
	if body["intent"] != "onboard" {
		t.Fatalf("intent = %v", body["intent"])
	}
}

func TestSMSEndpointMessegeAlias(t *testing.T) {
	f := newHandlerFixture(t, "")
	f.registerSMS()
	f.classifier.res = intent.Result{Intent: intent.TypeUnknown}

	status, body := f.post(t, "/api/sms", map[string]any{
		"from":    "+15551234",
		"messege": "hello there",
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if body["message"] != "hello there" {
		t.Fatalf("message = %v", body["message"])
	}
}

func TestSMSEndpointMissingMessage(t *testing.T) {
	f := newHandlerFixture(t, "")
	f.registerSMS()

	status, body := f.post(t, "/api/sms", map[string]any{"from": "+15551234"}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d", status)
	}
	if body["ok"] != false {
		t.Fatalf("ok = %v", body["ok"])
	}
}

func TestSMSEndpointRequiresPassword(t *testing.T) {
	f := newHandlerFixture(t, "")
	f.registerSMS()
	f.classifier.res = intent.Result{Intent: intent.TypeSend, Params: intent.Params{Amount: "1", To: "5555678"}}

	status, body := f.post(t, "/api/sms", map[string]any{
		"from":    "+15551234",
		"message": "send 1 ALGO to 5555678",
	}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %v", status, body)
	}
}

func TestSMSEndpointOperationFailureKeepsClassification(t *testing.T) {
	f := newHandlerFixture(t, "")
	f.registerSMS()
	f.classifier.res = intent.Result{Intent: intent.TypeBalance}

	// Nobody is onboarded; the failure response still carries the intent.
	status, body := f.post(t, "/api/sms", map[string]any{
		"from":    "+15551234",
		"message": "balance",
	}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d", status)
	}
	if body["ok"] != false || body["intent"] != "get_balance" {
		t.Fatalf("body = %v", body)
	}
}
