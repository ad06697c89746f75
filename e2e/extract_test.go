package e2e

import (
	"fmt"
	"net/http"
	"testing"
)

func pasteSubmitBody() string {
	return `{
		"sourceType": "paste",
		"text": "Carbonara\n\n400g spaghetti\n150g guanciale\n4 egg yolks\n\nBoil pasta, fry guanciale, combine off heat."
	}`
}

func TestExtractSubmit_Paste(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/extract/submit", pasteSubmitBody())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusAccepted)

	result := parseJSON(t, resp)
	if result["jobId"] == nil || result["jobId"] == "" {
		t.Error("expected 'jobId' in response")
	}
	if result["status"] != "pending" {
		t.Errorf("expected status 'pending', got %v", result["status"])
	}
}

func TestExtractSubmit_NoAuth(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/extract/submit", pasteSubmitBody(), nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestExtractSubmit_UnknownSourceType(t *testing.T) {
	ta := setupApp(t)

	body := `{"sourceType": "telegram", "text": "hi"}`
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/extract/submit", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}

func TestExtractSubmit_VideoWithoutURL(t *testing.T) {
	ta := setupApp(t)

	body := `{"sourceType": "video"}`
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/extract/submit", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}

func TestExtractSubmit_VoiceNeedsExactlyOneMediaKey(t *testing.T) {
	ta := setupApp(t)

	body := `{"sourceType": "voice", "mediaKeys": ["uploads/u/a.m4a", "uploads/u/b.m4a"]}`
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/extract/submit", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}

func TestExtractStatus_AfterSubmit(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/extract/submit", pasteSubmitBody())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	jobID := parseJSON(t, resp)["jobId"].(string)

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/extract/status/"+jobID, "")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)
	result := parseJSON(t, resp)
	if result["status"] != "pending" {
		t.Errorf("expected status 'pending', got %v", result["status"])
	}
	if result["progress"] != float64(0) {
		t.Errorf("expected progress 0, got %v", result["progress"])
	}
}

func TestExtractStatus_NotFound(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/extract/status/does-not-exist", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
}

func TestExtractResult_NotCompleted(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/extract/submit", pasteSubmitBody())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	jobID := parseJSON(t, resp)["jobId"].(string)

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/extract/result/"+jobID, "")
	if err != nil {
		t.Fatalf("result request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}

func TestExtractCancel_PendingJob(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/extract/submit", pasteSubmitBody())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	jobID := parseJSON(t, resp)["jobId"].(string)

	resp, err = doAuthRequest(t, ta.app, http.MethodPost, "/api/extract/cancel/"+jobID, "")
	if err != nil {
		t.Fatalf("cancel request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)
	result := parseJSON(t, resp)
	if result["status"] != "cancelled" {
		t.Errorf("expected status 'cancelled', got %v", result["status"])
	}

	// A second cancel hits a terminal job
	resp, err = doAuthRequest(t, ta.app, http.MethodPost, "/api/extract/cancel/"+jobID, "")
	if err != nil {
		t.Fatalf("second cancel failed: %v", err)
	}
	assertStatus(t, resp, http.StatusConflict)
}

func TestExtractResume_JobNotSuspended(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/extract/submit", pasteSubmitBody())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	jobID := parseJSON(t, resp)["jobId"].(string)

	body := fmt.Sprintf(`{"resumeToken": "%s", "mediaKey": "uploads/u/video.mp4"}`,
		"4d8ab0de-30ad-4fb9-a9c3-52a6f1b2a111")
	resp, err = doAuthRequest(t, ta.app, http.MethodPost, "/api/extract/resume/"+jobID, body)
	if err != nil {
		t.Fatalf("resume request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusConflict)
}

func TestExtractResume_InvalidTokenFormat(t *testing.T) {
	ta := setupApp(t)

	body := `{"resumeToken": "not-a-uuid", "mediaKey": "uploads/u/video.mp4"}`
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/extract/resume/some-job", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}
