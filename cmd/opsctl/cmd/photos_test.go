package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestPhotosVerifyCommand_Single(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/photos/7" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["status"] != "verified" {
			t.Errorf("expected status verified, got %q", body["status"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7,"jobId":"job-1","filename":"kitchen.jpg","status":"verified","accuracyBand":"high"}`))
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	out, err := execute(t, "", "photos", "verify", "7")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(out, "Photo 7 is now verified") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestPhotosVerifyCommand_Bulk(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/photos/bulk-verify" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			PhotoIDs []int64 `json:"photoIds"`
			Status   string  `json:"status"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.PhotoIDs) != 3 || body.Status != "verified" {
			t.Errorf("unexpected body %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"updated":3,"status":"verified"}`))
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	out, err := execute(t, "", "photos", "verify", "1", "2", "3")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(out, "3 photos are now verified") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestPhotosRejectCommand_RequiresReason(t *testing.T) {
	resetViper()
	viper.Set("url", "http://127.0.0.1:1")

	_, err := execute(t, "", "photos", "reject", "7")
	if err == nil || !strings.Contains(err.Error(), "--reason") {
		t.Errorf("expected --reason error, got %v", err)
	}
}

func TestPhotosVerifyCommand_InvalidID(t *testing.T) {
	resetViper()
	viper.Set("url", "http://127.0.0.1:1")

	if _, err := execute(t, "", "photos", "verify", "abc"); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestPhotosShowCommand(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs/job-1/verification" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"summary": {"jobId":"job-1","total":2,"verified":1,"rejected":1,"pending":0,"score":50},
			"photos": [
				{"id":1,"filename":"hall.jpg","status":"verified","accuracyBand":"high"},
				{"id":2,"filename":"bath.jpg","status":"rejected","rejectionReason":"blurry","accuracyBand":"low"}
			]
		}`))
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	out, err := execute(t, "", "photos", "show", "job-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, want := range []string{"Job job-1: score 50% (1 verified, 1 rejected, 0 pending of 2)", "hall.jpg", "blurry"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}
