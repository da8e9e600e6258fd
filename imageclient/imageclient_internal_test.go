package imageclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hazyhaar/sensenrich/envelope"
)

// These tests exercise Fetch's HTTP logic directly against an
// httptest.Server, bypassing New's SSRF guard (loopback is the guard's
// very target, and httptest always binds to 127.0.0.1).

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req envelope.ImageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ID != "sensor-1" {
			t.Fatalf("expected id sensor-1, got %q", req.ID)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(envelope.ImageResponse{Image: "abc"})
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	img, err := c.Fetch(context.Background(), envelope.ImageRequest{ID: "sensor-1", TimeSec: 1, Fraction: 2})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if img != "abc" {
		t.Fatalf("expected image abc, got %q", img)
	}
}

func TestFetch_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	_, err := c.Fetch(context.Background(), envelope.ImageRequest{ID: "sensor-1"})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	var apiErr *ErrAPIError
	if !asAPIError(err, &apiErr) {
		t.Fatalf("expected ErrAPIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", apiErr.StatusCode)
	}
}

func TestFetch_MissingImageField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	_, err := c.Fetch(context.Background(), envelope.ImageRequest{ID: "sensor-1"})
	if err == nil {
		t.Fatal("expected error for missing image field")
	}
}

func asAPIError(err error, target **ErrAPIError) bool {
	apiErr, ok := err.(*ErrAPIError)
	if !ok {
		return false
	}
	*target = apiErr
	return true
}
