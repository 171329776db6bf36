//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestHealthProbes(t *testing.T) {
	// Both probes are healthy once the suite is running: the server is up and
	// the postgres readiness check passes against the compose database.
	for _, path := range []string{"/livez", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			resp := doGet(t, path)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type: got %q, want application/json", ct)
			}

			body := decodeJSON[healthResponse](t, resp)
			if body.Status != "ok" {
				t.Fatalf("expected status ok, got %q", body.Status)
			}
			if len(body.Checks) != 0 {
				t.Errorf("healthy probe reported check failures: %v", body.Checks)
			}
		})
	}
}
