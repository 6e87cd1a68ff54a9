// Package e2e drives the quill binary in a pseudo-terminal against an
// in-memory API.
package e2e

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abelbrown/quill/internal/blog"
	"github.com/abelbrown/quill/internal/stub"
)

// startAPI serves a stub backend with twelve posts ("Post 1".."Post 12")
// and returns its base URL.
func startAPI(t *testing.T) string {
	t.Helper()
	backend := stub.New()
	writer, _, err := backend.AddUser("Writer", "writer@example.com", "writer123", blog.RoleUser)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	backend.SeedPosts(writer, 12)

	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", backend))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}
