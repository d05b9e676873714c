package judgeclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	appErr "cpenv/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{
		BaseURL:   srv.URL,
		TokenPath: filepath.Join(t.TempDir(), "token"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}

func loginClient(t *testing.T, c *Client) {
	t.Helper()
	exp := time.Now().Add(time.Hour)
	if err := c.tokens.Save(signedToken(t, &exp)); err != nil {
		t.Fatalf("seed token: %v", err)
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("missing base URL must be rejected")
	}
}

func TestLogin_SavesToken(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	var mux http.ServeMux
	token := ""
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode login body: %v", err)
		}
		if body["username"] != "alice" {
			t.Errorf("username = %q", body["username"])
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
	})
	c, _ := newTestClient(t, &mux)
	token = signedToken(t, &exp)

	if err := c.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := c.tokens.Load(); err != nil {
		t.Fatalf("token not persisted: %v", err)
	}
}

func TestLogin_EmptyTokenRejected(t *testing.T) {
	var mux http.ServeMux
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	})
	c, _ := newTestClient(t, &mux)
	err := c.Login(context.Background(), "alice", "secret")
	if !appErr.Is(err, appErr.JudgeRequestFailed) {
		t.Fatalf("expected JudgeRequestFailed, got %v", err)
	}
}

func TestSubmit_PostsSource(t *testing.T) {
	var mux http.ServeMux
	mux.HandleFunc("POST /api/contests/abc123/problems/a/submissions", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			t.Error("missing bearer token")
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["source"] != "int main() {}\n" {
			t.Errorf("source = %q", body["source"])
		}
		if body["language"] != "cpp" {
			t.Errorf("language = %q", body["language"])
		}
		_ = json.NewEncoder(w).Encode(Submission{ID: 42, Status: "queued"})
	})
	c, _ := newTestClient(t, &mux)
	loginClient(t, c)

	src := filepath.Join(t.TempDir(), "main.cpp")
	if err := os.WriteFile(src, []byte("int main() {}\n"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	sub, err := c.Submit(context.Background(), "abc123", "a", "cpp", src)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.ID != 42 || sub.Status != "queued" {
		t.Fatalf("submission = %+v", sub)
	}
}

func TestSubmit_WithoutToken(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())
	_, err := c.Submit(context.Background(), "abc123", "a", "cpp", "/no/such/file")
	if !appErr.Is(err, appErr.TokenInvalid) {
		t.Fatalf("expected TokenInvalid, got %v", err)
	}
}

func TestSubmissionStatus(t *testing.T) {
	var mux http.ServeMux
	mux.HandleFunc("GET /api/submissions/42", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Submission{ID: 42, Status: "done", Verdict: "AC", TimeMs: 120})
	})
	c, _ := newTestClient(t, &mux)
	loginClient(t, c)

	sub, err := c.SubmissionStatus(context.Background(), 42)
	if err != nil {
		t.Fatalf("SubmissionStatus: %v", err)
	}
	if sub.Verdict != "AC" {
		t.Fatalf("verdict = %q", sub.Verdict)
	}
}

func TestProblemPack(t *testing.T) {
	var mux http.ServeMux
	mux.HandleFunc("GET /api/contests/abc123/problems/a/testdata", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"pack_key":  "packs/abc123/a.tar.zst",
			"pack_hash": "cafe",
		})
	})
	c, _ := newTestClient(t, &mux)
	loginClient(t, c)

	meta, err := c.ProblemPack(context.Background(), "abc123", "a")
	if err != nil {
		t.Fatalf("ProblemPack: %v", err)
	}
	if meta.PackKey != "packs/abc123/a.tar.zst" || meta.Contest != "abc123" {
		t.Fatalf("meta = %+v", meta)
	}
}

func TestDo_UnauthorizedBecomesTokenExpired(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	loginClient(t, c)

	_, err := c.SubmissionStatus(context.Background(), 1)
	if !appErr.Is(err, appErr.TokenExpired) {
		t.Fatalf("expected TokenExpired, got %v", err)
	}
}

func TestDo_ServerErrorCarriesSnippet(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database exploded", http.StatusInternalServerError)
	}))
	loginClient(t, c)

	_, err := c.SubmissionStatus(context.Background(), 1)
	if !appErr.Is(err, appErr.JudgeRequestFailed) {
		t.Fatalf("expected JudgeRequestFailed, got %v", err)
	}
}
