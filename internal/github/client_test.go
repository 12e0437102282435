package github

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchUserSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/octocat" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization header %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.github+json" {
			t.Errorf("accept header %q", got)
		}
		if got := r.Header.Get("X-GitHub-Api-Version"); got != "2022-11-28" {
			t.Errorf("api version header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"login": "octocat",
			"avatar_url": "https://avatars.example.com/octocat",
			"html_url": "https://github.com/octocat",
			"followers": 100
		}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(srv.URL, "test-token", testLogger())
	profile, err := c.FetchUser(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("FetchUser: %v", err)
	}
	if profile.Login != "octocat" || profile.HTMLURL != "https://github.com/octocat" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestFetchUserOmitsAuthorizationWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("unexpected authorization header %q", got)
		}
		_, _ = w.Write([]byte(`{"login":"octocat"}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(srv.URL, "", testLogger())
	if _, err := c.FetchUser(context.Background(), "octocat"); err != nil {
		t.Fatalf("FetchUser: %v", err)
	}
}

func TestFetchUserNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(srv.URL, "", testLogger())
	_, err := c.FetchUser(context.Background(), "nobody")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestFetchUserServerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(srv.URL, "", testLogger())
	_, err := c.FetchUser(context.Background(), "octocat")
	if err == nil || errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected a generic error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single lookup attempt, got %d", calls.Load())
	}
}
