package tokenstore

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "messmate", "tokens.json"))
}

func TestSetGet_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	if _, ok := s.Get(); ok {
		t.Fatalf("empty store must read as absent")
	}
	if s.IsAuthenticated() {
		t.Fatalf("empty store must not be authenticated")
	}

	want := TokenPair{Access: "a", Refresh: "b"}
	if err := s.Set(want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := s.Get()
	if !ok || got != want {
		t.Fatalf("Get = %+v, %v; want %+v, true", got, ok, want)
	}
	if !s.IsAuthenticated() {
		t.Fatalf("store with tokens must be authenticated")
	}
}

func TestGet_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	if err := New(path).Set(TokenPair{Access: "tok1", Refresh: "ref1"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A fresh store over the same path sees the pair: durable, not in-memory.
	got, ok := New(path).Get()
	if !ok || got.Access != "tok1" || got.Refresh != "ref1" {
		t.Fatalf("reopened store Get = %+v, %v", got, ok)
	}
}

func TestClear_Idempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.Set(TokenPair{Access: "a", Refresh: "b"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := s.Get(); ok {
		t.Fatalf("Get after Clear must be absent")
	}
	if s.IsAuthenticated() {
		t.Fatalf("IsAuthenticated after Clear must be false")
	}
	// Second clear is harmless.
	if err := s.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestGet_NeverReturnsHalfPair(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing refresh", `{"access_token":"a"}`},
		{"missing access", `{"refresh_token":"b"}`},
		{"empty strings", `{"access_token":"","refresh_token":""}`},
		{"corrupt json", `{not json`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tokens.json")
			if err := os.WriteFile(path, []byte(tc.body), 0o600); err != nil {
				t.Fatalf("write fixture: %v", err)
			}
			if got, ok := New(path).Get(); ok {
				t.Fatalf("half-filled file must read as absent, got %+v", got)
			}
		})
	}
}
