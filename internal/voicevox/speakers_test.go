package voicevox

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testSpeakers = `[
 {"name":"四国めたん","speaker_uuid":"7ffcb7ce","styles":[{"name":"ノーマル","id":2},{"name":"あまあま","id":0}],"version":"0.14.0"},
 {"name":"ずんだもん","speaker_uuid":"388f246b","styles":[{"name":"ノーマル","id":3},{"name":"あまあま","id":1}],"version":"0.14.0"}
]`

func TestSpeakers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/speakers" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, testSpeakers)
	}))
	defer server.Close()

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	speakers, err := c.Speakers(context.Background())
	if err != nil {
		t.Fatalf("Speakers failed: %v", err)
	}
	if len(speakers) != 2 {
		t.Fatalf("expected 2 speakers, got %d", len(speakers))
	}

	sp, st, ok := FindStyle(speakers, 1)
	if !ok || sp.Name != "ずんだもん" || st.Name != "あまあま" {
		t.Errorf("FindStyle(1) = %v %v %v", sp.Name, st.Name, ok)
	}
	if _, _, ok := FindStyle(speakers, 99); ok {
		t.Error("FindStyle(99) should not match")
	}
}

func TestSpeakers_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c, _ := NewClient(server.URL)
	_, err := c.Speakers(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 StatusError, got %v", err)
	}
}

func TestVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `"0.14.7"`)
	}))
	defer server.Close()

	c, _ := NewClient(server.URL)
	v, err := c.Version(context.Background())
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if v != "0.14.7" {
		t.Errorf("Version = %q, want 0.14.7", v)
	}
}

func TestVersion_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "0.14.7\n")
	}))
	defer server.Close()

	c, _ := NewClient(server.URL)
	v, err := c.Version(context.Background())
	if !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("expected ErrInvalidJSON, got %v", err)
	}
	if v != "" {
		t.Errorf("Version = %q, want empty on error", v)
	}
}
