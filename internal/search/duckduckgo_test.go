package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const sampleLiteHTML = `
<table>
  <tr><td><a rel="nofollow" class='result-link' href='https://example.com/wx'>Weather in Mumbai - 27&#x27;s forecast</a></td></tr>
  <tr><td class='result-snippet'>Currently 27&#176;c with light rain &amp; high humidity</td></tr>
  <tr><td><a rel="nofollow" class='result-link' href='https://example.org'>Mumbai climate</a></td></tr>
  <tr><td class='result-snippet'>Monsoon season continues</td></tr>
</table>`

func TestFlattenResults(t *testing.T) {
	text := FlattenResults(sampleLiteHTML)
	lines := strings.Split(text, "\n")
	if len(lines) != 2 {
		t.Fatalf("FlattenResults produced %d lines, want 2:\n%s", len(lines), text)
	}
	if !strings.Contains(lines[0], "Weather in Mumbai") {
		t.Errorf("first line missing title: %q", lines[0])
	}
	if !strings.Contains(lines[0], "light rain & high humidity") {
		t.Errorf("first line missing decoded snippet: %q", lines[0])
	}
	if !strings.Contains(lines[1], "Monsoon season") {
		t.Errorf("second line missing snippet: %q", lines[1])
	}
}

func TestFlattenResultsEmptyPage(t *testing.T) {
	if got := FlattenResults("<html><body>no results</body></html>"); got != "" {
		t.Fatalf("FlattenResults on empty page = %q, want empty", got)
	}
}

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a &amp; b", "a & b"},
		{"<b>bold</b> text", "bold text"},
		{"  spaced&nbsp;out  ", "spaced out"},
	}
	for _, tc := range tests {
		if got := cleanHTML(tc.in); got != tc.want {
			t.Errorf("cleanHTML(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDuckDuckGoSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("q"); got != "weather mumbai" {
			t.Errorf("query = %q, want %q", got, "weather mumbai")
		}
		_, _ = w.Write([]byte(sampleLiteHTML))
	}))
	defer srv.Close()

	d := NewDuckDuckGo(srv.URL, 5*time.Second)
	text, err := d.Search(context.Background(), "weather mumbai")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !strings.Contains(text, "light rain") {
		t.Errorf("Search() text missing snippet content: %q", text)
	}
}

func TestDuckDuckGoSearchEmptyQuery(t *testing.T) {
	d := NewDuckDuckGo("", time.Second)
	if _, err := d.Search(context.Background(), "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("Search(blank) error = %v, want ErrEmptyQuery", err)
	}
}

func TestDuckDuckGoSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewDuckDuckGo(srv.URL, time.Second)
	if _, err := d.Search(context.Background(), "anything"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("Search() error = %v, want ErrUpstream", err)
	}
}

func TestDuckDuckGoSearchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body></body></html>"))
	}))
	defer srv.Close()

	d := NewDuckDuckGo(srv.URL, time.Second)
	if _, err := d.Search(context.Background(), "anything"); !errors.Is(err, ErrNoResults) {
		t.Fatalf("Search() error = %v, want ErrNoResults", err)
	}
}
