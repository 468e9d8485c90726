package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPostJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		w.Write([]byte(`{"echo":"` + in["say"] + `"}`))
	}))
	defer server.Close()

	var out struct {
		Echo string `json:"echo"`
	}
	err := PostJSON(context.Background(), NewClient(), server.URL, "tok", map[string]string{"say": "hi"}, &out)
	if err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}
	if out.Echo != "hi" {
		t.Errorf("Echo = %q", out.Echo)
	}
}

func TestPostJSON_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("no token should mean no Authorization header")
		}
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"AuthenticationRequired"}`))
	}))
	defer server.Close()

	err := PostJSON(context.Background(), NewClient(), server.URL, "", struct{}{}, nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d", httpErr.StatusCode)
	}
	if httpErr.Body != `{"error":"AuthenticationRequired"}` {
		t.Errorf("Body = %q", httpErr.Body)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "abc", 10, "abc"},
		{"ascii cut", "abcdef", 4, "abcd"},
		{"rune boundary", "あいう", 6, "あい"},
		{"mid rune backs off", "あいう", 7, "あい"},
		{"mid first rune", "あ", 2, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.n)
			}
		})
	}
}

func TestPostJSON_LongJapaneseErrorBody(t *testing.T) {
	// 301 bytes: a plain byte cut at 300 would land inside the last rune
	body := "x" + strings.Repeat("詩", 100)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(body))
	}))
	defer server.Close()

	err := PostJSON(context.Background(), NewClient(), server.URL, "", struct{}{}, nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if !utf8.ValidString(httpErr.Body) {
		t.Errorf("Body is not valid UTF-8: %q", httpErr.Body)
	}
	if len(httpErr.Body) > 300 || !strings.HasPrefix(body, httpErr.Body) {
		t.Errorf("Body length = %d", len(httpErr.Body))
	}
}
