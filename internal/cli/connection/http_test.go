package connection

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewHTTPClient(t *testing.T) {
	tests := []struct {
		name       string
		server     string
		wantPrefix string
	}{
		{"with http prefix", "http://localhost:5090", "http://localhost:5090"},
		{"with https prefix", "https://localhost:5090", "https://localhost:5090"},
		{"without prefix", "localhost:5090", "http://localhost:5090"},
		{"trailing slash", "http://csrf.example.com/", "http://csrf.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewHTTPClient(tt.server, 0)
			if err != nil {
				t.Fatalf("NewHTTPClient() error = %v", err)
			}
			if client.BaseURL() != tt.wantPrefix {
				t.Errorf("BaseURL() = %q, want %q", client.BaseURL(), tt.wantPrefix)
			}
		})
	}
}

func TestHTTPClient_KeepsCookies(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != UserAgent {
			t.Errorf("User-Agent = %q, want %q", r.Header.Get("User-Agent"), UserAgent)
		}
		if c, err := r.Cookie("sid"); err == nil {
			seen = append(seen, c.Value)
		} else {
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "ncss-1", Path: "/"})
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":"OK","data":{"n":1}}`))
	}))
	defer server.Close()

	client, _ := NewHTTPClient(server.URL, 0)
	for i := 0; i < 2; i++ {
		resp, err := client.Get(context.Background(), "/x")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		var data struct{ N int }
		if err := ParseResponse(resp, &data); err != nil {
			t.Fatalf("ParseResponse() error = %v", err)
		}
		if data.N != 1 {
			t.Errorf("data.N = %d, want 1", data.N)
		}
	}

	if len(seen) != 1 || seen[0] != "ncss-1" {
		t.Errorf("cookies sent = %v, want [ncss-1]", seen)
	}
}

func TestHTTPClient_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-CSRF-Token") != "tok" {
			t.Errorf("X-CSRF-Token = %q, want tok", r.Header.Get("X-CSRF-Token"))
		}
		w.Write([]byte(`{"code":"OK"}`))
	}))
	defer server.Close()

	client, _ := NewHTTPClient(server.URL, 0)
	header := http.Header{}
	header.Set("X-CSRF-Token", "tok")
	resp, err := client.Post(context.Background(), "/csrf/verify", map[string]string{"token": "tok"}, header)
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if err := ParseResponse(resp, nil); err != nil {
		t.Errorf("ParseResponse() error = %v", err)
	}
	if header.Get("Content-Type") != "" {
		t.Error("Post() modified the caller's header")
	}
}

func TestParseResponse_Error(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"envelope", `{"code":"NC-TOKN-4030","message":"csrf token mismatch","request_id":"req-1"}`, "NC-TOKN-4030"},
		{"not json", `forbidden`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, _ := NewHTTPClient(server.URL, 0)
			resp, err := client.Get(context.Background(), "/")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}

			err = ParseResponse(resp, nil)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("ParseResponse() error = %v, want *APIError", err)
			}
			if apiErr.Status != http.StatusForbidden || apiErr.Code != tt.wantCode {
				t.Errorf("APIError = %+v, want status 403 code %q", apiErr, tt.wantCode)
			}
		})
	}
}
