package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/nocsrf-go/internal/core/service"
	"github.com/yndnr/nocsrf-go/internal/server/httpserver/handler"
	"github.com/yndnr/nocsrf-go/internal/storage/memory"
	"github.com/yndnr/nocsrf-go/internal/telemetry/logger"
	"github.com/yndnr/nocsrf-go/internal/telemetry/metric"
)

const testCookieName = "nocsrf_sid"

type testEnv struct {
	srv     *httptest.Server
	client  *http.Client
	store   *memory.Store
	metrics *metric.Registry
}

func newTestEnv(t *testing.T, mutate func(*RouterConfig)) *testEnv {
	t.Helper()

	store := memory.New()
	svc := service.NewSessionService(store, &service.SessionServiceConfig{
		TTL:             time.Hour,
		MaxWriteRetries: 5,
	})
	reg := metric.NewRegistry()

	cfg := &RouterConfig{
		Sessions:       svc,
		Guard:          &service.Config{Logger: logger.Discard()},
		Cookie:         handler.Cookie{Name: testCookieName, SameSite: http.SameSiteLaxMode, MaxAge: time.Hour},
		Metrics:        reg,
		Logger:         logger.Discard(),
		ProtectMethods: []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		MetricsPath:    "/metrics",
	}
	if mutate != nil {
		mutate(cfg)
	}

	srv := httptest.NewServer(NewRouter(cfg))
	t.Cleanup(srv.Close)

	return &testEnv{
		srv:     srv,
		client:  newJarClient(t),
		store:   store,
		metrics: reg,
	}
}

func newJarClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New() error = %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

type envelope struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, client *http.Client, method, path string, body io.Reader, header map[string]string) (*http.Response, envelope) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp, env
}

func (e *testEnv) issueToken(t *testing.T, client *http.Client) handler.TokenResponse {
	t.Helper()
	resp, env := e.do(t, client, http.MethodGet, PathToken, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d, want 200 (%s)", PathToken, resp.StatusCode, env.Code)
	}
	var tok handler.TokenResponse
	if err := json.Unmarshal(env.Data, &tok); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	return tok
}

func TestRouter_IssueToken(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, env.client, http.MethodGet, PathToken, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var tok handler.TokenResponse
	if err := json.Unmarshal(body.Data, &tok); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tok.Token == "" {
		t.Fatal("token is empty")
	}
	if got := resp.Header.Get(service.DefaultHeaderName); got != tok.Token {
		t.Errorf("%s header = %q, want body token", service.DefaultHeaderName, got)
	}
	if got := resp.Header.Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
	if tok.FormField != service.DefaultFormField || tok.HeaderName != service.DefaultHeaderName {
		t.Errorf("names = (%q, %q), want defaults", tok.FormField, tok.HeaderName)
	}
	if resp.Header.Get(RequestIDHeader) == "" || body.RequestID != resp.Header.Get(RequestIDHeader) {
		t.Errorf("request_id = %q, header = %q", body.RequestID, resp.Header.Get(RequestIDHeader))
	}

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == testCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("session cookie not set")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie is not HttpOnly")
	}

	if got := testutil.ToFloat64(env.metrics.TokensIssued); got != 1 {
		t.Errorf("tokens issued = %v, want 1", got)
	}
	if got := testutil.ToFloat64(env.metrics.KeysGenerated); got != 0 {
		t.Errorf("keys generated = %v, want 0 without an instrumented generator", got)
	}
	if got := testutil.ToFloat64(env.metrics.SessionsStarted); got != 1 {
		t.Errorf("sessions started = %v, want 1", got)
	}
}

func TestRouter_SessionReusedAcrossRequests(t *testing.T) {
	env := newTestEnv(t, nil)

	first := env.issueToken(t, env.client)
	second := env.issueToken(t, env.client)
	if first.Token == "" || second.Token == "" {
		t.Fatal("empty token")
	}
	if n := env.store.Len(); n != 1 {
		t.Errorf("stored sessions = %d, want 1", n)
	}

	// Both tokens were minted from the same persisted key.
	for _, tok := range []string{first.Token, second.Token} {
		_, body := env.do(t, env.client, http.MethodPost, PathVerify,
			strings.NewReader(`{"token":"`+tok+`"}`),
			map[string]string{"Content-Type": "application/json"})
		var vr handler.VerifyResponse
		if err := json.Unmarshal(body.Data, &vr); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !vr.Valid {
			t.Errorf("verify(%q) = %+v, want valid", tok, vr)
		}
	}
}

func TestRouter_VerifyToken(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.issueToken(t, env.client).Token

	other := newJarClient(t)
	foreign := env.issueToken(t, other).Token

	tests := []struct {
		name       string
		body       string
		header     map[string]string
		wantValid  bool
		wantReason string
	}{
		{
			name:      "json body",
			body:      `{"token":"` + tok + `"}`,
			header:    map[string]string{"Content-Type": "application/json"},
			wantValid: true,
		},
		{
			name:      "form field",
			body:      service.DefaultFormField + "=" + url.QueryEscape(tok),
			header:    map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
			wantValid: true,
		},
		{
			name:      "header",
			header:    map[string]string{service.DefaultHeaderName: tok},
			wantValid: true,
		},
		{
			name:       "missing",
			wantReason: handler.ReasonMissing,
		},
		{
			name:       "malformed",
			header:     map[string]string{service.DefaultHeaderName: "garbage.1000"},
			wantReason: handler.ReasonMalformed,
		},
		{
			name:       "other session",
			header:     map[string]string{service.DefaultHeaderName: foreign},
			wantReason: handler.ReasonMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			resp, out := env.do(t, env.client, http.MethodPost, PathVerify, body, tt.header)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200 (%s)", resp.StatusCode, out.Code)
			}
			var vr handler.VerifyResponse
			if err := json.Unmarshal(out.Data, &vr); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if vr.Valid != tt.wantValid || vr.Reason != tt.wantReason {
				t.Errorf("verify = %+v, want {Valid:%v Reason:%q}", vr, tt.wantValid, tt.wantReason)
			}
		})
	}

	if got := testutil.ToFloat64(env.metrics.Verifications.WithLabelValues(metric.ResultValid)); got != 3 {
		t.Errorf("valid verifications = %v, want 3", got)
	}
	if got := testutil.ToFloat64(env.metrics.Verifications.WithLabelValues(metric.ResultMissing)); got != 1 {
		t.Errorf("missing verifications = %v, want 1", got)
	}
}

func TestRouter_ProtectRejectsUnsafeMethods(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.issueToken(t, env.client).Token

	tests := []struct {
		name     string
		header   map[string]string
		wantCode string
	}{
		{"missing token", nil, "NC-TOKN-4000"},
		{"garbage token", map[string]string{service.DefaultHeaderName: "garbage.1000"}, "NC-TOKN-4030"},
		{"tampered token", map[string]string{service.DefaultHeaderName: "0" + tok[1:]}, "NC-TOKN-4030"},
	}
	if tok[0] == '0' {
		tests[2].header[service.DefaultHeaderName] = "1" + tok[1:]
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, env.client, http.MethodPost, PathRevoke, nil, tt.header)
			if resp.StatusCode != http.StatusForbidden {
				t.Fatalf("status = %d, want 403", resp.StatusCode)
			}
			if body.Code != tt.wantCode || resp.Header.Get("X-Error-Code") != tt.wantCode {
				t.Errorf("code = %q (header %q), want %q", body.Code, resp.Header.Get("X-Error-Code"), tt.wantCode)
			}
		})
	}

	if n := env.store.Len(); n != 1 {
		t.Errorf("stored sessions = %d, want 1 after rejected revokes", n)
	}
}

func TestRouter_RevokeSession(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.issueToken(t, env.client).Token

	_, before := env.do(t, env.client, http.MethodGet, PathSession, nil, nil)
	var sess handler.SessionResponse
	if err := json.Unmarshal(before.Data, &sess); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !sess.KeyIssued {
		t.Error("key_issued = false after a token was issued")
	}

	resp, body := env.do(t, env.client, http.MethodPost, PathRevoke, nil,
		map[string]string{service.DefaultHeaderName: tok})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("revoke status = %d, want 200 (%s)", resp.StatusCode, body.Code)
	}
	var rr handler.RevokeResponse
	if err := json.Unmarshal(body.Data, &rr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !rr.Revoked || rr.SessionID != sess.SessionID {
		t.Errorf("revoke = %+v, want revoked %s", rr, sess.SessionID)
	}
	if got := testutil.ToFloat64(env.metrics.SessionsRevoked); got != 1 {
		t.Errorf("sessions revoked = %v, want 1", got)
	}

	// The old token no longer belongs to any session.
	_, after := env.do(t, env.client, http.MethodGet, PathSession, nil, nil)
	var next handler.SessionResponse
	if err := json.Unmarshal(after.Data, &next); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if next.SessionID == sess.SessionID {
		t.Error("revoked session was resumed")
	}
	if next.KeyIssued {
		t.Error("new session already has a key")
	}
}

func TestRouter_GetSession(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, env.client, http.MethodGet, PathSession, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var sess handler.SessionResponse
	if err := json.Unmarshal(body.Data, &sess); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(sess.SessionID, "ncss-") {
		t.Errorf("session_id = %q, want ncss- prefix", sess.SessionID)
	}
	if sess.CreatedAt.IsZero() || sess.ExpiresAt == nil {
		t.Errorf("session times = %+v, want created and expiry set", sess)
	}
	if sess.KeyIssued {
		t.Error("key_issued = true before any token")
	}
}

func TestRouter_HealthAndReady(t *testing.T) {
	env := newTestEnv(t, nil)
	env.issueToken(t, env.client)

	resp, body := env.do(t, env.client, http.MethodGet, PathHealth, nil, nil)
	if resp.StatusCode != http.StatusOK || body.Code != "OK" {
		t.Fatalf("health = %d %q, want 200 OK", resp.StatusCode, body.Code)
	}
	for _, c := range resp.Cookies() {
		if c.Name == testCookieName {
			t.Error("health check set a session cookie")
		}
	}

	resp, body = env.do(t, env.client, http.MethodGet, PathReady, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ready status = %d, want 200", resp.StatusCode)
	}
	var hr handler.HealthResponse
	if err := json.Unmarshal(body.Data, &hr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if hr.Status != "ready" || hr.Sessions == nil || *hr.Sessions != 1 {
		t.Errorf("ready = %+v, want ready with 1 session", hr)
	}
}

func TestRouter_Metrics(t *testing.T) {
	env := newTestEnv(t, nil)
	env.issueToken(t, env.client)

	resp, err := env.client.Get(env.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	for _, name := range []string{
		"nocsrf_csrf_tokens_issued_total",
		"nocsrf_http_requests_total",
	} {
		if !strings.Contains(string(raw), name) {
			t.Errorf("/metrics missing %s", name)
		}
	}
}

func TestRouter_RateLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *RouterConfig) {
		cfg.RateLimit = 0.001
		cfg.RateBurst = 1
	})

	resp, _ := env.do(t, env.client, http.MethodGet, PathSession, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first status = %d, want 200", resp.StatusCode)
	}

	resp, body := env.do(t, env.client, http.MethodGet, PathSession, nil, nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", resp.StatusCode)
	}
	if body.Code != "NC-SYS-4290" {
		t.Errorf("code = %q, want NC-SYS-4290", body.Code)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("Retry-After not set")
	}
	if got := testutil.ToFloat64(env.metrics.RateLimited); got != 1 {
		t.Errorf("rate limited = %v, want 1", got)
	}
}

func TestRouter_CustomNames(t *testing.T) {
	env := newTestEnv(t, func(cfg *RouterConfig) {
		cfg.Guard = &service.Config{FormField: "csrf", HeaderName: "X-XSRF-Token", Logger: logger.Discard()}
	})

	resp, body := env.do(t, env.client, http.MethodGet, PathToken, nil, nil)
	var tok handler.TokenResponse
	if err := json.Unmarshal(body.Data, &tok); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tok.FormField != "csrf" || tok.HeaderName != "X-XSRF-Token" {
		t.Errorf("names = (%q, %q), want (csrf, X-XSRF-Token)", tok.FormField, tok.HeaderName)
	}
	if resp.Header.Get("X-XSRF-Token") != tok.Token {
		t.Error("token not echoed in the custom header")
	}

	resp, _ = env.do(t, env.client, http.MethodPost, PathRevoke,
		strings.NewReader("csrf="+url.QueryEscape(tok.Token)),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("revoke with custom form field status = %d, want 200", resp.StatusCode)
	}
}
