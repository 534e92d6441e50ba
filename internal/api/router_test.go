// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/encore/internal/jobs"
	"github.com/tomtom215/encore/internal/progress"
	"github.com/tomtom215/encore/internal/resilience"
)

const testSecret = "s3cret-value"

type fakePipelines struct {
	mu    sync.Mutex
	calls []jobs.PipelineName
}

func (f *fakePipelines) Run(_ context.Context, name jobs.PipelineName) jobs.PipelineResult {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	return jobs.PipelineResult{
		Success:       true,
		Timestamp:     time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Results:       []jobs.JobResult{{JobType: jobs.JobTrending, JobID: "j1", Success: true}},
		TotalDuration: 42,
	}
}

type fakeJobs struct {
	gotType    jobs.JobType
	gotPayload string
	result     jobs.JobResult
}

func (f *fakeJobs) Execute(_ context.Context, t jobs.JobType, payload json.RawMessage, _ jobs.JobContext) jobs.JobResult {
	f.gotType, f.gotPayload = t, string(payload)
	res := f.result
	res.JobType = t
	return res
}

type fakeProgress map[string]*progress.SyncProgress

func (f fakeProgress) GetProgress(_ context.Context, id string) (*progress.SyncProgress, error) {
	if p, ok := f[id]; ok {
		return p, nil
	}
	return nil, progress.ErrNotFound
}

type fakeBreakers []resilience.BreakerMetrics

func (f fakeBreakers) Snapshot() []resilience.BreakerMetrics { return f }

type testServer struct {
	pipelines *fakePipelines
	jobs      *fakeJobs
	handler   http.Handler
}

func newTestServer(t *testing.T, acceptJWT bool) *testServer {
	t.Helper()
	ts := &testServer{
		pipelines: &fakePipelines{},
		jobs:      &fakeJobs{result: jobs.JobResult{Success: true}},
	}
	ts.handler = NewRouter(Deps{
		Pipelines: ts.pipelines,
		Jobs:      ts.jobs,
		Progress: fakeProgress{"a1": {
			ArtistID: "a1",
			Status:   progress.StatusSyncing,
		}},
		Breakers: fakeBreakers{{Name: "ticketmaster", State: resilience.StateClosed}},
		Auth:     NewSecretAuth(testSecret, acceptJWT),
	}).Handler()
	return ts
}

func (ts *testServer) do(method, target, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return m
}

func signedToken(t *testing.T, secret string, method jwt.SigningMethod, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(method, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestCronAuth(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		header string
	}{
		{"missing header", "", ""},
		{"wrong secret", "nope", ""},
		{"wrong scheme", "", "Basic " + testSecret},
		{"prefix of secret", testSecret[:4], ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, false)
			req := httptest.NewRequest(http.MethodPost, "/api/cron?job=all", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			ts.handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			body := decodeBody(t, rec)
			if body["success"] != false || body["error"] != "unauthorized" {
				t.Errorf("body = %v", body)
			}
			if len(ts.pipelines.calls) != 0 {
				t.Errorf("pipeline ran on unauthorized request")
			}
		})
	}
}

func TestCronRunsPipeline(t *testing.T) {
	ts := newTestServer(t, false)
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := ts.do(method, "/api/cron?job=trending", testSecret, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, body %s", method, rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		for _, k := range []string{"success", "timestamp", "results", "totalDuration"} {
			if _, ok := body[k]; !ok {
				t.Errorf("%s response missing %q: %v", method, k, body)
			}
		}
		if body["totalDuration"] != float64(42) {
			t.Errorf("totalDuration = %v", body["totalDuration"])
		}
	}
	if len(ts.pipelines.calls) != 2 || ts.pipelines.calls[0] != jobs.PipelineTrending {
		t.Errorf("calls = %v", ts.pipelines.calls)
	}
}

func TestCronUnknownPipeline(t *testing.T) {
	ts := newTestServer(t, false)
	for _, target := range []string{"/api/cron?job=everything", "/api/cron"} {
		rec := ts.do(http.MethodGet, target, testSecret, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", target, rec.Code)
		}
	}
	if len(ts.pipelines.calls) != 0 {
		t.Errorf("calls = %v", ts.pipelines.calls)
	}
}

func TestJWTAuth(t *testing.T) {
	valid := signedToken(t, testSecret, jwt.SigningMethodHS256, time.Now().Add(time.Hour))
	tests := []struct {
		name      string
		acceptJWT bool
		token     string
		want      int
	}{
		{"valid token", true, valid, http.StatusOK},
		{"jwt disabled", false, valid, http.StatusUnauthorized},
		{"expired", true, signedToken(t, testSecret, jwt.SigningMethodHS256, time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"other key", true, signedToken(t, "other", jwt.SigningMethodHS256, time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"other alg", true, signedToken(t, testSecret, jwt.SigningMethodHS512, time.Now().Add(time.Hour)), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.acceptJWT)
			if rec := ts.do(http.MethodGet, "/api/cron?job=all", tt.token, ""); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestEmptySecretRejectsEverything(t *testing.T) {
	a := NewSecretAuth("", true)
	if a.Valid("") || a.Valid("anything") {
		t.Error("empty secret accepted a token")
	}
}

func TestRunJob(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ts := newTestServer(t, false)
		rec := ts.do(http.MethodPost, "/api/jobs/artist-import", testSecret, `{"providerAttractionId":"K8"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if ts.jobs.gotType != jobs.JobArtistImport || ts.jobs.gotPayload != `{"providerAttractionId":"K8"}` {
			t.Errorf("got %q %q", ts.jobs.gotType, ts.jobs.gotPayload)
		}
	})

	t.Run("failed job", func(t *testing.T) {
		ts := newTestServer(t, false)
		ts.jobs.result = jobs.JobResult{Error: "invalid payload"}
		rec := ts.do(http.MethodPost, "/api/jobs/cleanup", testSecret, `{}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		ts := newTestServer(t, false)
		rec := ts.do(http.MethodPost, "/api/jobs/reindex", testSecret, `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if body := decodeBody(t, rec); body["error"] != "unknown job type: reindex" {
			t.Errorf("body = %v", body)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		ts := newTestServer(t, false)
		rec := ts.do(http.MethodPost, "/api/jobs/trending", testSecret, `{"entityIds":`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if ts.jobs.gotType != "" {
			t.Error("job ran with malformed body")
		}
	})
}

func TestImportProgress(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(http.MethodGet, "/api/imports/a1/progress", testSecret, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/api/imports/zz/progress", testSecret, ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing progress status = %d, want 404", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/api/imports/a1/progress", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rec.Code)
	}
}

func TestBreakersAndHealth(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(http.MethodGet, "/api/breakers", testSecret, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ticketmaster") {
		t.Errorf("breakers = %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(http.MethodGet, "/health/live", "", "")
	if rec.Code != http.StatusOK || decodeBody(t, rec)["alive"] != true {
		t.Errorf("live = %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}

	rec = ts.do(http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "api_requests_total") {
		t.Errorf("metrics = %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	h := NewRouter(Deps{
		Auth:      NewSecretAuth(testSecret, false),
		RateLimit: RateLimitConfig{Requests: 2, Window: time.Minute},
	}).Handler()

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}
}
