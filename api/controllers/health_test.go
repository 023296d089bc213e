package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/medicalcare-backend/pkg/config"
)

type stubPinger struct {
	err   error
	calls int
}

func (s *stubPinger) Ping(context.Context) error {
	s.calls++
	return s.err
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	rec := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if rec.Header().Get("X-Medcare-Env") != "dev" {
		t.Fatalf("missing env header")
	}
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	dbP := &stubPinger{}
	redisP := &stubPinger{}

	rec := httptest.NewRecorder()
	HealthReady(cfg, nil, dbP, redisP).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if dbP.calls != 1 || redisP.calls != 1 {
		t.Fatalf("expected one ping each, got db=%d redis=%d", dbP.calls, redisP.calls)
	}

	var envelope struct {
		Data struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Checks["redis"] != "ok" || envelope.Data.Checks["database"] != "ok" {
		t.Fatalf("unexpected checks %+v", envelope.Data.Checks)
	}
}

func TestHealthReadyDatabaseDown(t *testing.T) {
	cfg := &config.Config{}
	dbP := &stubPinger{err: errors.New("dial tcp: connection refused")}
	redisP := &stubPinger{}

	rec := httptest.NewRecorder()
	HealthReady(cfg, nil, dbP, redisP).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
	if redisP.calls != 0 {
		t.Fatalf("redis should not be pinged after a database failure")
	}
}

func TestHealthReadyWithoutDatabase(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthReady(&config.Config{}, nil, nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}
