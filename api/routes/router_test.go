package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/angelmondragon/medicalcare-backend/api/controllers"
	"github.com/angelmondragon/medicalcare-backend/internal/applications"
	"github.com/angelmondragon/medicalcare-backend/internal/institutions"
	"github.com/angelmondragon/medicalcare-backend/pkg/config"
	"github.com/angelmondragon/medicalcare-backend/pkg/db"
	"github.com/angelmondragon/medicalcare-backend/pkg/db/models"
	"github.com/angelmondragon/medicalcare-backend/pkg/logger"
	"github.com/angelmondragon/medicalcare-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/medicalcare-backend/pkg/redis"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type routerOptions struct {
	redisPinger      *stubPinger
	idempotencyStore pkgredis.IdempotencyStore
}

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Env: "test"},
		HTTP:     config.HTTPConfig{AllowedOrigins: []string{"*"}},
		Workflow: config.WorkflowConfig{NumberMaxAttempts: 5},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, opts routerOptions) http.Handler {
	t.Helper()

	conn, err := db.Open(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&models.MedicalInstitution{}, &models.Application{}))
	t.Cleanup(func() { _ = sqlDB.Close() })
	client := db.NewFromConn(conn)

	logg := logger.Nop()
	reg := prometheus.NewRegistry()

	institutionRepo := institutions.NewRepository(client.DB())
	institutionSvc, err := institutions.NewService(institutionRepo, client, logg)
	require.NoError(t, err)
	applicationSvc, err := applications.NewService(applications.NewRepository(client.DB()), client, cfg.Workflow, metrics.NewWorkflowMetrics(reg), logg)
	require.NoError(t, err)

	var redisP controllers.Pinger
	if opts.redisPinger != nil {
		redisP = *opts.redisPinger
	}

	return NewRouter(cfg, logg, reg, metrics.NewHTTPMetrics(reg), client, redisP, opts.idempotencyStore, applicationSvc, institutionSvc)
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(v)
	default:
		payload, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func createInstitution(t *testing.T, h http.Handler, code string) institutions.InstitutionDTO {
	t.Helper()
	rec, env := do(t, h, http.MethodPost, "/medical-institutions", map[string]any{
		"institutionCode": code,
		"institutionName": "Clinic " + code,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeData[institutions.InstitutionDTO](t, env)
}

func createApplication(t *testing.T, h http.Handler, institutionID int64) applications.ApplicationDTO {
	t.Helper()
	rec, env := do(t, h, http.MethodPost, "/applications", map[string]any{
		"institutionId":   institutionID,
		"applicationType": "LICENSE",
		"title":           "Operating license",
		"description":     "Renewal",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeData[applications.ApplicationDTO](t, env)
}

func TestApplicationLifecycleOverHTTP(t *testing.T) {
	h := newTestRouter(t, testConfig(), routerOptions{})

	inst := createInstitution(t, h, "H001")
	assert.Equal(t, "ACTIVE", string(inst.Status))

	app := createApplication(t, h, inst.ID)
	assert.Regexp(t, applications.NumberPattern, app.ApplicationNumber)
	assert.Equal(t, "DRAFT", string(app.Status))
	assert.Equal(t, int64(1), app.Version)

	rec, env := do(t, h, http.MethodPost, "/applications/"+itoa(app.ID)+"/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	submitted := decodeData[applications.ApplicationDTO](t, env)
	assert.Equal(t, "SUBMITTED", string(submitted.Status))
	assert.Equal(t, int64(2), submitted.Version)
	assert.NotNil(t, submitted.SubmittedAt)

	rec, env = do(t, h, http.MethodPost, "/applications/"+itoa(app.ID)+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decodeData[applications.ApplicationDTO](t, env)
	assert.Equal(t, "APPROVED", string(approved.Status))
	assert.Equal(t, int64(3), approved.Version)
	assert.NotNil(t, approved.ApprovedAt)

	rec, env = do(t, h, http.MethodGet, "/applications/number/"+app.ApplicationNumber, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, app.ID, decodeData[applications.ApplicationDTO](t, env).ID)

	rec, env = do(t, h, http.MethodGet, "/applications/status/APPROVED", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]applications.ApplicationDTO](t, env), 1)

	rec, env = do(t, h, http.MethodGet, "/applications/institution/"+itoa(inst.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]applications.ApplicationDTO](t, env), 1)

	rec, env = do(t, h, http.MethodGet, "/applications/type/LICENSE", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]applications.ApplicationDTO](t, env), 1)

	rec, env = do(t, h, http.MethodGet, "/applications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]applications.ApplicationDTO](t, env), 1)

	rec, env = do(t, h, http.MethodGet, "/applications/"+itoa(app.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), decodeData[applications.ApplicationDTO](t, env).Version)
}

func TestApplicationResponseUsesCamelCase(t *testing.T) {
	h := newTestRouter(t, testConfig(), routerOptions{})
	inst := createInstitution(t, h, "H002")

	rec, _ := do(t, h, http.MethodPost, "/applications", map[string]any{"institutionId": inst.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, field := range []string{`"applicationNumber"`, `"institutionId"`, `"rejectionReason"`, `"submittedAt"`, `"createdAt"`, `"version"`} {
		assert.Contains(t, body, field)
	}
}

func TestInvalidTransitionReturnsBadRequest(t *testing.T) {
	h := newTestRouter(t, testConfig(), routerOptions{})
	inst := createInstitution(t, h, "H003")
	app := createApplication(t, h, inst.ID)

	rec, env := do(t, h, http.MethodPost, "/applications/"+itoa(app.ID)+"/approve", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_STATE", env.Error.Code)

	rec, env = do(t, h, http.MethodGet, "/applications/"+itoa(app.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	unchanged := decodeData[applications.ApplicationDTO](t, env)
	assert.Equal(t, "DRAFT", string(unchanged.Status))
	assert.Equal(t, int64(1), unchanged.Version)
}

func TestRejectRequiresReason(t *testing.T) {
	h := newTestRouter(t, testConfig(), routerOptions{})
	inst := createInstitution(t, h, "H004")
	app := createApplication(t, h, inst.ID)
	path := "/applications/" + itoa(app.ID)

	rec, _ := do(t, h, http.MethodPost, path+"/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, h, http.MethodPost, path+"/reject", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "is required", env.Error.Details["rejectionReason"])

	rec, env = do(t, h, http.MethodPost, path+"/reject", map[string]any{"rejectionReason": "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	rec, env = do(t, h, http.MethodPost, path+"/reject", map[string]any{"rejectionReason": "missing documents"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rejected := decodeData[applications.ApplicationDTO](t, env)
	assert.Equal(t, "REJECTED", string(rejected.Status))
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "missing documents", *rejected.RejectionReason)
}

func TestRejectChecksRecordAndStatusBeforeReason(t *testing.T) {
	h := newTestRouter(t, testConfig(), routerOptions{})

	rec, env := do(t, h, http.MethodPost, "/applications/99999/reject", map[string]any{})
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	inst := createInstitution(t, h, "H010")
	app := createApplication(t, h, inst.ID)
	path := "/applications/" + itoa(app.ID)

	rec, env = do(t, h, http.MethodPost, path+"/reject", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_STATE", env.Error.Code)

	for _, op := range []string{"/submit", "/approve"} {
		rec, _ = do(t, h, http.MethodPost, path+op, nil)
		require.Equal(t, http.StatusOK, rec.Code, op)
	}

	for _, body := range []map[string]any{{}, {"rejectionReason": "late"}} {
		rec, env = do(t, h, http.MethodPost, path+"/reject", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		assert.Equal(t, "INVALID_STATE", env.Error.Code)
	}

	rec, env = do(t, h, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decodeData[applications.ApplicationDTO](t, env)
	assert.Equal(t, "APPROVED", string(stored.Status))
	assert.Equal(t, int64(3), stored.Version)
}

func TestUpdateMissingApplicationIsNotFoundBeforeInstitutionCheck(t *testing.T) {
	h := newTestRouter(t, testConfig(), routerOptions{})

	rec, env := do(t, h, http.MethodPut, "/applications/99999", map[string]any{"institutionId": 424242, "status": "DRAFT"})
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	inst := createInstitution(t, h, "H011")
	app := createApplication(t, h, inst.ID)
	rec, env = do(t, h, http.MethodPut, "/applications/"+itoa(app.ID), map[string]any{"institutionId": 424242, "status": "DRAFT"})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestDeleteMissingResourcesReturnsNotFound(t *testing.T) {
	h := newTestRouter(t, testConfig(), routerOptions{})

	for _, path := range []string{"/applications/99999", "/medical-institutions/99999"} {
		rec, env := do(t, h, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		require.NotNil(t, env.Error, path)
		assert.Equal(t, "NOT_FOUND", env.Error.Code, path)
	}
}

func TestDeleteReturnsNoContent(t *testing.T) {
	h := newTestRouter(t, testConfig(), routerOptions{})
	inst := createInstitution(t, h, "H005")
	app := createApplication(t, h, inst.ID)

	rec, _ := do(t, h, http.MethodDelete, "/applications/"+itoa(app.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())

	rec, _ = do(t, h, http.MethodGet, "/applications/"+itoa(app.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodDelete, "/medical-institutions/"+itoa(inst.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMalformedIDIsValidationError(t *testing.T) {
	h := newTestRouter(t, testConfig(), routerOptions{})

	for _, path := range []string{"/applications/abc", "/applications/-4", "/medical-institutions/0"} {
		rec, env := do(t, h, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		require.NotNil(t, env.Error, path)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code, path)
	}
}

func TestCreateApplicationValidation(t *testing.T) {
	h := newTestRouter(t, testConfig(), routerOptions{})

	rec, env := do(t, h, http.MethodPost, "/applications", map[string]any{"title": "no institution"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "is required", env.Error.Details["institutionId"])

	rec, env = do(t, h, http.MethodPost, "/applications", map[string]any{"institutionId": 42})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	rec, env = do(t, h, http.MethodPost, "/applications", `{"institutionId":1,"unexpected":true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestInstitutionEndpoints(t *testing.T) {
	h := newTestRouter(t, testConfig(), routerOptions{})
	inst := createInstitution(t, h, "H006")

	rec, env := do(t, h, http.MethodPost, "/medical-institutions", map[string]any{
		"institutionCode": "H006",
		"institutionName": "Duplicate",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	rec, env = do(t, h, http.MethodGet, "/medical-institutions/code/H006", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, inst.ID, decodeData[institutions.InstitutionDTO](t, env).ID)

	rec, env = do(t, h, http.MethodPut, "/medical-institutions/"+itoa(inst.ID), map[string]any{
		"institutionCode": "H006",
		"institutionName": "Renamed clinic",
		"status":          "INACTIVE",
		"version":         1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeData[institutions.InstitutionDTO](t, env)
	assert.Equal(t, "Renamed clinic", updated.InstitutionName)
	assert.Equal(t, int64(2), updated.Version)

	rec, env = do(t, h, http.MethodGet, "/medical-institutions/status/INACTIVE", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]institutions.InstitutionDTO](t, env), 1)

	rec, env = do(t, h, http.MethodPut, "/medical-institutions/"+itoa(inst.ID), map[string]any{
		"institutionCode": "H006",
		"institutionName": "Stale write",
		"status":          "ACTIVE",
		"version":         1,
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	rec, env = do(t, h, http.MethodGet, "/medical-institutions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]institutions.InstitutionDTO](t, env), 1)
}

func TestApplicationRawUpdateOverHTTP(t *testing.T) {
	h := newTestRouter(t, testConfig(), routerOptions{})
	inst := createInstitution(t, h, "H007")
	app := createApplication(t, h, inst.ID)

	rec, env := do(t, h, http.MethodPut, "/applications/"+itoa(app.ID), map[string]any{
		"institutionId":   inst.ID,
		"applicationType": "PERMIT",
		"title":           "Edited",
		"status":          "DRAFT",
		"version":         1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeData[applications.ApplicationDTO](t, env)
	assert.Equal(t, "PERMIT", updated.ApplicationType)
	assert.Equal(t, int64(2), updated.Version)

	rec, env = do(t, h, http.MethodPut, "/applications/"+itoa(app.ID), map[string]any{
		"institutionId": inst.ID,
		"status":        "DRAFT",
		"version":       1,
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestRouter(t, testConfig(), routerOptions{})

	rec, _ := do(t, h, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Medcare-Env"))

	rec, env := do(t, h, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ready := decodeData[map[string]any](t, env)
	assert.Equal(t, "ready", ready["status"])
	assert.Equal(t, map[string]any{"database": "ok", "redis": "disabled"}, ready["checks"])
}

func TestHealthReadyReportsRedisFailure(t *testing.T) {
	h := newTestRouter(t, testConfig(), routerOptions{redisPinger: &stubPinger{err: errors.New("connection refused")}})

	rec, env := do(t, h, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DEPENDENCY_ERROR", env.Error.Code)
}

func TestMetricsEndpointExposesCounters(t *testing.T) {
	h := newTestRouter(t, testConfig(), routerOptions{})
	inst := createInstitution(t, h, "H008")
	createApplication(t, h, inst.ID)

	rec, _ := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `application_transitions_total{operation="create",outcome="success"} 1`)
	assert.Contains(t, body, "http_requests_total")
	assert.Contains(t, body, "http_request_duration_seconds")
}

func TestCreateIsIdempotentWithRedis(t *testing.T) {
	server := miniredis.RunT(t)
	cfg := testConfig()
	cfg.FeatureFlags.Idempotency = true
	cfg.Redis = config.RedisConfig{Address: server.Addr()}

	store, err := pkgredis.New(context.Background(), cfg.Redis, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	h := newTestRouter(t, cfg, routerOptions{idempotencyStore: store})
	body := map[string]any{"institutionCode": "H009", "institutionName": "Clinic H009"}

	first, firstEnv := do(t, h, http.MethodPost, "/medical-institutions", body, "Idempotency-Key", "abc-123")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	second, secondEnv := do(t, h, http.MethodPost, "/medical-institutions", body, "Idempotency-Key", "abc-123")
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, string(firstEnv.Data), string(secondEnv.Data))

	third, thirdEnv := do(t, h, http.MethodPost, "/medical-institutions", map[string]any{
		"institutionCode": "H010",
		"institutionName": "Other",
	}, "Idempotency-Key", "abc-123")
	require.Equal(t, http.StatusConflict, third.Code)
	assert.Equal(t, "IDEMPOTENCY_KEY_REUSED", thirdEnv.Error.Code)

	rec, env := do(t, h, http.MethodGet, "/medical-institutions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]institutions.InstitutionDTO](t, env), 1)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
