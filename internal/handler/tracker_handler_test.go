package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/anaschota07-svg/newwebsite-sub001/internal/domain"
	"github.com/anaschota07-svg/newwebsite-sub001/pkg/logger"
)

// MockRegistry is a mock implementation of registry.Registry
type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) CreateLink(ctx context.Context, req *domain.CreateLinkRequest, clientIP string) (*domain.CreateLinkResponse, error) {
	args := m.Called(ctx, req, clientIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreateLinkResponse), args.Error(1)
}

func (m *MockRegistry) Resolve(ctx context.Context, shortCode string) (*domain.Link, error) {
	args := m.Called(ctx, shortCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockRegistry) RecordClick(ctx context.Context, linkID uint) error {
	args := m.Called(ctx, linkID)
	return args.Error(0)
}

func (m *MockRegistry) GetLinkInfo(ctx context.Context, shortCode string) (*domain.Link, error) {
	args := m.Called(ctx, shortCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockRegistry) DeactivateLink(ctx context.Context, shortCode string) error {
	args := m.Called(ctx, shortCode)
	return args.Error(0)
}

func (m *MockRegistry) GetStats(ctx context.Context, shortCode string) (*domain.LinkStats, error) {
	args := m.Called(ctx, shortCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LinkStats), args.Error(1)
}

// MockSessionEngine is a mock implementation of session.Engine
type MockSessionEngine struct {
	mock.Mock
}

func (m *MockSessionEngine) Open(ctx context.Context, req *domain.OpenSessionRequest, clientIP string) (*domain.OpenSessionResponse, error) {
	args := m.Called(ctx, req, clientIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OpenSessionResponse), args.Error(1)
}

func (m *MockSessionEngine) AdvanceStep(ctx context.Context, token string, stepIndex int) (*domain.AdvanceStepResponse, error) {
	args := m.Called(ctx, token, stepIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AdvanceStepResponse), args.Error(1)
}

func (m *MockSessionEngine) Heartbeat(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockSessionEngine) Complete(ctx context.Context, token string) (*domain.CompleteSessionResponse, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CompleteSessionResponse), args.Error(1)
}

type handlerTestSuite struct {
	registry *MockRegistry
	sessions *MockSessionEngine
	router   *gin.Engine
}

func setupHandlerTest(t *testing.T) *handlerTestSuite {
	gin.SetMode(gin.TestMode)

	reg := new(MockRegistry)
	sessions := new(MockSessionEngine)
	tracker := NewTrackerHandler(reg, sessions, logger.NewLogger())

	router := gin.New()
	router.GET("/api/v1/resolve", tracker.Resolve)
	router.POST("/api/v1/session/open", tracker.OpenSession)
	router.POST("/api/v1/session/step", tracker.AdvanceStep)
	router.POST("/api/v1/session/heartbeat", tracker.Heartbeat)
	router.POST("/api/v1/session/complete", tracker.CompleteSession)

	return &handlerTestSuite{
		registry: reg,
		sessions: sessions,
		router:   router,
	}
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestResolve_GatedLink(t *testing.T) {
	suite := setupHandlerTest(t)

	link := &domain.Link{
		ID:              1,
		ShortCode:       "abc1234",
		TargetURL:       "https://example.com/hidden",
		IsActive:        true,
		StepCount:       3,
		PreviewDuration: 5,
	}
	suite.registry.On("Resolve", mock.Anything, "abc1234").Return(link, nil)

	w := doJSON(suite.router, http.MethodGet, "/api/v1/resolve?code=abc1234", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp domain.ResolveResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "abc1234", resp.ShortCode)
	assert.Equal(t, 3, resp.StepCount)

	// Target URL stays hidden until the session completes
	assert.Empty(t, resp.TargetURL)
	suite.registry.AssertNotCalled(t, "RecordClick")
}

func TestResolve_DirectLinkCountsClick(t *testing.T) {
	suite := setupHandlerTest(t)

	link := &domain.Link{
		ID:         2,
		ShortCode:  "direct1",
		TargetURL:  "https://example.com/direct",
		IsActive:   true,
		DirectMode: true,
	}
	suite.registry.On("Resolve", mock.Anything, "direct1").Return(link, nil)
	suite.registry.On("RecordClick", mock.Anything, uint(2)).Return(nil)

	w := doJSON(suite.router, http.MethodGet, "/api/v1/resolve?code=direct1", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp domain.ResolveResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://example.com/direct", resp.TargetURL)

	suite.registry.AssertExpectations(t)
}

func TestResolve_NotFound(t *testing.T) {
	suite := setupHandlerTest(t)

	suite.registry.On("Resolve", mock.Anything, "nope").
		Return((*domain.Link)(nil), domain.ErrLinkNotFound)

	w := doJSON(suite.router, http.MethodGet, "/api/v1/resolve?code=nope", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResolve_MissingCode(t *testing.T) {
	suite := setupHandlerTest(t)

	w := doJSON(suite.router, http.MethodGet, "/api/v1/resolve", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	suite.registry.AssertNotCalled(t, "Resolve")
}

func TestOpenSession_Success(t *testing.T) {
	suite := setupHandlerTest(t)

	resp := &domain.OpenSessionResponse{
		SessionToken:  "tok-abc",
		RequiredSteps: 3,
		StepDurations: []int{5, 5, 5},
		ExpiresAt:     time.Now().Add(30 * time.Minute),
	}
	suite.sessions.On("Open", mock.Anything, mock.AnythingOfType("*domain.OpenSessionRequest"), mock.AnythingOfType("string")).
		Return(resp, nil)

	w := doJSON(suite.router, http.MethodPost, "/api/v1/session/open", domain.OpenSessionRequest{
		ShortCode: "abc1234",
		DeviceID:  "device-001",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var body domain.OpenSessionResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "tok-abc", body.SessionToken)
	assert.Equal(t, 3, body.RequiredSteps)
}

func TestOpenSession_LinkUnavailable(t *testing.T) {
	suite := setupHandlerTest(t)

	suite.sessions.On("Open", mock.Anything, mock.Anything, mock.Anything).
		Return((*domain.OpenSessionResponse)(nil), domain.ErrLinkUnavailable)

	w := doJSON(suite.router, http.MethodPost, "/api/v1/session/open", domain.OpenSessionRequest{
		ShortCode: "gone123",
		DeviceID:  "device-001",
	})

	assert.Equal(t, http.StatusGone, w.Code)
}

func TestAdvanceStep_DwellRejection(t *testing.T) {
	suite := setupHandlerTest(t)

	suite.sessions.On("AdvanceStep", mock.Anything, "tok-abc", 0).
		Return((*domain.AdvanceStepResponse)(nil), domain.ErrDwellNotSatisfied)

	step := 0
	w := doJSON(suite.router, http.MethodPost, "/api/v1/session/step", domain.AdvanceStepRequest{
		SessionToken: "tok-abc",
		StepIndex:    &step,
	})

	assert.Equal(t, http.StatusTooEarly, w.Code)
}

func TestAdvanceStep_StepIndexZeroBinds(t *testing.T) {
	suite := setupHandlerTest(t)

	suite.sessions.On("AdvanceStep", mock.Anything, "tok-abc", 0).
		Return(&domain.AdvanceStepResponse{Accepted: true, CurrentStep: 1, StepsLeft: 2}, nil)

	step := 0
	w := doJSON(suite.router, http.MethodPost, "/api/v1/session/step", domain.AdvanceStepRequest{
		SessionToken: "tok-abc",
		StepIndex:    &step,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	suite.sessions.AssertExpectations(t)
}

func TestCompleteSession_Credited(t *testing.T) {
	suite := setupHandlerTest(t)

	suite.sessions.On("Complete", mock.Anything, "tok-abc").
		Return(&domain.CompleteSessionResponse{
			CreditedAmount: 0.0005,
			TargetURL:      "https://example.com/hidden",
		}, nil)

	w := doJSON(suite.router, http.MethodPost, "/api/v1/session/complete", domain.CompleteSessionRequest{
		SessionToken: "tok-abc",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var body domain.CompleteSessionResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 0.0005, body.CreditedAmount)
	assert.Equal(t, "https://example.com/hidden", body.TargetURL)
}

func TestCompleteSession_AlreadyCredited(t *testing.T) {
	suite := setupHandlerTest(t)

	suite.sessions.On("Complete", mock.Anything, "tok-dup").
		Return((*domain.CompleteSessionResponse)(nil), domain.ErrAlreadyCredited)

	w := doJSON(suite.router, http.MethodPost, "/api/v1/session/complete", domain.CompleteSessionRequest{
		SessionToken: "tok-dup",
	})

	assert.Equal(t, http.StatusConflict, w.Code)

	var body domain.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "already_credited", body.Error)
}

func TestCompleteSession_Expired(t *testing.T) {
	suite := setupHandlerTest(t)

	suite.sessions.On("Complete", mock.Anything, "tok-old").
		Return((*domain.CompleteSessionResponse)(nil), domain.ErrSessionExpired)

	w := doJSON(suite.router, http.MethodPost, "/api/v1/session/complete", domain.CompleteSessionRequest{
		SessionToken: "tok-old",
	})

	assert.Equal(t, http.StatusGone, w.Code)
}

func TestHeartbeat_Accepted(t *testing.T) {
	suite := setupHandlerTest(t)

	suite.sessions.On("Heartbeat", mock.Anything, "tok-abc").Return(nil)

	w := doJSON(suite.router, http.MethodPost, "/api/v1/session/heartbeat", domain.HeartbeatRequest{
		SessionToken: "tok-abc",
	})

	assert.Equal(t, http.StatusOK, w.Code)
}
