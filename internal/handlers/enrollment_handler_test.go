package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"acervo_backend/internal/dto"
	"acervo_backend/internal/validator"
	"acervo_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-webhook-key"

type stubEnrollmentService struct {
	result *dto.EnrollmentResult
	err    error
	calls  int
}

func (s *stubEnrollmentService) Enroll(ctx context.Context, req *dto.EnrollmentRequest) (*dto.EnrollmentResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newEnrollmentRouter(service *stubEnrollmentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")

	handler := NewEnrollmentHandler(NewBaseHandler(validator.New()), service, testAPIKey)
	handler.RegisterRoutes(api)
	return router
}

func postEnrollment(router *gin.Engine, apiKey, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/enrollments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestEnrollEndpoint_Success(t *testing.T) {
	service := &stubEnrollmentService{result: &dto.EnrollmentResult{
		Kind:      dto.EnrollmentPremium,
		UserID:    "user-1",
		Email:     "a@x.com",
		IsNewUser: true,
		PlanName:  "Plano Anual",
	}}
	router := newEnrollmentRouter(service)

	rec := postEnrollment(router, testAPIKey, `{
		"store": "hotmart",
		"name": "Ana",
		"email": "a@x.com",
		"product_ids": ["PLAN_ANNUAL", 123456]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, service.calls)

	var body dto.EnrollmentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, dto.EnrollmentPremium, body.Kind)
	assert.Equal(t, "Plano Anual", body.PlanName)
}

func TestEnrollEndpoint_RejectsBadAPIKey(t *testing.T) {
	service := &stubEnrollmentService{}
	router := newEnrollmentRouter(service)

	for _, key := range []string{"", "wrong-key"} {
		rec := postEnrollment(router, key, `{}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	assert.Equal(t, 0, service.calls, "service must not run without a valid key")
}

func TestEnrollEndpoint_ValidatesBody(t *testing.T) {
	service := &stubEnrollmentService{}
	router := newEnrollmentRouter(service)

	// Missing email, empty product_ids.
	rec := postEnrollment(router, testAPIKey, `{
		"store": "hotmart",
		"name": "Ana",
		"product_ids": []
	}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, service.calls)
}

func TestEnrollEndpoint_ConflictSurfacesAsMachineReadable409(t *testing.T) {
	service := &stubEnrollmentService{err: apperrors.ErrDuplicateWhatsapp(nil)}
	router := newEnrollmentRouter(service)

	rec := postEnrollment(router, testAPIKey, `{
		"store": "hotmart",
		"name": "Ana",
		"email": "a@x.com",
		"whatsapp": "+5511999990000",
		"product_ids": ["R1"]
	}`)

	require.Equal(t, http.StatusConflict, rec.Code)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "DUPLICATE_WHATSAPP", body.Error.Code)
}
