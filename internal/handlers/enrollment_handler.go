package handlers

import (
	"net/http"

	"acervo_backend/internal/dto"
	"acervo_backend/internal/logger"
	"acervo_backend/internal/middleware"
	"acervo_backend/internal/services"
	"acervo_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type EnrollmentHandler struct {
	*BaseHandler
	enrollmentService services.EnrollmentService
	apiKey            string
}

func NewEnrollmentHandler(base *BaseHandler, enrollmentService services.EnrollmentService, apiKey string) *EnrollmentHandler {
	return &EnrollmentHandler{
		BaseHandler:       base,
		enrollmentService: enrollmentService,
		apiKey:            apiKey,
	}
}

func (h *EnrollmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	enrollments := rg.Group("/enrollments")
	enrollments.Use(middleware.APIKeyMiddleware(h.apiKey))
	{
		enrollments.POST("", h.Enroll)
	}
}

// Enroll processes one purchase webhook delivery. Conflicts come back as
// 409 with a machine-readable code so the store's retry logic can tell
// "already happened" from "invalid".
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req dto.EnrollmentRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	result, err := h.enrollmentService.Enroll(ctx, &req)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}

	logger.CtxInfo(ctx, "enrollment processed",
		"kind", result.Kind,
		"user_id", result.UserID,
		"is_new_user", result.IsNewUser,
		"store", req.Store,
	)
	c.JSON(http.StatusOK, result)
}
