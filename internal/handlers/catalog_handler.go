package handlers

import (
	"errors"
	"net/http"
	"time"

	"acervo_backend/internal/dto"
	"acervo_backend/internal/middleware"
	"acervo_backend/internal/models"
	"acervo_backend/internal/repositories"
	"acervo_backend/internal/services"
	"acervo_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	*BaseHandler
	catalogService services.CatalogService
}

func NewCatalogHandler(base *BaseHandler, catalogService services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		BaseHandler:    base,
		catalogService: catalogService,
	}
}

func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	resources := rg.Group("/resources")
	resources.Use(middleware.OptionalAuthMiddleware())
	{
		resources.GET("", h.List)
		resources.GET("/counts", h.Counts)
		resources.GET("/meta", h.Meta)
		resources.GET("/summary", h.Summary)
		resources.GET("/:id", h.Check)
	}

	rg.GET("/plans", h.Plans)

	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRoles(models.UserRoleAdmin))
	{
		admin.POST("/resources/:id/access/:userId", h.Grant)
		admin.DELETE("/resources/:id/access/:userId", h.Revoke)
	}
}

func (h *CatalogHandler) List(c *gin.Context) {
	var query dto.ResourceFilterQuery
	if !h.BindAndValidateQuery(c, &query) {
		return
	}

	resp, err := h.catalogService.List(c.Request.Context(), middleware.UserIDFrom(c), query)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CatalogHandler) Counts(c *gin.Context) {
	var query dto.ResourceFilterQuery
	if !h.BindAndValidateQuery(c, &query) {
		return
	}

	counts, err := h.catalogService.Counts(c.Request.Context(), middleware.UserIDFrom(c), query)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *CatalogHandler) Meta(c *gin.Context) {
	meta, err := h.catalogService.Meta(c.Request.Context(), middleware.UserIDFrom(c))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

func (h *CatalogHandler) Summary(c *gin.Context) {
	var query dto.ResourceFilterQuery
	if !h.BindAndValidateQuery(c, &query) {
		return
	}

	summary, err := h.catalogService.Summary(c.Request.Context(), middleware.UserIDFrom(c), query)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *CatalogHandler) Check(c *gin.Context) {
	resource, err := h.catalogService.CheckAccess(c.Request.Context(), middleware.UserIDFrom(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrResourceNotFound) {
			apperrors.HandleError(c, apperrors.ErrNotFound(err))
			return
		}
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resource)
}

func (h *CatalogHandler) Plans(c *gin.Context) {
	plans, err := h.catalogService.Plans()
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans, "total": len(plans)})
}

func (h *CatalogHandler) Grant(c *gin.Context) {
	// Every GrantRequest field is optional; a bodyless POST is a plain
	// never-expiring grant.
	var req dto.GrantRequest
	if c.Request.ContentLength > 0 && !h.BindAndValidateJSON(c, &req) {
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			apperrors.HandleError(c, apperrors.NewBadRequestError("expires_at must be RFC 3339"))
			return
		}
		expiresAt = &t
	}

	err := h.catalogService.GrantAccess(c.Param("userId"), c.Param("id"), expiresAt)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) || errors.Is(err, repositories.ErrResourceNotFound) {
			apperrors.HandleError(c, apperrors.ErrNotFound(err))
			return
		}
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Access granted"})
}

func (h *CatalogHandler) Revoke(c *gin.Context) {
	err := h.catalogService.RevokeAccess(c.Param("userId"), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrGrantNotFound) {
			apperrors.HandleError(c, apperrors.ErrNotFound(err))
			return
		}
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Access revoked"})
}
