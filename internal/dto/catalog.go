package dto

import (
	"acervo_backend/internal/repositories"
)

// ResourceFilterQuery is the query-string shape of the catalog filters.
type ResourceFilterQuery struct {
	Q              string `form:"q"`
	EducationLevel string `form:"education_level"`
	Subject        string `form:"subject"`
	Grade          string `form:"grade"`
	Tab            string `form:"tab" validate:"omitempty,oneof=all mine free"`
	Page           int    `form:"page"`
	Limit          int    `form:"limit"`
}

func (q ResourceFilterQuery) ToFilter() repositories.ResourceFilter {
	return repositories.ResourceFilter{
		Q:              q.Q,
		EducationLevel: q.EducationLevel,
		Subject:        q.Subject,
		Grade:          q.Grade,
		Tab:            repositories.ResourceTab(q.Tab),
		Page:           q.Page,
		Limit:          q.Limit,
	}.Normalize()
}

type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}

type ResourceListResponse struct {
	Items      []repositories.ResourceWithAccess `json:"items"`
	Pagination Pagination                        `json:"pagination"`
}

type UserMeta struct {
	Role         string `json:"role"`
	IsAdmin      bool   `json:"is_admin"`
	IsSubscriber bool   `json:"is_subscriber"`
}

type ResourceMetaResponse struct {
	EducationLevels []string `json:"education_levels"`
	Subjects        []string `json:"subjects"`
	User            UserMeta `json:"user"`
}

type ResourceSummaryResponse struct {
	List   *ResourceListResponse  `json:"list"`
	Counts *repositories.TabCounts `json:"counts"`
	Meta   *ResourceMetaResponse  `json:"meta"`
}

type GrantRequest struct {
	ExpiresAt *string `json:"expires_at,omitempty"` // RFC 3339; null = never expires
	Note      string  `json:"note,omitempty"`
}
