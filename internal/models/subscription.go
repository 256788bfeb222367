package models

import (
	"time"

	"gorm.io/datatypes"
)

type Plan struct {
	BaseModel
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`
	Name string `gorm:"not null" json:"name"`
	// External billing SKU this plan is sold under. Enrollment classifies a
	// purchase as premium when any submitted product id matches one of these.
	ProductID    string `gorm:"index" json:"product_id"`
	DurationDays *int   `json:"duration_days,omitempty"` // nil = unlimited
	IsActive     bool   `gorm:"default:true" json:"is_active"`
}

type Subscription struct {
	BaseModel
	UserID    string         `gorm:"not null;uniqueIndex" json:"user_id"`
	PlanID    string         `gorm:"not null;index" json:"plan_id"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"` // nil = never expires
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`

	// Relations
	Plan Plan `gorm:"foreignKey:PlanID" json:"plan"`
}
