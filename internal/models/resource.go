package models

import (
	"time"

	"gorm.io/datatypes"
)

type Resource struct {
	BaseModel
	Title          string `gorm:"not null;index" json:"title"`
	Description    string `json:"description"`
	EducationLevel string `gorm:"index" json:"education_level"`
	Subject        string `gorm:"index" json:"subject"`
	Grade          string `json:"grade"`
	// Free resources are visible and openable by every user, including
	// anonymous ones. No grant or subscription row is ever required.
	IsFree bool `gorm:"default:false;index" json:"is_free"`
}

// ResourceAccess is an individually purchased or admin-granted entitlement.
// Unique on (user_id, resource_id): writes go through upsert, never a second
// insert, so concurrent webhook deliveries converge on one row.
type ResourceAccess struct {
	BaseModel
	UserID     string         `gorm:"not null;uniqueIndex:idx_resource_accesses_user_resource" json:"user_id"`
	ResourceID string         `gorm:"not null;uniqueIndex:idx_resource_accesses_user_resource" json:"resource_id"`
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"` // nil = never expires
	Metadata   datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`

	// Relations
	Resource Resource `gorm:"foreignKey:ResourceID" json:"resource"`
}

// ProductMapping links an external store SKU to a resource. Read-only from
// the enrollment flow's perspective; rows are maintained by admin tooling.
type ProductMapping struct {
	BaseModel
	Store      Store  `gorm:"type:varchar(30);not null;uniqueIndex:idx_product_mappings_store_product" json:"store"`
	ProductID  string `gorm:"not null;uniqueIndex:idx_product_mappings_store_product" json:"product_id"`
	ResourceID string `gorm:"not null;index" json:"resource_id"`

	// Relations
	Resource Resource `gorm:"foreignKey:ResourceID" json:"resource"`
}
