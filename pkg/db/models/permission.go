package models

import (
	"time"

	"github.com/google/uuid"
)

// Permission is an individually grantable capability identified by codename.
type Permission struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Codename  string    `gorm:"column:codename;not null;uniqueIndex"`
	Name      string    `gorm:"column:name;not null"`
	IsPublic  bool      `gorm:"column:is_public;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime;index"`
}
