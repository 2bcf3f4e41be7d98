package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of privilege tiers a user can hold.
type Role string

const (
	RoleSuperAdmin  Role = "SUPERADMIN"
	RoleAdminCentre Role = "ADMIN_CENTRE"
	RoleAdminCurs   Role = "ADMIN_CURS"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdminCentre, RoleAdminCurs:
		return true
	}
	return false
}

// UserStatus is the lifecycle state of an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusInactive  UserStatus = "INACTIVE"
	UserStatusPending   UserStatus = "PENDING"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// Valid reports whether s is one of the known statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusPending, UserStatusSuspended:
		return true
	}
	return false
}

// User represents an administrator account.
// CentreID and CursID reference tenants owned by other services.
type User struct {
	ID           uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	FirstName    string     `json:"firstName" gorm:"size:100;not null"`
	LastName     string     `json:"lastName" gorm:"size:100;not null"`
	Role         Role       `json:"role" gorm:"type:varchar(20);not null;index"`
	Status       UserStatus `json:"status" gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	CentreID     *string    `json:"centreId,omitempty" gorm:"type:varchar(64);index"`
	CursID       *string    `json:"cursId,omitempty" gorm:"type:varchar(64);index"`
	CreatedBy    *uuid.UUID `json:"createdBy,omitempty" gorm:"type:char(36)"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`

	// Relations
	Sessions []Session `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// Centre returns the centre id or "" when unset.
func (u *User) Centre() string {
	if u.CentreID == nil {
		return ""
	}
	return *u.CentreID
}

// Curs returns the course id or "" when unset.
func (u *User) Curs() string {
	if u.CursID == nil {
		return ""
	}
	return *u.CursID
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
