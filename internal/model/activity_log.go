package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityAction classifies an audit entry.
type ActivityAction string

const (
	ActionCreate         ActivityAction = "CREATE"
	ActionUpdate         ActivityAction = "UPDATE"
	ActionDelete         ActivityAction = "DELETE"
	ActionLogin          ActivityAction = "LOGIN"
	ActionLogout         ActivityAction = "LOGOUT"
	ActionPasswordChange ActivityAction = "PASSWORD_CHANGE"
	ActionAccessDenied   ActivityAction = "ACCESS_DENIED"
	ActionSystemError    ActivityAction = "SYSTEM_ERROR"
	ActionUnknown        ActivityAction = "UNKNOWN"
)

// ActivityLog is an append-only audit record.
// Rows are never updated; they are removed only by retention cleanup.
type ActivityLog struct {
	ID          uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	Action      ActivityAction `json:"action" gorm:"type:varchar(32);not null;index"`
	TargetTable string         `json:"tableName" gorm:"column:target_table;size:64;not null;index"`
	RecordID    *string        `json:"recordId,omitempty" gorm:"type:varchar(64)"`
	UserID      *uuid.UUID     `json:"userId,omitempty" gorm:"type:char(36);index"`
	CentreID    *string        `json:"centreId,omitempty" gorm:"type:varchar(64);index"`
	IPAddress   string         `json:"ipAddress,omitempty" gorm:"size:64"`
	UserAgent   string         `json:"userAgent,omitempty" gorm:"size:512"`
	Details     datatypes.JSON `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"createdAt" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// InCentre scopes the entry to a centre so centre administrators are notified of it.
// An empty centre leaves the entry unscoped.
func (a ActivityLog) InCentre(centreID string) ActivityLog {
	a.CentreID = StringPtr(centreID)
	return a
}
