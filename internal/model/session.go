package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session binds an issued access/refresh token pair to a user.
// Only SHA-256 digests of the tokens are persisted.
type Session struct {
	ID               uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	UserID           uuid.UUID `json:"userId" gorm:"type:char(36);not null;index"`
	AccessTokenHash  string    `json:"-" gorm:"type:char(64);not null;index"`
	RefreshTokenHash string    `json:"-" gorm:"type:char(64);not null;uniqueIndex"`
	ExpiresAt        time.Time `json:"expiresAt" gorm:"not null;index"`
	IPAddress        string    `json:"ipAddress,omitempty" gorm:"size:64"`
	UserAgent        string    `json:"userAgent,omitempty" gorm:"size:512"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// NewSession builds a session for the given raw tokens.
func NewSession(userID uuid.UUID, accessToken, refreshToken string, expiresAt time.Time, ip, userAgent string) *Session {
	return &Session{
		UserID:           userID,
		AccessTokenHash:  HashToken(accessToken),
		RefreshTokenHash: HashToken(refreshToken),
		ExpiresAt:        expiresAt,
		IPAddress:        ip,
		UserAgent:        truncate(userAgent, 512),
	}
}

// HashToken returns the hex SHA-256 digest used to look tokens up.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
