package auth

import (
	"github.com/google/uuid"

	"adeptify/internal/model"
)

// Identity is the authenticated caller as seen by authorization checks.
type Identity struct {
	ID       uuid.UUID  `json:"id"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
	CentreID string     `json:"centreId,omitempty"`
	CursID   string     `json:"cursId,omitempty"`
}

// IdentityFromUser builds an Identity from a stored user.
func IdentityFromUser(u *model.User) Identity {
	return Identity{
		ID:       u.ID,
		Email:    u.Email,
		Role:     u.Role,
		CentreID: u.Centre(),
		CursID:   u.Curs(),
	}
}
