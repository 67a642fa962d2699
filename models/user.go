package models

import "github.com/google/uuid"

// Role eines Nutzers.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleCitizen   Role = "citizen"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleCitizen:
		return true
	}
	return false
}

// Trusted meldet, ob Belege dieser Rolle ohne Abstimmung als verifiziert gelten.
func (r Role) Trusted() bool {
	return r == RoleAdmin || r == RoleModerator
}

// User ist die interne Identität zu einer externen Nutzer-ID (aus dem Auth-Gateway).
type User struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID string    `json:"user_id" gorm:"uniqueIndex;not null"`
	Name   string    `json:"name"`
	Role   Role      `json:"role" gorm:"not null;default:'citizen'"`
}

func (User) TableName() string { return "users" }
