// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID                 string     `db:"id"`
	Email              string     `db:"email"`
	PasswordHash       string     `db:"password_hash"`
	Name               string     `db:"name"`
	Phone              string     `db:"phone"`
	Role               string     `db:"role"`
	TokenVersion       int        `db:"token_version"`
	AvatarURL          *string    `db:"avatar_url"`
	AvatarKey          *string    `db:"avatar_key"`
	ResetCode          *string    `db:"reset_code"`
	ResetCodeExpiresAt *time.Time `db:"reset_code_expires_at"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
	DeletedAt          *time.Time `db:"deleted_at"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
