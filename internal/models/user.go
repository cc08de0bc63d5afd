package models

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents a customer or an administrator of the store.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"uniqueIndex;size:80;not null" validate:"required,min=3,max=80"`
	Email     string    `json:"email" gorm:"uniqueIndex;size:120;not null" validate:"required,email"`
	Password  string    `json:"-" gorm:"size:255;not null"` // bcrypt hash
	Role      string    `json:"role" gorm:"size:10;not null;default:user;index"`
	FullName  string    `json:"full_name" gorm:"size:120"`
	Phone     string    `json:"phone" gorm:"size:20"`
	Address   string    `json:"address" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName is the name shown on invoices and in emails.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
