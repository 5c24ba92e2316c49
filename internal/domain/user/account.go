package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleContractor Role = "contractor"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool { return r == RoleContractor || r == RoleAdmin }

// Account is a user document. Sign-in lives with the identity provider; this
// service only reads name and role.
type Account struct {
	ID        string    `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Email     string    `gorm:"column:email;index" json:"email"`
	Role      Role      `gorm:"column:role;not null;index" json:"role"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime" json:"createdAt"`
}

func (Account) TableName() string { return "users" }

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (a Account) DocumentID() string { return a.ID }
