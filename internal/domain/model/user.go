package model

import "time"

type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
	RoleAdmin  Role = "ADMIN"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash;not null" json:"-"`
	Name         string `gorm:"type:varchar(255);not null" json:"name"`
	Phone        string `gorm:"type:varchar(30);uniqueIndex;not null" json:"phone"`
	Role         Role   `gorm:"type:varchar(20);not null;default:'BUYER';index" json:"role"`

	BusinessName string `gorm:"type:varchar(255)" json:"business_name"`
	GSTNumber    string `gorm:"column:gst_number;type:varchar(20)" json:"gst_number"`
	Address      string `gorm:"type:text" json:"address"`

	IsActive       bool   `gorm:"not null;default:true" json:"is_active"`
	KYCVerified    bool   `gorm:"column:kyc_verified;not null;default:false" json:"kyc_verified"`
	KYCDocumentURL string `gorm:"column:kyc_document_url;type:text" json:"kyc_document_url,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
