package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleFarmer = "farmer"
	RoleExpert = "expert"
	RoleAdmin  = "admin"
)

// Model mirrors gorm.Model with snake_case JSON names so API payloads stay
// consistent with the rest of the field tags.
type Model struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type User struct {
	Model
	Username     string `gorm:"unique;not null" json:"username"`
	Email        string `gorm:"unique;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"default:farmer" json:"role"` // farmer, expert, admin
	FarmName     string `json:"farm_name"`
	Region       string `json:"region"`
	Specialty    string `json:"specialty"` // experts only, e.g. "soil science"
}

type LoginHistory struct {
	Model
	UserID    uint
	LoginTime time.Time
}
