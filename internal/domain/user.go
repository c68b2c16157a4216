package domain

import "time"

// User types
const (
	UserTypeUser   = "user"   // Regular player
	UserTypeSystem = "system" // House bot account
)

// User roles
const (
	RoleUser  = "user"  // Player
	RoleAdmin = "admin" // Back office
)

// User Model
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`                                                   // Primary key
	Name       string    `gorm:"not null" json:"name"`                                                   // Display name
	Email      string    `gorm:"size:191;uniqueIndex;not null" json:"email"`                             // Unique login email
	Password   string    `gorm:"not null" json:"-"`                                                      // Hashed password
	Role       string    `gorm:"default:user" json:"role"`                                               // Role: user or admin
	Type       string    `gorm:"default:user" json:"type"`                                               // Type: user or system
	IsVerified bool      `gorm:"not null;default:false" json:"is_verified"`                              // Set on activation
	Wins       int       `gorm:"not null;default:0" json:"wins"`                                         // Games won
	Losses     int       `gorm:"not null;default:0" json:"losses"`                                       // Games lost
	Wallet     *Wallet   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"wallet,omitempty"` // One-to-one relationship with Wallet
	CreatedAt  time.Time `json:"created_at"`                                                             // Creation time
	UpdatedAt  time.Time `json:"updated_at"`                                                             // Last update time
}
