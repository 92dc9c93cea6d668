package models

import "time"

// Roles a profile can hold.
const (
	RoleFarmer      = "farmer"
	RoleBuyer       = "buyer"
	RoleTransporter = "transporter"
)

// User is an account with a marketplace role.
type User struct {
	UserID       string    `json:"userid" bson:"userid"`
	Username     string    `json:"username" bson:"username"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Role         string    `json:"role" bson:"role"`
	Phone        string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Location     string    `json:"location,omitempty" bson:"location,omitempty"`
	Rating       float64   `json:"rating,omitempty" bson:"rating,omitempty"`
	RatingCount  int       `json:"ratingCount,omitempty" bson:"rating_count,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	LastLogin    time.Time `json:"lastLogin,omitempty" bson:"last_login,omitempty"`
}
