// Package models defines the client-side DTOs exchanged with the LearnHub
// API and hub.
package models

// User is the authenticated user's profile snapshot.
type User struct {
	UserID            int64  `json:"userId"`
	FullName          string `json:"fullName"`
	Email             string `json:"email"`
	Role              string `json:"role"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
	IsSubscribed      bool   `json:"isSubscribed"`
	SubscriptionPlan  string `json:"subscriptionPlan,omitempty"`
}

// Roles known to the backend.
const (
	RoleStudent    = "Student"
	RoleInstructor = "Instructor"
	RoleAdmin      = "Admin"
)

func (u *User) IsInstructor() bool {
	return u != nil && (u.Role == RoleInstructor || u.Role == RoleAdmin)
}
