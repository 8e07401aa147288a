package entity

// Roles granted through user_roles. Method security policies refer to them by name.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
