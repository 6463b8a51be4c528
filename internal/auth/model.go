package auth

// RoleAdmin is the only role that can reach /admin routes.
const RoleAdmin = "ADMIN"

// Admin is the identity behind an admin token.
type Admin struct {
	Subject string
	Role    string
}
