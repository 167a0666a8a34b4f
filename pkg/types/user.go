package types

import "github.com/angelmondragon/cheetah-storefront/pkg/enums"

// User is the public identity returned by the auth endpoints.
type User struct {
	ID        ID             `json:"id"`
	Email     string         `json:"email"`
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	Phone     string         `json:"phone,omitempty"`
	Role      enums.UserRole `json:"role"`
}

// AuthResult is returned by login and register.
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
