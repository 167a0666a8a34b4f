package session

import (
	"strings"

	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

var demoUsers = []types.User{
	{ID: "1", Email: "admin@example.com", FirstName: "Admin", LastName: "User", Role: enums.UserRoleAdmin, Phone: "+1 234 567 8900"},
	{ID: "2", Email: "demo@example.com", FirstName: "Demo", LastName: "User", Role: enums.UserRoleUser, Phone: "+1 234 567 8901"},
	{ID: "3", Email: "delivery@example.com", FirstName: "Delivery", LastName: "User", Role: enums.UserRoleDelivery, Phone: "+1 234 567 8902"},
}

// DemoUser returns the offline identity registered for email.
func DemoUser(email string) (types.User, bool) {
	email = strings.TrimSpace(email)
	for _, u := range demoUsers {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return types.User{}, false
}
