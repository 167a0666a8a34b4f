package users

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/cheetah-storefront/pkg/db/models"
	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Role         enums.UserRole
}

// FromModel converts a user row into the public identity, omitting credentials.
func FromModel(u *models.User) *types.User {
	if u == nil {
		return nil
	}
	out := &types.User{
		ID:        types.ID(u.ID.String()),
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
	if u.Phone != nil {
		out.Phone = *u.Phone
	}
	return out
}

func (c CreateUserDTO) ToModel() *models.User {
	id := c.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	role := c.Role
	if !role.IsValid() {
		role = enums.UserRoleUser
	}
	var phone *string
	if trimmed := strings.TrimSpace(c.Phone); trimmed != "" {
		phone = &trimmed
	}
	return &models.User{
		ID:           id,
		Email:        NormalizeEmail(c.Email),
		PasswordHash: c.PasswordHash,
		FirstName:    strings.TrimSpace(c.FirstName),
		LastName:     strings.TrimSpace(c.LastName),
		Phone:        phone,
		Role:         role,
	}
}
