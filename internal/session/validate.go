package session

import (
	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/cheetah-storefront/pkg/errors"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

var validate = validator.New()

type identity struct {
	ID        string `validate:"required"`
	Role      string `validate:"required,oneof=admin delivery user"`
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Email     string `validate:"required"`
}

// ValidateUser checks that an identity carries every field the storefront
// relies on and a known role.
func ValidateUser(user types.User) error {
	err := validate.Struct(identity{
		ID:        user.ID.String(),
		Role:      user.Role.String(),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	})
	if err == nil {
		return nil
	}
	var fields []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user data").WithDetails(map[string]any{"fields": fields})
}

// Decision is the outcome of a route guard.
type Decision struct {
	Allowed  bool
	Redirect string
}

const (
	LoginPath = "/login"
	HomePath  = "/"
)

// Authorize gates a route. Anonymous visitors are sent to the login page,
// signed-in users without an allowed role to the home page. An empty
// allowed list admits any signed-in user.
func Authorize(user *types.User, allowed ...enums.UserRole) Decision {
	if user == nil || user.ID.IsZero() {
		return Decision{Redirect: LoginPath}
	}
	if len(allowed) == 0 {
		return Decision{Allowed: true}
	}
	for _, role := range allowed {
		if user.Role == role {
			return Decision{Allowed: true}
		}
	}
	return Decision{Redirect: HomePath}
}
