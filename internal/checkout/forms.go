package checkout

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
)

// DefaultCountry preselects the shipping country.
const DefaultCountry = "Albania"

// MsgRequired is shown under every blank required field.
const MsgRequired = "This field is required"

// ShippingInfo is the shipping step form.
type ShippingInfo struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode" validate:"required"`
	Country   string `json:"country"`
	Phone     string `json:"phone" validate:"required"`
}

// PaymentInfo is the payment step form. Only the method, the cardholder name
// and the last four digits ever leave the flow.
type PaymentInfo struct {
	Method     enums.PaymentMethod `json:"paymentMethod"`
	CardName   string              `json:"cardName" validate:"required"`
	CardNumber string              `json:"cardNumber" validate:"required"`
	ExpDate    string              `json:"expDate" validate:"required"`
	CVV        string              `json:"cvv" validate:"required"`
}

// LastFour returns the last four digits of the card number.
func (p PaymentInfo) LastFour() string {
	var digits strings.Builder
	for _, r := range p.CardNumber {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) <= 4 {
		return d
	}
	return d[len(d)-4:]
}

// FieldErrors maps a form field's JSON name to its message.
type FieldErrors map[string]string

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateForm checks a normalized form and returns one message per failed
// field.
func validateForm(form any) FieldErrors {
	errs := FieldErrors{}
	err := formValidator.Struct(form)
	if err == nil {
		return errs
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["form"] = err.Error()
		return errs
	}
	for _, fe := range verrs {
		errs[fe.Field()] = messageFor(fe.Tag())
	}
	return errs
}

func messageFor(tag string) string {
	switch tag {
	case "required":
		return MsgRequired
	default:
		return "Invalid value"
	}
}

func (s ShippingInfo) normalized() ShippingInfo {
	s.FirstName = strings.TrimSpace(s.FirstName)
	s.LastName = strings.TrimSpace(s.LastName)
	s.Address = strings.TrimSpace(s.Address)
	s.City = strings.TrimSpace(s.City)
	s.State = strings.TrimSpace(s.State)
	s.ZipCode = strings.TrimSpace(s.ZipCode)
	s.Country = strings.TrimSpace(s.Country)
	s.Phone = strings.TrimSpace(s.Phone)
	if s.Country == "" {
		s.Country = DefaultCountry
	}
	return s
}

func (p PaymentInfo) normalized() PaymentInfo {
	p.CardName = strings.TrimSpace(p.CardName)
	p.CardNumber = strings.TrimSpace(p.CardNumber)
	p.ExpDate = strings.TrimSpace(p.ExpDate)
	p.CVV = strings.TrimSpace(p.CVV)
	if !p.Method.IsValid() {
		p.Method = enums.DefaultPaymentMethod
	}
	return p
}
