package enums

import "fmt"

// CheckoutStep is a state of the linear checkout flow.
type CheckoutStep int

const (
	CheckoutStepShipping CheckoutStep = iota
	CheckoutStepPayment
	CheckoutStepReview
)

var checkoutStepNames = map[CheckoutStep]string{
	CheckoutStepShipping: "shipping",
	CheckoutStepPayment:  "payment",
	CheckoutStepReview:   "review",
}

// String implements fmt.Stringer.
func (s CheckoutStep) String() string {
	if name, ok := checkoutStepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// IsValid reports whether the value is a known CheckoutStep.
func (s CheckoutStep) IsValid() bool {
	_, ok := checkoutStepNames[s]
	return ok
}

// Next returns the following step and false when s is already the last one.
func (s CheckoutStep) Next() (CheckoutStep, bool) {
	if s >= CheckoutStepReview || !s.IsValid() {
		return s, false
	}
	return s + 1, true
}

// Prev returns the preceding step and false when s is the first one.
func (s CheckoutStep) Prev() (CheckoutStep, bool) {
	if s <= CheckoutStepShipping || !s.IsValid() {
		return s, false
	}
	return s - 1, true
}
