package stripe

import (
	"errors"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/aurelion-labs/identra-backend/pkg/errors"
)

// MapError converts a Stripe API failure into a coded error for the
// interactive billing flows. Connection failures surface as dependency
// errors, rejected requests as validation errors, and credential problems as
// internal errors so they are never echoed to callers.
func MapError(err error, message string) error {
	if err == nil {
		return nil
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Type {
		case stripe.ErrorTypeInvalidRequest, stripe.ErrorTypeCard:
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, message)
		case stripe.ErrorType("authentication_error"):
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, message)
		case stripe.ErrorTypeAPI:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
