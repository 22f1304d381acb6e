package auth

import (
	stderrors "errors"
	"fmt"

	"chat-relay/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type RegisterRequest struct {
	Username string `validate:"required,min=3,max=32,alphanum"`
	Password string `validate:"required,min=6,max=72"`
}

// ValidateRegister checks account creation rules before any expensive
// cryptographic operation runs.
func ValidateRegister(req RegisterRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) {
		for _, fieldErr := range fieldErrs {
			if fieldErr.Field() == "Username" {
				return fmt.Errorf("%w: %v", errors.ErrInvalidUsername, err)
			}
		}
	}
	return fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
}
