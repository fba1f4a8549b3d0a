package auth

import (
	"chat-client/domain"
	"chat-client/errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateCredentials checks what can be checked before dialing.
func ValidateCredentials(creds domain.Credentials) error {
	if err := CheckToken(creds.Token, time.Now()); err != nil {
		return err
	}
	if err := validate.Struct(creds); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidCredentials, err)
	}
	return nil
}

func ValidateMessage(msg domain.Message) error {
	if err := validate.Struct(msg); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err)
	}
	return nil
}
