package validation

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MaxNameLength = 64
	MaxBodyLength = 4096
)

var (
	validate = validator.New()
	nameRule = fmt.Sprintf("required,max=%d", MaxNameLength)
	bodyRule = fmt.Sprintf("required,max=%d", MaxBodyLength)
)

// ValidateName checks a user or group name before it becomes an identity.
func ValidateName(name string) error {
	if err := validate.Var(strings.TrimSpace(name), nameRule); err != nil {
		return fmt.Errorf("%w: %q: %v", errors.ErrInvalidName, name, err)
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("%w: %q has surrounding spaces", errors.ErrInvalidName, name)
	}
	return nil
}

func ValidateBody(body string) error {
	if err := validate.Var(body, bodyRule); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err)
	}
	return nil
}

func ValidateMedia(media domain.Media) error {
	if err := validate.Struct(media); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err)
	}
	return nil
}
