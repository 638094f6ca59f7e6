package validator

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterCustomRules installs booking-domain validation rules on gin's
// binding engine so request structs can use them in binding tags.
func RegisterCustomRules() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine")
	}

	if err := v.RegisterValidation("insurance", validInsurance); err != nil {
		return fmt.Errorf("failed to register insurance rule: %w", err)
	}
	return nil
}

// validInsurance accepts the two insurance schemes the backend knows.
func validInsurance(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "PUBLIC", "PRIVATE":
		return true
	}
	return false
}
