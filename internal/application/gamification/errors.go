package gamification

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

// kinds are checked in order; the first match becomes DomainError.Kind.
var kinds = []error{
	shared.ErrStoreUnavailable,
	shared.ErrNotFound,
	shared.ErrInvalidAmount,
	shared.ErrValidation,
	shared.ErrInactive,
	shared.ErrNotAParticipant,
	shared.ErrClockRegression,
	shared.ErrAlreadyUnlocked,
	shared.ErrAlreadyClaimed,
}

func kindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// wrap attaches operation context to err. Errors that already carry
// a DomainError are returned as is.
func wrap(domain, op string, err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return shared.WrapError(domain, op, kindOf(err), "operation failed", err)
}

func notFound(domain, op, id string) error {
	return shared.NewDomainError(domain, op, shared.ErrNotFound, fmt.Sprintf("%s %q not found", domain, id))
}

func invalidAmount(domain, op string, amount int) error {
	return shared.NewDomainError(domain, op, shared.ErrInvalidAmount, fmt.Sprintf("invalid amount %d", amount))
}

func validationFailed(domain, op, message string) error {
	return shared.NewDomainError(domain, op, shared.ErrValidation, message)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFINITION VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// validateStruct runs struct tags and folds field errors into one
// ErrValidation DomainError.
func (c *core) validateStruct(domain, op string, v any) error {
	err := c.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.WrapError(domain, op, shared.ErrValidation, "invalid definition", err)
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
		}
	}
	return validationFailed(domain, op, "invalid definition: "+strings.Join(parts, "; "))
}
