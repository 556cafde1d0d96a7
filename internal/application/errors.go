package application

import (
	"errors"

	"github.com/factory-platform/production-service/internal/domain"
	apperrors "github.com/factory-platform/production-service/pkg/errors"
)

// mapDomainError translates domain sentinel errors into the transport
// error taxonomy. The wrapped message carries the violated invariant so an
// operator can correct the input.
func mapDomainError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrQuantityExceedsPlan),
		errors.Is(err, domain.ErrUnknownStation),
		errors.Is(err, domain.ErrNoDeadline):
		return apperrors.ErrValidation(err.Error())
	case errors.Is(err, domain.ErrStationNotAllowed),
		errors.Is(err, domain.ErrPlanFullyAssigned),
		errors.Is(err, domain.ErrDuplicateRework):
		return apperrors.ErrConstraintViolation(err.Error())
	case errors.Is(err, domain.ErrStageNotActive),
		errors.Is(err, domain.ErrInvalidDefectTransition):
		return apperrors.ErrStateTransition(err.Error())
	default:
		return err
	}
}
