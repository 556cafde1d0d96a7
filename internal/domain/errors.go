package domain

import "errors"

// Sentinel errors returned by aggregates and the workshop graph. The
// application layer maps them onto the transport error taxonomy.
var (
	// Validation
	ErrInvalidQuantity     = errors.New("quantity must be a non-negative number")
	ErrQuantityExceedsPlan = errors.New("quantity exceeds plan quantity")
	ErrUnknownStation      = errors.New("unknown station")
	ErrNoDeadline          = errors.New("stage has no deadline to postpone")

	// Constraint violations
	ErrStationNotAllowed = errors.New("station not permitted for this item class")
	ErrPlanFullyAssigned = errors.New("stage plan is fully assigned")
	ErrDuplicateRework   = errors.New("defect already has an active rework task")

	// State transitions
	ErrStageNotActive          = errors.New("stage is not in progress")
	ErrInvalidDefectTransition = errors.New("defect transition not allowed from current state")
)
