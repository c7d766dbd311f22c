package service

import (
	"errors"

	"roomdesk/internal/catalog"
	reserrors "roomdesk/internal/reservations/errors"
	"roomdesk/internal/reservations/validator"
	apperrors "roomdesk/pkg/errors"
)

const (
	DetailReason        = apperrors.DetailReason
	DetailConflictingID = "conflicting_reservation_id"
	DetailConflictStart = "conflict_start_time"
	DetailConflictEnd   = "conflict_end_time"
	DetailFields        = "fields"
)

// rejectionError converts a booking rejection into the HTTP-facing error.
// Every result carries the reason in its details.
func rejectionError(rej *reserrors.Rejection) *apperrors.AppError {
	var appErr *apperrors.AppError
	switch rej.Reason {
	case reserrors.SlotConflict:
		appErr = apperrors.Conflict(rej.Message).WithDetails(map[string]any{
			DetailConflictingID: rej.ConflictingID,
			DetailConflictStart: rej.ConflictStart,
			DetailConflictEnd:   rej.ConflictEnd,
		})
	case reserrors.WrongCredential:
		appErr = apperrors.Forbidden(rej.Message)
	case reserrors.NotFound:
		appErr = apperrors.NotFound(rej.Message)
	case reserrors.CatalogUnavailable:
		appErr = apperrors.Unavailable("Room catalog")
	default:
		appErr = apperrors.Validation(rej.Message, nil)
	}
	return appErr.WithDetails(map[string]any{DetailReason: string(rej.Reason)}).WithCause(rej)
}

func malformed(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	details := map[string]any{DetailReason: string(reserrors.MalformedInput)}
	if errors.As(err, &verrs) {
		details[DetailFields] = verrs
	}
	return apperrors.Validation("Invalid reservation input", details).WithCause(err)
}

func notFound(resource, id string) *apperrors.AppError {
	return apperrors.NotFoundWithID(resource, id).
		WithDetails(map[string]any{DetailReason: string(reserrors.NotFound)})
}

func catalogError(err error, resource, id string) *apperrors.AppError {
	switch {
	case errors.Is(err, catalog.ErrUnavailable):
		return rejectionError(reserrors.Reject(reserrors.CatalogUnavailable, "room and team data is not loaded yet"))
	case errors.Is(err, catalog.ErrRoomNotFound), errors.Is(err, catalog.ErrTeamNotFound):
		return notFound(resource, id)
	default:
		return apperrors.Internal("Failed to read catalog", err)
	}
}

func repositoryError(err error, id, action string) *apperrors.AppError {
	switch {
	case errors.Is(err, reserrors.ErrNotFound):
		return notFound("Reservation", id)
	case errors.Is(err, reserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid reservation ID format")
	default:
		return apperrors.Internal("Failed to "+action+" reservation", err)
	}
}
