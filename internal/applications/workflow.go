package applications

import (
	"strings"
	"time"

	"github.com/angelmondragon/medicalcare-backend/pkg/db/models"
	"github.com/angelmondragon/medicalcare-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/medicalcare-backend/pkg/errors"
)

// Operation names a mutation of the application workflow.
type Operation string

const (
	OperationCreate  Operation = "create"
	OperationSubmit  Operation = "submit"
	OperationApprove Operation = "approve"
	OperationReject  Operation = "reject"
	OperationUpdate  Operation = "update"
	OperationDelete  Operation = "delete"
)

// The transition functions below never modify their input; they return the
// next state with version and updatedAt advanced.

func submit(current models.Application, now time.Time) (models.Application, error) {
	if err := requireStatus(current, OperationSubmit, enums.ApplicationStatusDraft); err != nil {
		return current, err
	}
	next := advance(current, now)
	next.Status = enums.ApplicationStatusSubmitted
	next.SubmittedAt = &now
	next.ApprovedAt = nil
	next.RejectedAt = nil
	next.RejectionReason = nil
	return next, nil
}

func approve(current models.Application, now time.Time) (models.Application, error) {
	if err := requireStatus(current, OperationApprove, enums.ApplicationStatusSubmitted); err != nil {
		return current, err
	}
	next := advance(current, now)
	next.Status = enums.ApplicationStatusApproved
	next.ApprovedAt = &now
	next.RejectedAt = nil
	next.RejectionReason = nil
	return next, nil
}

func reject(current models.Application, reason string, now time.Time) (models.Application, error) {
	if err := requireStatus(current, OperationReject, enums.ApplicationStatusSubmitted); err != nil {
		return current, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return current, pkgerrors.New(pkgerrors.CodeValidation, "rejectionReason is required").WithDetails(map[string]any{
			"rejectionReason": "is required",
		})
	}
	next := advance(current, now)
	next.Status = enums.ApplicationStatusRejected
	next.RejectedAt = &now
	next.RejectionReason = &reason
	next.ApprovedAt = nil
	return next, nil
}

// overwrite applies an administrative correction. Transition legality is not
// checked, but the workflow columns must agree with the requested status.
func overwrite(current models.Application, input UpdateApplicationInput, now time.Time) (models.Application, error) {
	status, err := enums.ParseApplicationStatus(input.Status)
	if err != nil {
		return current, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid application status")
	}
	next := advance(current, now)
	next.InstitutionID = input.InstitutionID
	next.ApplicationType = input.ApplicationType
	next.Title = input.Title
	next.Description = input.Description
	next.Status = status
	next.SubmittedAt = input.SubmittedAt
	next.ApprovedAt = input.ApprovedAt
	next.RejectedAt = input.RejectedAt
	next.RejectionReason = input.RejectionReason
	if !next.WorkflowConsistent() {
		return current, pkgerrors.New(pkgerrors.CodeValidation, "workflow timestamps do not match status").WithDetails(map[string]any{
			"status": status,
		})
	}
	return next, nil
}

func advance(current models.Application, now time.Time) models.Application {
	next := current
	next.UpdatedAt = now
	next.Version = current.Version + 1
	return next
}

func requireStatus(current models.Application, op Operation, want enums.ApplicationStatus) error {
	if current.Status == want {
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeInvalidState, "application is not in %s status", want).WithDetails(map[string]any{
		"operation":     op,
		"currentStatus": current.Status,
	})
}
