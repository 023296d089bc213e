package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/medicalcare-backend/api/responses"
	"github.com/angelmondragon/medicalcare-backend/api/validators"
	"github.com/angelmondragon/medicalcare-backend/internal/applications"
	pkgerrors "github.com/angelmondragon/medicalcare-backend/pkg/errors"
	"github.com/angelmondragon/medicalcare-backend/pkg/logger"
)

type applicationCreateRequest struct {
	InstitutionID   int64  `json:"institutionId" validate:"required,gt=0"`
	ApplicationType string `json:"applicationType" validate:"max=64"`
	Title           string `json:"title" validate:"max=255"`
	Description     string `json:"description"`
}

func (r applicationCreateRequest) toInput() applications.CreateApplicationInput {
	return applications.CreateApplicationInput{
		InstitutionID:   r.InstitutionID,
		ApplicationType: validators.SanitizeString(r.ApplicationType, 64),
		Title:           validators.SanitizeString(r.Title, 255),
		Description:     r.Description,
	}
}

type applicationUpdateRequest struct {
	InstitutionID   int64      `json:"institutionId" validate:"required,gt=0"`
	ApplicationType string     `json:"applicationType" validate:"max=64"`
	Title           string     `json:"title" validate:"max=255"`
	Description     string     `json:"description"`
	Status          string     `json:"status" validate:"required"`
	SubmittedAt     *time.Time `json:"submittedAt"`
	ApprovedAt      *time.Time `json:"approvedAt"`
	RejectedAt      *time.Time `json:"rejectedAt"`
	RejectionReason *string    `json:"rejectionReason"`
	Version         *int64     `json:"version" validate:"omitempty,gt=0"`
}

func (r applicationUpdateRequest) toInput() applications.UpdateApplicationInput {
	return applications.UpdateApplicationInput{
		InstitutionID:   r.InstitutionID,
		ApplicationType: validators.SanitizeString(r.ApplicationType, 64),
		Title:           validators.SanitizeString(r.Title, 255),
		Description:     r.Description,
		Status:          r.Status,
		SubmittedAt:     r.SubmittedAt,
		ApprovedAt:      r.ApprovedAt,
		RejectedAt:      r.RejectedAt,
		RejectionReason: r.RejectionReason,
		Version:         r.Version,
	}
}

type applicationRejectRequest struct {
	RejectionReason string `json:"rejectionReason"`
}

func ApplicationList(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "application service unavailable"))
			return
		}

		items, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func ApplicationGet(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "application service unavailable"))
			return
		}

		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		app, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, app)
	}
}

func ApplicationGetByNumber(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "application service unavailable"))
			return
		}

		number, err := validators.PathParam(r, "number")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		app, err := svc.GetByNumber(r.Context(), number)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, app)
	}
}

func ApplicationListByInstitution(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "application service unavailable"))
			return
		}

		institutionID, err := validators.ParseIDParam(r, "institutionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListByInstitution(r.Context(), institutionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func ApplicationListByStatus(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "application service unavailable"))
			return
		}

		status, err := validators.PathParam(r, "status")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListByStatus(r.Context(), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func ApplicationListByType(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "application service unavailable"))
			return
		}

		applicationType, err := validators.PathParam(r, "type")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListByType(r.Context(), applicationType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// ApplicationCreate registers a new draft for an existing institution.
func ApplicationCreate(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "application service unavailable"))
			return
		}

		var payload applicationCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		app, err := svc.Create(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, app)
	}
}

// ApplicationUpdate overwrites every mutable field, bypassing transition rules.
func ApplicationUpdate(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "application service unavailable"))
			return
		}

		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload applicationUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		app, err := svc.Update(r.Context(), id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, app)
	}
}

func ApplicationDelete(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "application service unavailable"))
			return
		}

		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func ApplicationSubmit(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return applicationTransition(svc, logg, applications.Service.Submit)
}

func ApplicationApprove(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return applicationTransition(svc, logg, applications.Service.Approve)
}

// ApplicationReject forwards rejectionReason as sent. The service checks it
// only after the record and its status, so a missing application is a 404
// whatever the body holds.
func ApplicationReject(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "application service unavailable"))
			return
		}

		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload applicationRejectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		app, err := svc.Reject(r.Context(), id, payload.RejectionReason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, app)
	}
}

func applicationTransition(svc applications.Service, logg *logger.Logger, fn func(applications.Service, context.Context, int64) (*applications.ApplicationDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "application service unavailable"))
			return
		}

		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		app, err := fn(svc, r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, app)
	}
}
