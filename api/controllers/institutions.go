package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/medicalcare-backend/api/responses"
	"github.com/angelmondragon/medicalcare-backend/api/validators"
	"github.com/angelmondragon/medicalcare-backend/internal/institutions"
	pkgerrors "github.com/angelmondragon/medicalcare-backend/pkg/errors"
	"github.com/angelmondragon/medicalcare-backend/pkg/logger"
)

type institutionCreateRequest struct {
	InstitutionCode    string `json:"institutionCode" validate:"required,max=64"`
	InstitutionName    string `json:"institutionName" validate:"required,max=255"`
	InstitutionType    string `json:"institutionType" validate:"max=64"`
	Address            string `json:"address" validate:"max=512"`
	Phone              string `json:"phone" validate:"max=32"`
	Email              string `json:"email" validate:"omitempty,email,max=255"`
	RepresentativeName string `json:"representativeName" validate:"max=255"`
	LicenseNumber      string `json:"licenseNumber" validate:"max=64"`
}

func (r institutionCreateRequest) toInput() institutions.CreateInstitutionInput {
	return institutions.CreateInstitutionInput{
		InstitutionCode:    r.InstitutionCode,
		InstitutionName:    r.InstitutionName,
		InstitutionType:    strings.TrimSpace(r.InstitutionType),
		Address:            strings.TrimSpace(r.Address),
		Phone:              strings.TrimSpace(r.Phone),
		Email:              strings.ToLower(strings.TrimSpace(r.Email)),
		RepresentativeName: strings.TrimSpace(r.RepresentativeName),
		LicenseNumber:      strings.TrimSpace(r.LicenseNumber),
	}
}

type institutionUpdateRequest struct {
	institutionCreateRequest
	Status  string `json:"status" validate:"required"`
	Version *int64 `json:"version" validate:"omitempty,gt=0"`
}

func (r institutionUpdateRequest) toInput() institutions.UpdateInstitutionInput {
	base := r.institutionCreateRequest.toInput()
	return institutions.UpdateInstitutionInput{
		InstitutionCode:    base.InstitutionCode,
		InstitutionName:    base.InstitutionName,
		InstitutionType:    base.InstitutionType,
		Address:            base.Address,
		Phone:              base.Phone,
		Email:              base.Email,
		RepresentativeName: base.RepresentativeName,
		LicenseNumber:      base.LicenseNumber,
		Status:             r.Status,
		Version:            r.Version,
	}
}

func InstitutionList(svc institutions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "institution service unavailable"))
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

func InstitutionGet(svc institutions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "institution service unavailable"))
			return
		}

		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		institution, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, institution)
	}
}

func InstitutionGetByCode(svc institutions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "institution service unavailable"))
			return
		}

		code, err := validators.PathParam(r, "code")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		institution, err := svc.GetByCode(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, institution)
	}
}

func InstitutionListByStatus(svc institutions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "institution service unavailable"))
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

// InstitutionCreate registers an ACTIVE institution. Duplicate codes answer 409.
func InstitutionCreate(svc institutions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "institution service unavailable"))
			return
		}

		var payload institutionCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		institution, err := svc.Create(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, institution)
	}
}

func InstitutionUpdate(svc institutions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "institution service unavailable"))
			return
		}

		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload institutionUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		institution, err := svc.Update(r.Context(), id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, institution)
	}
}

func InstitutionDelete(svc institutions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "institution service unavailable"))
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
