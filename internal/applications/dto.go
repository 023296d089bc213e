package applications

import (
	"time"

	"github.com/angelmondragon/medicalcare-backend/pkg/db/models"
	"github.com/angelmondragon/medicalcare-backend/pkg/enums"
)

// ApplicationDTO is the API representation of an application.
type ApplicationDTO struct {
	ID                int64                   `json:"id"`
	ApplicationNumber string                  `json:"applicationNumber"`
	InstitutionID     int64                   `json:"institutionId"`
	ApplicationType   string                  `json:"applicationType"`
	Title             string                  `json:"title"`
	Description       string                  `json:"description"`
	Status            enums.ApplicationStatus `json:"status"`
	SubmittedAt       *time.Time              `json:"submittedAt"`
	ApprovedAt        *time.Time              `json:"approvedAt"`
	RejectedAt        *time.Time              `json:"rejectedAt"`
	RejectionReason   *string                 `json:"rejectionReason"`
	CreatedAt         time.Time               `json:"createdAt"`
	UpdatedAt         time.Time               `json:"updatedAt"`
	Version           int64                   `json:"version"`
}

// CreateApplicationInput holds the caller-supplied fields of a new draft.
type CreateApplicationInput struct {
	InstitutionID   int64
	ApplicationType string
	Title           string
	Description     string
}

// UpdateApplicationInput is an administrative overwrite of every mutable
// field, including the workflow columns. Version, when set, must match the
// stored version.
type UpdateApplicationInput struct {
	InstitutionID   int64
	ApplicationType string
	Title           string
	Description     string
	Status          string
	SubmittedAt     *time.Time
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	RejectionReason *string
	Version         *int64
}

// FromModel maps the persisted application into a DTO.
func FromModel(m *models.Application) *ApplicationDTO {
	if m == nil {
		return nil
	}
	return &ApplicationDTO{
		ID:                m.ID,
		ApplicationNumber: m.ApplicationNumber,
		InstitutionID:     m.InstitutionID,
		ApplicationType:   m.ApplicationType,
		Title:             m.Title,
		Description:       m.Description,
		Status:            m.Status,
		SubmittedAt:       m.SubmittedAt,
		ApprovedAt:        m.ApprovedAt,
		RejectedAt:        m.RejectedAt,
		RejectionReason:   m.RejectionReason,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
		Version:           m.Version,
	}
}

// FromModels maps a slice of persisted applications, never returning nil.
func FromModels(items []models.Application) []ApplicationDTO {
	out := make([]ApplicationDTO, 0, len(items))
	for i := range items {
		out = append(out, *FromModel(&items[i]))
	}
	return out
}
