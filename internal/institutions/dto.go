package institutions

import (
	"time"

	"github.com/angelmondragon/medicalcare-backend/pkg/db/models"
	"github.com/angelmondragon/medicalcare-backend/pkg/enums"
)

// InstitutionDTO is the API representation of a medical institution.
type InstitutionDTO struct {
	ID                 int64                   `json:"id"`
	InstitutionCode    string                  `json:"institutionCode"`
	InstitutionName    string                  `json:"institutionName"`
	InstitutionType    string                  `json:"institutionType"`
	Address            string                  `json:"address"`
	Phone              string                  `json:"phone"`
	Email              string                  `json:"email"`
	RepresentativeName string                  `json:"representativeName"`
	LicenseNumber      string                  `json:"licenseNumber"`
	Status             enums.InstitutionStatus `json:"status"`
	CreatedAt          time.Time               `json:"createdAt"`
	UpdatedAt          time.Time               `json:"updatedAt"`
	Version            int64                   `json:"version"`
}

// CreateInstitutionInput holds the fields accepted when registering an institution.
type CreateInstitutionInput struct {
	InstitutionCode    string
	InstitutionName    string
	InstitutionType    string
	Address            string
	Phone              string
	Email              string
	RepresentativeName string
	LicenseNumber      string
}

// UpdateInstitutionInput overwrites every mutable field. Version, when set,
// must match the stored version.
type UpdateInstitutionInput struct {
	InstitutionCode    string
	InstitutionName    string
	InstitutionType    string
	Address            string
	Phone              string
	Email              string
	RepresentativeName string
	LicenseNumber      string
	Status             string
	Version            *int64
}

// FromModel maps the persisted institution into a DTO.
func FromModel(m *models.MedicalInstitution) *InstitutionDTO {
	if m == nil {
		return nil
	}
	return &InstitutionDTO{
		ID:                 m.ID,
		InstitutionCode:    m.InstitutionCode,
		InstitutionName:    m.InstitutionName,
		InstitutionType:    m.InstitutionType,
		Address:            m.Address,
		Phone:              m.Phone,
		Email:              m.Email,
		RepresentativeName: m.RepresentativeName,
		LicenseNumber:      m.LicenseNumber,
		Status:             m.Status,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
		Version:            m.Version,
	}
}

// FromModels maps a slice of persisted institutions, never returning nil.
func FromModels(items []models.MedicalInstitution) []InstitutionDTO {
	out := make([]InstitutionDTO, 0, len(items))
	for i := range items {
		out = append(out, *FromModel(&items[i]))
	}
	return out
}
