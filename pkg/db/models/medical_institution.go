package models

import (
	"time"

	"github.com/angelmondragon/medicalcare-backend/pkg/enums"
)

// MedicalInstitution is a registered medical organization.
type MedicalInstitution struct {
	ID                 int64                   `gorm:"column:id;primaryKey;autoIncrement"`
	InstitutionCode    string                  `gorm:"column:institution_code;size:64;not null;uniqueIndex:uq_medical_institutions_code"`
	InstitutionName    string                  `gorm:"column:institution_name;size:255;not null"`
	InstitutionType    string                  `gorm:"column:institution_type;size:64"`
	Address            string                  `gorm:"column:address;size:512"`
	Phone              string                  `gorm:"column:phone;size:32"`
	Email              string                  `gorm:"column:email;size:255"`
	RepresentativeName string                  `gorm:"column:representative_name;size:255"`
	LicenseNumber      string                  `gorm:"column:license_number;size:64"`
	Status             enums.InstitutionStatus `gorm:"column:status;size:16;not null;index:idx_medical_institutions_status"`
	CreatedAt          time.Time               `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt          time.Time               `gorm:"column:updated_at;not null;autoUpdateTime:false"`
	Version            int64                   `gorm:"column:version;not null;default:1"`
}

func (MedicalInstitution) TableName() string {
	return "medical_institutions"
}
