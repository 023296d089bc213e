package institutions

import (
	"context"

	"github.com/angelmondragon/medicalcare-backend/pkg/db/models"
	"github.com/angelmondragon/medicalcare-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the medical_institutions table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, institution *models.MedicalInstitution) (*models.MedicalInstitution, error)
	FindByID(ctx context.Context, id int64) (*models.MedicalInstitution, error)
	FindByCode(ctx context.Context, code string) (*models.MedicalInstitution, error)
	List(ctx context.Context) ([]models.MedicalInstitution, error)
	ListByStatus(ctx context.Context, status enums.InstitutionStatus) ([]models.MedicalInstitution, error)
	// UpdateVersioned writes the mutable columns only when the stored version
	// equals expectedVersion and returns the number of rows affected.
	UpdateVersioned(ctx context.Context, institution *models.MedicalInstitution, expectedVersion int64) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
}
