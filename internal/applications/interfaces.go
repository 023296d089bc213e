package applications

import (
	"context"

	"github.com/angelmondragon/medicalcare-backend/pkg/db/models"
	"github.com/angelmondragon/medicalcare-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the applications table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, app *models.Application) (*models.Application, error)
	FindByID(ctx context.Context, id int64) (*models.Application, error)
	FindByNumber(ctx context.Context, number string) (*models.Application, error)
	List(ctx context.Context) ([]models.Application, error)
	ListByInstitution(ctx context.Context, institutionID int64) ([]models.Application, error)
	ListByStatus(ctx context.Context, status enums.ApplicationStatus) ([]models.Application, error)
	ListByType(ctx context.Context, applicationType string) ([]models.Application, error)
	// UpdateVersioned writes every mutable column only when the stored
	// version equals expectedVersion and returns the number of rows affected.
	UpdateVersioned(ctx context.Context, app *models.Application, expectedVersion int64) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	// InstitutionExists reports whether the referenced institution row exists.
	InstitutionExists(ctx context.Context, institutionID int64) (bool, error)
}
