package institutions

import (
	"context"
	"fmt"

	"github.com/angelmondragon/medicalcare-backend/pkg/db/models"
	"github.com/angelmondragon/medicalcare-backend/pkg/enums"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an institutions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, institution *models.MedicalInstitution) (*models.MedicalInstitution, error) {
	if institution == nil {
		return nil, fmt.Errorf("institution is required")
	}
	if err := r.db.WithContext(ctx).Create(institution).Error; err != nil {
		return nil, err
	}
	return institution, nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.MedicalInstitution, error) {
	var institution models.MedicalInstitution
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&institution).Error; err != nil {
		return nil, err
	}
	return &institution, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.MedicalInstitution, error) {
	var institution models.MedicalInstitution
	if err := r.db.WithContext(ctx).Where("institution_code = ?", code).First(&institution).Error; err != nil {
		return nil, err
	}
	return &institution, nil
}

func (r *repository) List(ctx context.Context) ([]models.MedicalInstitution, error) {
	var institutions []models.MedicalInstitution
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&institutions).Error; err != nil {
		return nil, err
	}
	return institutions, nil
}

func (r *repository) ListByStatus(ctx context.Context, status enums.InstitutionStatus) ([]models.MedicalInstitution, error) {
	var institutions []models.MedicalInstitution
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("id ASC").
		Find(&institutions).Error; err != nil {
		return nil, err
	}
	return institutions, nil
}

func (r *repository) UpdateVersioned(ctx context.Context, institution *models.MedicalInstitution, expectedVersion int64) (int64, error) {
	if institution == nil {
		return 0, fmt.Errorf("institution is required")
	}
	result := r.db.WithContext(ctx).
		Model(&models.MedicalInstitution{}).
		Where("id = ? AND version = ?", institution.ID, expectedVersion).
		Updates(map[string]any{
			"institution_code":    institution.InstitutionCode,
			"institution_name":    institution.InstitutionName,
			"institution_type":    institution.InstitutionType,
			"address":             institution.Address,
			"phone":               institution.Phone,
			"email":               institution.Email,
			"representative_name": institution.RepresentativeName,
			"license_number":      institution.LicenseNumber,
			"status":              institution.Status,
			"updated_at":          institution.UpdatedAt,
			"version":             institution.Version,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) Delete(ctx context.Context, id int64) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.MedicalInstitution{})
	return result.RowsAffected, result.Error
}
