package applications

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

// NewRepository builds an applications repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, app *models.Application) (*models.Application, error) {
	if app == nil {
		return nil, fmt.Errorf("application is required")
	}
	if err := r.db.WithContext(ctx).Create(app).Error; err != nil {
		return nil, err
	}
	return app, nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Application, error) {
	var app models.Application
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *repository) FindByNumber(ctx context.Context, number string) (*models.Application, error) {
	var app models.Application
	if err := r.db.WithContext(ctx).Where("application_number = ?", number).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *repository) List(ctx context.Context) ([]models.Application, error) {
	return r.list(ctx, nil)
}

func (r *repository) ListByInstitution(ctx context.Context, institutionID int64) ([]models.Application, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("institution_id = ?", institutionID)
	})
}

func (r *repository) ListByStatus(ctx context.Context, status enums.ApplicationStatus) ([]models.Application, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("status = ?", status)
	})
}

func (r *repository) ListByType(ctx context.Context, applicationType string) ([]models.Application, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("application_type = ?", applicationType)
	})
}

func (r *repository) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]models.Application, error) {
	q := r.db.WithContext(ctx).Model(&models.Application{})
	if scope != nil {
		q = scope(q)
	}
	var apps []models.Application
	if err := q.Order("id ASC").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *repository) UpdateVersioned(ctx context.Context, app *models.Application, expectedVersion int64) (int64, error) {
	if app == nil {
		return 0, fmt.Errorf("application is required")
	}
	result := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("id = ? AND version = ?", app.ID, expectedVersion).
		Updates(map[string]any{
			"institution_id":   app.InstitutionID,
			"application_type": app.ApplicationType,
			"title":            app.Title,
			"description":      app.Description,
			"status":           app.Status,
			"submitted_at":     app.SubmittedAt,
			"approved_at":      app.ApprovedAt,
			"rejected_at":      app.RejectedAt,
			"rejection_reason": app.RejectionReason,
			"updated_at":       app.UpdatedAt,
			"version":          app.Version,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) Delete(ctx context.Context, id int64) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Application{})
	return result.RowsAffected, result.Error
}

func (r *repository) InstitutionExists(ctx context.Context, institutionID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MedicalInstitution{}).
		Where("id = ?", institutionID).
		Count(&count).Error
	return count > 0, err
}
