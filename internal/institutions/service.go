package institutions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/medicalcare-backend/pkg/db"
	"github.com/angelmondragon/medicalcare-backend/pkg/db/models"
	"github.com/angelmondragon/medicalcare-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/medicalcare-backend/pkg/errors"
	"github.com/angelmondragon/medicalcare-backend/pkg/logger"
	"gorm.io/gorm"
)

const codeConstraint = "uq_medical_institutions_code"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the medical institution registry.
type Service interface {
	Create(ctx context.Context, input CreateInstitutionInput) (*InstitutionDTO, error)
	Get(ctx context.Context, id int64) (*InstitutionDTO, error)
	GetByCode(ctx context.Context, code string) (*InstitutionDTO, error)
	List(ctx context.Context) ([]InstitutionDTO, error)
	ListByStatus(ctx context.Context, status string) ([]InstitutionDTO, error)
	Update(ctx context.Context, id int64, input UpdateInstitutionInput) (*InstitutionDTO, error)
	Delete(ctx context.Context, id int64) error
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds the registry service.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("institutions repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo: repo,
		tx:   tx,
		logg: logg,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInstitutionInput) (*InstitutionDTO, error) {
	code := strings.TrimSpace(input.InstitutionCode)
	name := strings.TrimSpace(input.InstitutionName)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "institutionCode is required")
	}
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "institutionName is required")
	}

	now := s.now()
	institution := &models.MedicalInstitution{
		InstitutionCode:    code,
		InstitutionName:    name,
		InstitutionType:    input.InstitutionType,
		Address:            input.Address,
		Phone:              input.Phone,
		Email:              input.Email,
		RepresentativeName: input.RepresentativeName,
		LicenseNumber:      input.LicenseNumber,
		Status:             enums.InstitutionStatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
		Version:            1,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, institution); err != nil {
			return mapWriteError(err, "create institution")
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "create institution")
	}

	ctx = s.logg.WithInstitutionID(ctx, institution.ID)
	s.logg.Info(ctx, "institution.created")
	return FromModel(institution), nil
}

func (s *service) Get(ctx context.Context, id int64) (*InstitutionDTO, error) {
	institution, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapReadError(err, "institution not found", "load institution")
	}
	return FromModel(institution), nil
}

func (s *service) GetByCode(ctx context.Context, code string) (*InstitutionDTO, error) {
	institution, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, mapReadError(err, "institution not found", "load institution by code")
	}
	return FromModel(institution), nil
}

func (s *service) List(ctx context.Context) ([]InstitutionDTO, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list institutions")
	}
	return FromModels(items), nil
}

func (s *service) ListByStatus(ctx context.Context, status string) ([]InstitutionDTO, error) {
	parsed, err := enums.ParseInstitutionStatus(status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid institution status")
	}
	items, err := s.repo.ListByStatus(ctx, parsed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list institutions by status")
	}
	return FromModels(items), nil
}

func (s *service) Update(ctx context.Context, id int64, input UpdateInstitutionInput) (*InstitutionDTO, error) {
	code := strings.TrimSpace(input.InstitutionCode)
	name := strings.TrimSpace(input.InstitutionName)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "institutionCode is required")
	}
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "institutionName is required")
	}
	status, err := enums.ParseInstitutionStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid institution status")
	}

	var updated models.MedicalInstitution
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapReadError(err, "institution not found", "load institution")
		}
		if input.Version != nil && *input.Version != current.Version {
			return versionConflict(current.Version, *input.Version)
		}

		next := *current
		next.InstitutionCode = code
		next.InstitutionName = name
		next.InstitutionType = input.InstitutionType
		next.Address = input.Address
		next.Phone = input.Phone
		next.Email = input.Email
		next.RepresentativeName = input.RepresentativeName
		next.LicenseNumber = input.LicenseNumber
		next.Status = status
		next.UpdatedAt = s.now()
		next.Version = current.Version + 1

		rows, err := repo.UpdateVersioned(ctx, &next, current.Version)
		if err != nil {
			return mapWriteError(err, "update institution")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "version conflict")
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "update institution")
	}

	ctx = s.logg.WithInstitutionID(ctx, id)
	s.logg.Info(ctx, "institution.updated")
	return FromModel(&updated), nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.WithTx(tx).Delete(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete institution")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "institution not found")
		}
		return nil
	})
	if err != nil {
		return asServiceError(err, "delete institution")
	}

	ctx = s.logg.WithInstitutionID(ctx, id)
	s.logg.Info(ctx, "institution.deleted")
	return nil
}

func mapReadError(err error, notFoundMsg, failureMsg string) error {
	if db.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, failureMsg)
}

func mapWriteError(err error, msg string) error {
	if db.IsUniqueViolation(err, codeConstraint) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "institution code already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func versionConflict(stored, given int64) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "version conflict").WithDetails(map[string]any{
		"currentVersion": stored,
		"givenVersion":   given,
	})
}

// asServiceError keeps typed errors from the transaction body and wraps
// anything else, such as a failed commit.
func asServiceError(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
