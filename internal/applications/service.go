package applications

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/medicalcare-backend/pkg/config"
	"github.com/angelmondragon/medicalcare-backend/pkg/db"
	"github.com/angelmondragon/medicalcare-backend/pkg/db/models"
	"github.com/angelmondragon/medicalcare-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/medicalcare-backend/pkg/errors"
	"github.com/angelmondragon/medicalcare-backend/pkg/logger"
	"github.com/angelmondragon/medicalcare-backend/pkg/metrics"
	"gorm.io/gorm"
)

const numberConstraint = "uq_applications_application_number"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the application workflow.
type Service interface {
	Create(ctx context.Context, input CreateApplicationInput) (*ApplicationDTO, error)
	Get(ctx context.Context, id int64) (*ApplicationDTO, error)
	GetByNumber(ctx context.Context, number string) (*ApplicationDTO, error)
	List(ctx context.Context) ([]ApplicationDTO, error)
	ListByInstitution(ctx context.Context, institutionID int64) ([]ApplicationDTO, error)
	ListByStatus(ctx context.Context, status string) ([]ApplicationDTO, error)
	ListByType(ctx context.Context, applicationType string) ([]ApplicationDTO, error)
	Submit(ctx context.Context, id int64) (*ApplicationDTO, error)
	Approve(ctx context.Context, id int64) (*ApplicationDTO, error)
	Reject(ctx context.Context, id int64, reason string) (*ApplicationDTO, error)
	Update(ctx context.Context, id int64, input UpdateApplicationInput) (*ApplicationDTO, error)
	Delete(ctx context.Context, id int64) error
}

type service struct {
	repo         Repository
	tx           txRunner
	metrics      *metrics.WorkflowMetrics
	logg         *logger.Logger
	now          func() time.Time
	newNumber    NumberGenerator
	maxAttempts  int
}

// NewService builds the application workflow service.
func NewService(repo Repository, tx txRunner, cfg config.WorkflowConfig, workflowMetrics *metrics.WorkflowMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("applications repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	attempts := cfg.NumberMaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &service{
		repo:         repo,
		tx:           tx,
		metrics:      workflowMetrics,
		logg:         logg,
		now:          func() time.Time { return time.Now().UTC() },
		newNumber:    NewNumber,
		maxAttempts:  attempts,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateApplicationInput) (dto *ApplicationDTO, err error) {
	defer func() { s.metrics.Record(string(OperationCreate), err) }()

	if err := s.requireInstitution(ctx, s.repo, input.InstitutionID); err != nil {
		return nil, err
	}

	now := s.now()
	draft := models.Application{
		InstitutionID:   input.InstitutionID,
		ApplicationType: input.ApplicationType,
		Title:           input.Title,
		Description:     input.Description,
		Status:          enums.ApplicationStatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		app := draft
		app.ApplicationNumber = s.newNumber()
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := s.repo.WithTx(tx).Create(ctx, &app)
			return err
		})
		if err == nil {
			logCtx := s.logg.WithApplicationID(ctx, app.ID)
			logCtx = s.logg.WithInstitutionID(logCtx, app.InstitutionID)
			s.logg.Info(logCtx, "application.created")
			return FromModel(&app), nil
		}
		if !db.IsUniqueViolation(err, numberConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create application")
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "application.number_collision")
	}

	return nil, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique application number").WithDetails(map[string]any{
		"attempts": s.maxAttempts,
	})
}

func (s *service) Get(ctx context.Context, id int64) (*ApplicationDTO, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapReadError(err, "load application")
	}
	return FromModel(app), nil
}

func (s *service) GetByNumber(ctx context.Context, number string) (*ApplicationDTO, error) {
	app, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, mapReadError(err, "load application by number")
	}
	return FromModel(app), nil
}

func (s *service) List(ctx context.Context) ([]ApplicationDTO, error) {
	apps, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list applications")
	}
	return FromModels(apps), nil
}

func (s *service) ListByInstitution(ctx context.Context, institutionID int64) ([]ApplicationDTO, error) {
	apps, err := s.repo.ListByInstitution(ctx, institutionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list applications by institution")
	}
	return FromModels(apps), nil
}

func (s *service) ListByStatus(ctx context.Context, status string) ([]ApplicationDTO, error) {
	parsed, err := enums.ParseApplicationStatus(status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid application status")
	}
	apps, err := s.repo.ListByStatus(ctx, parsed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list applications by status")
	}
	return FromModels(apps), nil
}

func (s *service) ListByType(ctx context.Context, applicationType string) ([]ApplicationDTO, error) {
	apps, err := s.repo.ListByType(ctx, applicationType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list applications by type")
	}
	return FromModels(apps), nil
}

func (s *service) Submit(ctx context.Context, id int64) (*ApplicationDTO, error) {
	return s.transition(ctx, id, OperationSubmit, nil, func(_ Repository, current models.Application, now time.Time) (models.Application, error) {
		return submit(current, now)
	})
}

func (s *service) Approve(ctx context.Context, id int64) (*ApplicationDTO, error) {
	return s.transition(ctx, id, OperationApprove, nil, func(_ Repository, current models.Application, now time.Time) (models.Application, error) {
		return approve(current, now)
	})
}

func (s *service) Reject(ctx context.Context, id int64, reason string) (*ApplicationDTO, error) {
	return s.transition(ctx, id, OperationReject, nil, func(_ Repository, current models.Application, now time.Time) (models.Application, error) {
		return reject(current, reason, now)
	})
}

func (s *service) Update(ctx context.Context, id int64, input UpdateApplicationInput) (*ApplicationDTO, error) {
	return s.transition(ctx, id, OperationUpdate, input.Version, func(repo Repository, current models.Application, now time.Time) (models.Application, error) {
		if err := s.requireInstitution(ctx, repo, input.InstitutionID); err != nil {
			return current, err
		}
		return overwrite(current, input, now)
	})
}

func (s *service) Delete(ctx context.Context, id int64) (err error) {
	defer func() { s.metrics.Record(string(OperationDelete), err) }()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.WithTx(tx).Delete(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete application")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "application not found")
		}
		return nil
	})
	if err != nil {
		return asServiceError(err, "delete application")
	}

	s.logg.Info(s.logg.WithApplicationID(ctx, id), "application.deleted")
	return nil
}

// transitionFunc computes the next state. repo is bound to the transaction.
type transitionFunc func(repo Repository, current models.Application, now time.Time) (models.Application, error)

// transition loads the application, applies fn and writes the result with a
// version-conditioned update, all in one transaction.
func (s *service) transition(ctx context.Context, id int64, op Operation, expectedVersion *int64, fn transitionFunc) (dto *ApplicationDTO, err error) {
	defer func() { s.metrics.Record(string(op), err) }()

	var next models.Application
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapReadError(err, "load application")
		}
		if expectedVersion != nil && *expectedVersion != current.Version {
			return pkgerrors.New(pkgerrors.CodeConflict, "version conflict").WithDetails(map[string]any{
				"currentVersion": current.Version,
				"givenVersion":   *expectedVersion,
			})
		}

		next, err = fn(repo, *current, s.now())
		if err != nil {
			return err
		}

		rows, err := repo.UpdateVersioned(ctx, &next, current.Version)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update application")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "version conflict")
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, string(op)+" application")
	}

	logCtx := s.logg.WithApplicationID(ctx, next.ID)
	logCtx = s.logg.WithField(logCtx, "status", next.Status.String())
	s.logg.Info(logCtx, "application."+eventSuffix(op))
	return FromModel(&next), nil
}

func (s *service) requireInstitution(ctx context.Context, repo Repository, institutionID int64) error {
	if institutionID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "institutionId is required")
	}
	exists, err := repo.InstitutionExists(ctx, institutionID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load institution")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeValidation, "institution not found").WithDetails(map[string]any{
			"institutionId": institutionID,
		})
	}
	return nil
}

func eventSuffix(op Operation) string {
	switch op {
	case OperationSubmit:
		return "submitted"
	case OperationApprove:
		return "approved"
	case OperationReject:
		return "rejected"
	default:
		return "updated"
	}
}

func mapReadError(err error, msg string) error {
	if db.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "application not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func asServiceError(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
