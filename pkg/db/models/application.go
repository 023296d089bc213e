package models

import (
	"time"

	"github.com/angelmondragon/medicalcare-backend/pkg/enums"
)

// Application is a request filed by a medical institution and moved through
// the DRAFT -> SUBMITTED -> APPROVED | REJECTED workflow. Timestamps are set
// by the service; gorm's automatic time tracking is disabled.
type Application struct {
	ID                int64                   `gorm:"column:id;primaryKey;autoIncrement"`
	ApplicationNumber string                  `gorm:"column:application_number;size:32;not null;uniqueIndex:uq_applications_application_number"`
	InstitutionID     int64                   `gorm:"column:institution_id;not null;index:idx_applications_institution_id"`
	ApplicationType   string                  `gorm:"column:application_type;size:64;index:idx_applications_application_type"`
	Title             string                  `gorm:"column:title;size:255"`
	Description       string                  `gorm:"column:description;type:text"`
	Status            enums.ApplicationStatus `gorm:"column:status;size:16;not null;index:idx_applications_status"`
	SubmittedAt       *time.Time              `gorm:"column:submitted_at"`
	ApprovedAt        *time.Time              `gorm:"column:approved_at"`
	RejectedAt        *time.Time              `gorm:"column:rejected_at"`
	RejectionReason   *string                 `gorm:"column:rejection_reason;type:text"`
	CreatedAt         time.Time               `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;not null;autoUpdateTime:false"`
	Version           int64                   `gorm:"column:version;not null;default:1"`
}

func (Application) TableName() string {
	return "applications"
}

// WorkflowConsistent reports whether the workflow timestamps agree with Status:
// submitted_at iff the application has been submitted, approved_at iff
// APPROVED, rejected_at and rejection_reason iff REJECTED.
func (a Application) WorkflowConsistent() bool {
	if !a.Status.IsValid() {
		return false
	}
	if (a.SubmittedAt != nil) != a.Status.HasBeenSubmitted() {
		return false
	}
	approved := a.Status == enums.ApplicationStatusApproved
	if (a.ApprovedAt != nil) != approved {
		return false
	}
	rejected := a.Status == enums.ApplicationStatusRejected
	if (a.RejectedAt != nil) != rejected || (a.RejectionReason != nil) != rejected {
		return false
	}
	return true
}
