package deployments

import (
	"time"

	"github.com/google/uuid"
)

// CreateRequest represents the request payload for creating a deployment.
type CreateRequest struct {
	MutationID  string         `json:"mutation_id" validate:"required,identifier"`
	SpecID      string         `json:"spec_id"     validate:"required,identifier"`
	Environment string         `json:"environment" validate:"required,oneof=development testing staging production"`
	Strategy    string         `json:"strategy"    validate:"required,oneof=rolling blue_green canary recreate"`
	Config      map[string]any `json:"config,omitempty"`

	// Confirmed acknowledges a production rollout; the confirmation
	// dialog lives in the dashboard, the flag is validated here.
	Confirmed bool `json:"confirmed"`

	CreatedBy string `json:"created_by" validate:"omitempty,max=100"`
}

// RollbackRequest represents the request payload for rolling back a
// terminal deployment.
type RollbackRequest struct {
	Reason    string `json:"reason" validate:"required,min=1,max=500"`
	Confirmed bool   `json:"confirmed"`
	CreatedBy string `json:"created_by" validate:"omitempty,max=100"`
}

// DeploymentResponse represents the response payload for a deployment.
type DeploymentResponse struct {
	ID          uuid.UUID      `json:"id"`
	MutationID  string         `json:"mutation_id"`
	SpecID      string         `json:"spec_id"`
	Environment string         `json:"environment"`
	Strategy    string         `json:"strategy"`
	Status      string         `json:"status"`
	Config      map[string]any `json:"config,omitempty"`

	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Error string `json:"error,omitempty"`

	RollbackOf     *uuid.UUID `json:"rollback_of,omitempty"`
	RollbackReason string     `json:"rollback_reason,omitempty"`
	RolledBackBy   *uuid.UUID `json:"rolled_back_by,omitempty"`
}

// StatusResponse represents the polled progress projection.
type StatusResponse struct {
	DeploymentID              uuid.UUID `json:"deployment_id"`
	Status                    string    `json:"status"`
	ProgressPercentage        int       `json:"progress_percentage"`
	CurrentStep               string    `json:"current_step"`
	EstimatedRemainingSeconds *int      `json:"estimated_remaining_seconds,omitempty"`
	ErrorMessage              string    `json:"error_message,omitempty"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// ListResponse is one page of deployments.
type ListResponse struct {
	Items    []DeploymentResponse `json:"items"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	Total    int                  `json:"total"`
}
