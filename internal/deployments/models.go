package deployments

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rolloutd/rolloutd/internal/storage"
)

const (
	prefix = "deployment:"

	prefixByID       = prefix + "id:"
	prefixByTarget   = prefix + "target:"
	prefixActive     = prefix + "active:"
	prefixRollbackOf = prefix + "rollback-of:"
)

// deploymentModel is the persisted representation of a Deployment.
type deploymentModel struct {
	storage.BaseEntity

	// References to external registry entities
	MutationID string `json:"mutation_id"`
	SpecID     string `json:"spec_id"`

	Environment Environment `json:"environment"`
	Strategy    Strategy    `json:"strategy"`
	Status      Status      `json:"status"`

	Config map[string]any `json:"config,omitempty"`

	CreatedBy   string     `json:"created_by"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Error       string     `json:"error,omitempty"`

	RollbackOf     *uuid.UUID `json:"rollback_of,omitempty"`
	RollbackReason string     `json:"rollback_reason,omitempty"`
}

func newDeploymentModel(d *Deployment) *deploymentModel {
	if d == nil {
		return nil
	}

	return &deploymentModel{
		BaseEntity: storage.BaseEntity{
			ID:        d.ID,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
		MutationID:     d.MutationID,
		SpecID:         d.SpecID,
		Environment:    d.Environment,
		Strategy:       d.Strategy,
		Status:         d.Status,
		Config:         d.Config,
		CreatedBy:      d.CreatedBy,
		StartedAt:      d.StartedAt,
		CompletedAt:    d.CompletedAt,
		Error:          d.Error,
		RollbackOf:     d.RollbackOf,
		RollbackReason: d.RollbackReason,
	}
}

func newDeployment(model *deploymentModel) *Deployment {
	if model == nil {
		return nil
	}

	return &Deployment{
		ID:             model.ID,
		MutationID:     model.MutationID,
		SpecID:         model.SpecID,
		Environment:    model.Environment,
		Strategy:       model.Strategy,
		Status:         model.Status,
		Config:         model.Config,
		CreatedBy:      model.CreatedBy,
		CreatedAt:      model.CreatedAt,
		StartedAt:      model.StartedAt,
		CompletedAt:    model.CompletedAt,
		Error:          model.Error,
		RollbackOf:     model.RollbackOf,
		RollbackReason: model.RollbackReason,
		UpdatedAt:      model.UpdatedAt,
	}
}

// StorageKey implements badgerfx.Entity.
func (m *deploymentModel) StorageKey() string {
	return prefixByID + m.ID.String()
}

// StorageIndexes implements badgerfx.Entity. The active-target marker is
// not listed here: it is the exclusivity lock and its lifetime is managed
// explicitly by the repository, not alongside the record.
func (m *deploymentModel) StorageIndexes() []string {
	return []string{m.targetIndexKey()}
}

// MarshalStorage implements badgerfx.Entity.
func (m *deploymentModel) MarshalStorage() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal deployment: %w", err)
	}
	return data, nil
}

// UnmarshalStorage implements badgerfx.Entity.
func (m *deploymentModel) UnmarshalStorage(data []byte) error {
	if err := json.Unmarshal(data, m); err != nil {
		return fmt.Errorf("failed to unmarshal deployment: %w", err)
	}
	return nil
}

// targetIndexKey orders deployments of one target by creation time:
// `deployment:target:<spec_id>:<environment>:<unix_nano>`.
func (m *deploymentModel) targetIndexKey() string {
	return targetPrefix(Target{SpecID: m.SpecID, Environment: m.Environment}) +
		strconv.FormatInt(m.CreatedAt.UnixNano(), 10)
}

func targetPrefix(t Target) string {
	return prefixByTarget + t.SpecID + ":" + string(t.Environment) + ":"
}

// activeKey is the exclusivity-lock marker for a target.
func activeKey(t Target) string {
	return prefixActive + t.SpecID + ":" + string(t.Environment)
}

// rollbackOfKey maps an original deployment id to the rollback that
// completed against it.
func rollbackOfKey(original uuid.UUID) string {
	return prefixRollbackOf + original.String()
}
