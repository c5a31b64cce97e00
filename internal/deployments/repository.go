package deployments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rolloutd/rolloutd/pkg/badgerfx"
)

// Repository is the durable deployment record store. Deployments are
// append-only history: records are created and transitioned, never deleted.
//
// The exclusivity lock is realized as a store constraint rather than
// in-memory state: `deployment:active:<spec_id>:<environment>` is written in
// the same transaction that creates a pending record and removed in the one
// that records a terminal status, so the lock survives restarts and holds
// across orchestrator instances sharing the store.
type Repository struct {
	db       *badger.DB
	entities *badgerfx.Repository[*deploymentModel]
}

func NewRepository(db *badger.DB) *Repository {
	return &Repository{
		db:       db,
		entities: badgerfx.NewRepository(func() *deploymentModel { return &deploymentModel{} }),
	}
}

// Create persists a new pending deployment and claims the target's
// exclusivity lock. It fails with ErrConflict when another deployment
// already holds the lock.
func (r *Repository) Create(_ context.Context, deployment *Deployment) error {
	model := newDeploymentModel(deployment)

	err := r.db.Update(func(txn *badger.Txn) error {
		return r.createInTxn(txn, model)
	})

	return createError(err, deployment.Target())
}

// createInTxn claims the target lock and writes the pending record in one
// transaction. The lock key is read first so two overlapping creates for
// the same target conflict at commit even when both observed it free.
func (r *Repository) createInTxn(txn *badger.Txn, model *deploymentModel) error {
	target := Target{SpecID: model.SpecID, Environment: model.Environment}
	lockKey := []byte(activeKey(target))

	_, getErr := txn.Get(lockKey)
	if getErr == nil {
		return fmt.Errorf("%w: %s", ErrConflict, target)
	}
	if !errors.Is(getErr, badger.ErrKeyNotFound) {
		return fmt.Errorf("failed to check active deployment: %w", getErr)
	}

	if setErr := txn.Set(lockKey, []byte(model.ID.String())); setErr != nil {
		return fmt.Errorf("failed to claim target lock: %w", setErr)
	}

	return r.entities.Write(txn, model)
}

// createError normalizes lock-claim failures. The explicit marker check
// and a losing optimistic commit both mean another deployment claimed the
// target first, so both surface as ErrConflict.
func createError(err error, target Target) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConflict):
		return err
	case errors.Is(err, badger.ErrConflict):
		return fmt.Errorf("%w: %s", ErrConflict, target)
	default:
		return fmt.Errorf("failed to create deployment: %w", err)
	}
}

// GetByID retrieves a deployment, resolving the derived RolledBackBy link.
func (r *Repository) GetByID(_ context.Context, id uuid.UUID) (*Deployment, error) {
	var deployment *Deployment

	err := r.db.View(func(txn *badger.Txn) error {
		model, err := r.getByID(txn, id)
		if err != nil {
			return err
		}

		deployment = newDeployment(model)
		deployment.RolledBackBy = r.rolledBackBy(txn, id)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return deployment, nil
}

// ActiveByTarget returns the deployment currently holding the target lock,
// or ErrNotFound when the target is idle.
func (r *Repository) ActiveByTarget(_ context.Context, target Target) (*Deployment, error) {
	var deployment *Deployment

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(activeKey(target)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: no active deployment for %s", ErrNotFound, target)
		}
		if err != nil {
			return fmt.Errorf("failed to get active deployment marker: %w", err)
		}

		raw, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("failed to read active deployment marker: %w", err)
		}

		id, err := uuid.Parse(string(raw))
		if err != nil {
			return fmt.Errorf("failed to parse active deployment id: %w", err)
		}

		model, err := r.getByID(txn, id)
		if err != nil {
			return err
		}

		deployment = newDeployment(model)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return deployment, nil
}

// List returns one page of deployments matching the filter, newest first.
func (r *Repository) List(_ context.Context, filter Filter, page Page) (DeploymentList, error) {
	page = page.normalized()

	var matched []Deployment

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 10
		opts.Reverse = true

		models, err := r.entities.List(txn, prefixByID, opts)
		if err != nil {
			return err
		}

		for _, model := range models {
			deployment := newDeployment(model)
			if !filter.Matches(deployment) {
				continue
			}
			deployment.RolledBackBy = r.rolledBackBy(txn, deployment.ID)
			matched = append(matched, *deployment)
		}

		return nil
	})
	if err != nil {
		return DeploymentList{}, fmt.Errorf("failed to list deployments: %w", err)
	}

	total := len(matched)
	start := (page.Number - 1) * page.Size
	if start > total {
		start = total
	}
	end := start + page.Size
	if end > total {
		end = total
	}

	return DeploymentList{
		Items:    matched[start:end],
		Page:     page.Number,
		PageSize: page.Size,
		Total:    total,
	}, nil
}

// ListByTarget returns the full history of a target, newest first.
func (r *Repository) ListByTarget(_ context.Context, target Target) ([]Deployment, error) {
	var deployments []Deployment

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 10
		opts.Reverse = true

		models, err := r.entities.ListByIndex(txn, targetPrefix(target), opts)
		if err != nil {
			return err
		}

		for _, model := range models {
			deployment := newDeployment(model)
			deployment.RolledBackBy = r.rolledBackBy(txn, deployment.ID)
			deployments = append(deployments, *deployment)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments by target: %w", err)
	}

	return deployments, nil
}

// ListUnfinished returns every deployment in a non-terminal status. Used by
// the crash-recovery sweep at startup.
func (r *Repository) ListUnfinished(_ context.Context) ([]Deployment, error) {
	var deployments []Deployment

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 10

		models, err := r.entities.List(txn, prefixByID, opts)
		if err != nil {
			return err
		}

		for _, model := range models {
			if model.Status.Terminal() {
				continue
			}
			deployments = append(deployments, *newDeployment(model))
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list unfinished deployments: %w", err)
	}

	return deployments, nil
}

// MarkRunning transitions a pending deployment to running, stamping
// StartedAt exactly once.
func (r *Repository) MarkRunning(_ context.Context, id uuid.UUID, startedAt time.Time) (*Deployment, error) {
	var deployment *Deployment

	err := r.db.Update(func(txn *badger.Txn) error {
		model, err := r.getByID(txn, id)
		if err != nil {
			return err
		}

		if model.Status != StatusPending {
			return fmt.Errorf("%w: cannot start deployment in status %q", ErrInvalidState, model.Status)
		}

		model.Status = StatusRunning
		model.StartedAt = &startedAt
		model.Touch()

		if writeErr := r.entities.Write(txn, model); writeErr != nil {
			return writeErr
		}

		deployment = newDeployment(model)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return deployment, nil
}

// MarkTerminal records a terminal status, stamps CompletedAt and releases
// the target lock in the same transaction. A completed rollback also writes
// the back-reference index from the original deployment to this one. Once a
// record is terminal any further transition fails with ErrInvalidState.
func (r *Repository) MarkTerminal(
	_ context.Context,
	id uuid.UUID,
	status Status,
	completedAt time.Time,
	errorMessage string,
) (*Deployment, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("%w: %q is not a terminal status", ErrInvalidState, status)
	}

	var deployment *Deployment

	err := r.db.Update(func(txn *badger.Txn) error {
		model, err := r.getByID(txn, id)
		if err != nil {
			return err
		}

		if model.Status.Terminal() {
			return fmt.Errorf("%w: deployment already terminal in status %q", ErrInvalidState, model.Status)
		}
		if status == StatusCompleted && model.Status != StatusRunning {
			return fmt.Errorf("%w: cannot complete deployment in status %q", ErrInvalidState, model.Status)
		}

		model.Status = status
		model.CompletedAt = &completedAt
		model.Error = errorMessage
		model.Touch()

		if writeErr := r.entities.Write(txn, model); writeErr != nil {
			return writeErr
		}

		// Release the exclusivity lock together with the terminal write.
		target := Target{SpecID: model.SpecID, Environment: model.Environment}
		if delErr := txn.Delete([]byte(activeKey(target))); delErr != nil &&
			!errors.Is(delErr, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to release target lock: %w", delErr)
		}

		if status == StatusCompleted && model.Strategy == StrategyRollback && model.RollbackOf != nil {
			key := []byte(rollbackOfKey(*model.RollbackOf))
			if setErr := txn.Set(key, []byte(model.ID.String())); setErr != nil {
				return fmt.Errorf("failed to set rollback back-reference: %w", setErr)
			}
		}

		deployment = newDeployment(model)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return deployment, nil
}

func (r *Repository) getByID(txn *badger.Txn, id uuid.UUID) (*deploymentModel, error) {
	model, err := r.entities.Read(txn, prefixByID+id.String())
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	return model, nil
}

// rolledBackBy resolves the derived back-reference; nil when no completed
// rollback targets the deployment.
func (r *Repository) rolledBackBy(txn *badger.Txn, id uuid.UUID) *uuid.UUID {
	item, err := txn.Get([]byte(rollbackOfKey(id)))
	if err != nil {
		return nil
	}

	raw, err := item.ValueCopy(nil)
	if err != nil {
		return nil
	}

	rollbackID, err := uuid.Parse(string(raw))
	if err != nil {
		return nil
	}

	return &rollbackID
}
