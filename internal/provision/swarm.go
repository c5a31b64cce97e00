package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/moby/moby/api/types/swarm"
	"github.com/moby/moby/client"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/rolloutd/rolloutd/internal/deployments"
)

const (
	labelSpec        = "rolloutd.spec"
	labelEnvironment = "rolloutd.environment"
	labelRole        = "rolloutd.role"
	labelVersion     = "rolloutd.version"
)

// SwarmConfig configures the Docker Swarm provisioning backend.
type SwarmConfig struct {
	// ImageTemplate renders a unit image from its version; %s is replaced
	// with the mutation id, e.g. "registry.local/%s:latest".
	ImageTemplate string
}

// SwarmProvisioner maps deploy units onto Docker Swarm services labeled
// with their target and role. Traffic shares are expressed through unit
// counts per role: weight shifting adds or removes canary units and a
// blue-green promotion relabels the standby set as active.
type SwarmProvisioner struct {
	client *client.Client
	config SwarmConfig
	logger *zap.Logger
}

func NewSwarmProvisioner(client *client.Client, config SwarmConfig, logger *zap.Logger) *SwarmProvisioner {
	return &SwarmProvisioner{
		client: client,
		config: config,
		logger: logger,
	}
}

var _ Provisioner = (*SwarmProvisioner)(nil)

// ListUnits implements Provisioner.
func (p *SwarmProvisioner) ListUnits(ctx context.Context, target deployments.Target) ([]Unit, error) {
	services, err := p.targetServices(ctx, target)
	if err != nil {
		return nil, err
	}

	return lo.Map(services, func(svc swarm.Service, _ int) Unit {
		return newUnit(svc)
	}), nil
}

// ProvisionUnit implements Provisioner.
func (p *SwarmProvisioner) ProvisionUnit(
	ctx context.Context,
	target deployments.Target,
	role Role,
	version string,
) (Unit, error) {
	name := unitName(target, role)
	spec := p.unitSpec(target, name, role, version)

	p.logger.Info("provisioning unit",
		zap.String("target", target.String()),
		zap.String("name", name),
		zap.String("role", string(role)),
	)

	result, err := p.client.ServiceCreate(ctx, client.ServiceCreateOptions{
		Spec: spec,
	})
	if err != nil {
		return Unit{}, fmt.Errorf("failed to provision unit: %w", err)
	}

	return Unit{
		ID:      result.ID,
		Name:    name,
		Role:    role,
		Version: version,
	}, nil
}

// ReplaceUnit implements Provisioner. Swarm services are immutable from
// this adapter's point of view, so a replacement is a remove plus a create
// keeping the role.
func (p *SwarmProvisioner) ReplaceUnit(
	ctx context.Context,
	target deployments.Target,
	unitID, version string,
) (Unit, error) {
	services, err := p.targetServices(ctx, target)
	if err != nil {
		return Unit{}, err
	}

	old, found := lo.Find(services, func(svc swarm.Service) bool { return svc.ID == unitID })
	if !found {
		return Unit{}, fmt.Errorf("%w: %s", ErrUnitNotFound, unitID)
	}

	role := Role(old.Spec.Labels[labelRole])

	p.logger.Info("replacing unit",
		zap.String("target", target.String()),
		zap.String("unit_id", unitID),
		zap.String("version", version),
	)

	if err := p.TerminateUnit(ctx, target, unitID); err != nil {
		return Unit{}, err
	}

	return p.ProvisionUnit(ctx, target, role, version)
}

// TerminateUnit implements Provisioner.
func (p *SwarmProvisioner) TerminateUnit(ctx context.Context, target deployments.Target, unitID string) error {
	p.logger.Info("terminating unit",
		zap.String("target", target.String()),
		zap.String("unit_id", unitID),
	)

	if _, err := p.client.ServiceRemove(ctx, unitID, client.ServiceRemoveOptions{}); err != nil {
		return fmt.Errorf("failed to terminate unit: %w", err)
	}

	return nil
}

// SetTrafficWeight implements Provisioner. The canary traffic share is
// approximated by unit count: percent of the combined set runs as canary
// units, and weight 0 removes the canary set entirely.
func (p *SwarmProvisioner) SetTrafficWeight(ctx context.Context, target deployments.Target, percent int) error {
	services, err := p.targetServices(ctx, target)
	if err != nil {
		return err
	}

	active := filterByRole(services, RoleActive)
	canary := filterByRole(services, RoleCanary)

	wanted := 0
	if percent > 0 {
		total := len(active) + len(canary)
		if total == 0 {
			total = 1
		}
		wanted = (total*percent + 99) / 100
		if wanted < 1 {
			wanted = 1
		}
	}

	p.logger.Info("adjusting canary traffic weight",
		zap.String("target", target.String()),
		zap.Int("percent", percent),
		zap.Int("canary_units", wanted),
	)

	for len(canary) > wanted {
		svc := canary[len(canary)-1]
		if err := p.TerminateUnit(ctx, target, svc.ID); err != nil {
			return err
		}
		canary = canary[:len(canary)-1]
	}

	version := ""
	if len(canary) > 0 {
		version = canary[0].Spec.Labels[labelVersion]
	}
	for len(canary) < wanted {
		unit, err := p.ProvisionUnit(ctx, target, RoleCanary, version)
		if err != nil {
			return err
		}
		canary = append(canary, swarm.Service{ID: unit.ID})
	}

	return nil
}

// PromoteStandby implements Provisioner.
func (p *SwarmProvisioner) PromoteStandby(ctx context.Context, target deployments.Target) error {
	services, err := p.targetServices(ctx, target)
	if err != nil {
		return err
	}

	standby := filterByRole(services, RoleStandby)
	if len(standby) == 0 {
		return fmt.Errorf("%w: no standby units to promote", ErrUnitNotFound)
	}
	active := filterByRole(services, RoleActive)

	p.logger.Info("promoting standby units",
		zap.String("target", target.String()),
		zap.Int("standby", len(standby)),
		zap.Int("active", len(active)),
	)

	for _, svc := range standby {
		version := svc.Spec.Labels[labelVersion]
		if err := p.TerminateUnit(ctx, target, svc.ID); err != nil {
			return err
		}
		if _, err := p.ProvisionUnit(ctx, target, RoleActive, version); err != nil {
			return err
		}
	}

	for _, svc := range active {
		if err := p.TerminateUnit(ctx, target, svc.ID); err != nil {
			return err
		}
	}

	return nil
}

func (p *SwarmProvisioner) targetServices(
	ctx context.Context,
	target deployments.Target,
) ([]swarm.Service, error) {
	result, err := p.client.ServiceList(ctx, client.ServiceListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	return lo.Filter(result.Items, func(svc swarm.Service, _ int) bool {
		return svc.Spec.Labels[labelSpec] == target.SpecID &&
			svc.Spec.Labels[labelEnvironment] == string(target.Environment)
	}), nil
}

func (p *SwarmProvisioner) unitSpec(
	target deployments.Target,
	name string,
	role Role,
	version string,
) swarm.ServiceSpec {
	image := version
	if p.config.ImageTemplate != "" {
		image = fmt.Sprintf(p.config.ImageTemplate, version)
	}

	return swarm.ServiceSpec{
		Annotations: swarm.Annotations{
			Name: name,
			Labels: map[string]string{
				labelSpec:        target.SpecID,
				labelEnvironment: string(target.Environment),
				labelRole:        string(role),
				labelVersion:     version,
			},
		},
		TaskTemplate: swarm.TaskSpec{
			ContainerSpec: &swarm.ContainerSpec{
				Image: image,
			},
		},
	}
}

func newUnit(svc swarm.Service) Unit {
	return Unit{
		ID:      svc.ID,
		Name:    svc.Spec.Name,
		Role:    Role(svc.Spec.Labels[labelRole]),
		Version: svc.Spec.Labels[labelVersion],
	}
}

func filterByRole(services []swarm.Service, role Role) []swarm.Service {
	return lo.Filter(services, func(svc swarm.Service, _ int) bool {
		return svc.Spec.Labels[labelRole] == string(role)
	})
}

func unitName(target deployments.Target, role Role) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s-%s-%s-%s", target.SpecID, target.Environment, role, suffix)
}
