package deployments

import (
	"errors"
	"fmt"

	"github.com/go-core-fx/fiberfx/handler"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/rolloutd/rolloutd/internal/deployments"
	"github.com/rolloutd/rolloutd/internal/server/validation"
)

type Handler struct {
	deploymentsSvc *deployments.Service

	validator *validator.Validate
	logger    *zap.Logger
}

func NewHandler(
	deploymentsSvc *deployments.Service,
	validator *validator.Validate,
	logger *zap.Logger,
) handler.Handler {
	return &Handler{
		deploymentsSvc: deploymentsSvc,

		validator: validator,
		logger:    logger,
	}
}

// Register implements handler.Handler.
func (h *Handler) Register(r fiber.Router) {
	r = r.Group("/deployments")

	r.Use(h.errorsHandler)
	r.Post("/", validation.DecorateWithBodyEx(h.validator, h.post))
	r.Get("/", h.list)
	r.Get("/:id", h.get)
	r.Get("/:id/status", h.status)
	r.Post("/:id/rollback", validation.DecorateWithBodyEx(h.validator, h.rollback))
	r.Post("/:id/cancel", h.cancel)
}

//	@Summary		Create a new deployment
//	@Description	Start rolling out a mutation to an environment with the chosen strategy
//	@Tags			deployments
//	@Accept			json
//	@Produce		json
//	@Param			deployment	body		CreateRequest	true	"Deployment creation request"
//	@Success		201			{object}	DeploymentResponse
//	@Failure		400			{object}	fiberfx.ErrorResponse
//	@Failure		409			{object}	fiberfx.ErrorResponse
//	@Router			/deployments [post]
//
// Create a new deployment.
func (h *Handler) post(c *fiber.Ctx, req *CreateRequest) error {
	deployment, err := h.deploymentsSvc.Create(c.Context(), deployments.CreateRequest{
		MutationID:  req.MutationID,
		SpecID:      req.SpecID,
		Environment: deployments.Environment(req.Environment),
		Strategy:    deployments.Strategy(req.Strategy),
		Config:      req.Config,
		Confirmed:   req.Confirmed,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		return fmt.Errorf("failed to create deployment: %w", err)
	}

	return c.Status(fiber.StatusCreated).JSON(toResponse(deployment))
}

//	@Summary		List deployments
//	@Description	Retrieve a filtered, paginated list of deployments, newest first
//	@Tags			deployments
//	@Accept			json
//	@Produce		json
//	@Param			environment	query	string	false	"Environment filter"
//	@Param			status		query	string	false	"Status filter"
//	@Param			mutation_id	query	string	false	"Mutation filter"
//	@Param			page		query	int		false	"Page number, starting at 1"
//	@Param			page_size	query	int		false	"Page size"
//	@Success		200	{object}	ListResponse
//	@Router			/deployments [get]
//
// List deployments.
func (h *Handler) list(c *fiber.Ctx) error {
	filter := deployments.Filter{
		Environment: deployments.Environment(c.Query("environment")),
		Status:      deployments.Status(c.Query("status")),
		MutationID:  c.Query("mutation_id"),
	}
	page := deployments.Page{
		Number: c.QueryInt("page"),
		Size:   c.QueryInt("page_size"),
	}

	list, err := h.deploymentsSvc.List(c.Context(), filter, page)
	if err != nil {
		return fmt.Errorf("failed to list deployments: %w", err)
	}

	return c.JSON(ListResponse{
		Items: lo.Map(list.Items, func(d deployments.Deployment, _ int) DeploymentResponse {
			return toResponse(&d)
		}),
		Page:     list.Page,
		PageSize: list.PageSize,
		Total:    list.Total,
	})
}

//	@Summary		Get a specific deployment
//	@Description	Retrieve details of a specific deployment by ID
//	@Tags			deployments
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string	true	"Deployment ID"
//	@Success		200	{object}	DeploymentResponse
//	@Failure		400	{object}	fiberfx.ErrorResponse
//	@Failure		404	{object}	fiberfx.ErrorResponse
//	@Router			/deployments/{id} [get]
//
// Get a specific deployment.
func (h *Handler) get(c *fiber.Ctx) error {
	id, err := getDeploymentID(c)
	if err != nil {
		return err
	}

	deployment, err := h.deploymentsSvc.Get(c.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get deployment: %w", err)
	}

	return c.JSON(toResponse(deployment))
}

//	@Summary		Get deployment status
//	@Description	Retrieve the current progress projection of a deployment; poll until a terminal status is observed
//	@Tags			deployments
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string	true	"Deployment ID"
//	@Success		200	{object}	StatusResponse
//	@Failure		400	{object}	fiberfx.ErrorResponse
//	@Failure		404	{object}	fiberfx.ErrorResponse
//	@Router			/deployments/{id}/status [get]
//
// Get the status projection of a deployment.
func (h *Handler) status(c *fiber.Ctx) error {
	id, err := getDeploymentID(c)
	if err != nil {
		return err
	}

	_, info, err := h.deploymentsSvc.GetStatus(c.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get deployment status: %w", err)
	}

	return c.JSON(StatusResponse{
		DeploymentID:              info.DeploymentID,
		Status:                    string(info.Status),
		ProgressPercentage:        info.ProgressPercentage,
		CurrentStep:               info.CurrentStep,
		EstimatedRemainingSeconds: info.EstimatedRemainingSeconds,
		ErrorMessage:              info.ErrorMessage,
		UpdatedAt:                 info.UpdatedAt,
	})
}

//	@Summary		Roll back a deployment
//	@Description	Create a new deployment reverting a terminal one; the original record is never modified
//	@Tags			deployments
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string			true	"Deployment ID to roll back"
//	@Param			rollback	body		RollbackRequest	true	"Rollback request"
//	@Success		201			{object}	DeploymentResponse
//	@Failure		400			{object}	fiberfx.ErrorResponse
//	@Failure		404			{object}	fiberfx.ErrorResponse
//	@Failure		409			{object}	fiberfx.ErrorResponse
//	@Failure		422			{object}	fiberfx.ErrorResponse
//	@Router			/deployments/{id}/rollback [post]
//
// Roll back a deployment.
func (h *Handler) rollback(c *fiber.Ctx, req *RollbackRequest) error {
	id, err := getDeploymentID(c)
	if err != nil {
		return err
	}

	deployment, err := h.deploymentsSvc.Rollback(c.Context(), deployments.RollbackRequest{
		DeploymentID: id,
		Reason:       req.Reason,
		Confirmed:    req.Confirmed,
		CreatedBy:    req.CreatedBy,
	})
	if err != nil {
		return fmt.Errorf("failed to roll back deployment: %w", err)
	}

	return c.Status(fiber.StatusCreated).JSON(toResponse(deployment))
}

//	@Summary		Cancel a deployment
//	@Description	Request cooperative cancellation; the executor honors it at the next phase boundary
//	@Tags			deployments
//	@Accept			json
//	@Produce		json
//	@Param			id	path	string	true	"Deployment ID"
//	@Success		202
//	@Failure		400	{object}	fiberfx.ErrorResponse
//	@Failure		404	{object}	fiberfx.ErrorResponse
//	@Failure		422	{object}	fiberfx.ErrorResponse
//	@Router			/deployments/{id}/cancel [post]
//
// Cancel a deployment.
func (h *Handler) cancel(c *fiber.Ctx) error {
	id, err := getDeploymentID(c)
	if err != nil {
		return err
	}

	if err := h.deploymentsSvc.Cancel(c.Context(), id); err != nil {
		return fmt.Errorf("failed to cancel deployment: %w", err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *Handler) errorsHandler(c *fiber.Ctx) error {
	err := c.Next()
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, deployments.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, deployments.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, deployments.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, deployments.ErrInvalidState):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	return err //nolint:wrapcheck //already wrapped
}

func toResponse(deployment *deployments.Deployment) DeploymentResponse {
	return DeploymentResponse{
		ID:          deployment.ID,
		MutationID:  deployment.MutationID,
		SpecID:      deployment.SpecID,
		Environment: string(deployment.Environment),
		Strategy:    string(deployment.Strategy),
		Status:      string(deployment.Status),
		Config:      deployment.Config,

		CreatedBy:   deployment.CreatedBy,
		CreatedAt:   deployment.CreatedAt,
		StartedAt:   deployment.StartedAt,
		CompletedAt: deployment.CompletedAt,
		UpdatedAt:   deployment.UpdatedAt,

		Error: deployment.Error,

		RollbackOf:     deployment.RollbackOf,
		RollbackReason: deployment.RollbackReason,
		RolledBackBy:   deployment.RolledBackBy,
	}
}
