package controller

import (
	"offline-llm-be/internal/pkg/serverutils"
	"offline-llm-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IModelController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Ping(ctx *fiber.Ctx) error
}

type modelController struct {
	modelService service.IModelService
}

func NewModelController(modelService service.IModelService) IModelController {
	return &modelController{
		modelService: modelService,
	}
}

func (c *modelController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/models/v1")
	h.Get("", c.List)
	h.Get("ping", c.Ping)
}

func (c *modelController) List(ctx *fiber.Ctx) error {
	res, err := c.modelService.ListModels(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list models", res))
}

func (c *modelController) Ping(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("pong", c.modelService.Ping(ctx.Context())))
}
