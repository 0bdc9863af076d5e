package controller

import (
	"offline-llm-be/internal/dto"
	"offline-llm-be/internal/pkg/serverutils"
	"offline-llm-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IQAController interface {
	RegisterRoutes(r fiber.Router)
	DocQA(ctx *fiber.Ctx) error
	SessionQA(ctx *fiber.Ctx) error
}

type qaController struct {
	qaService service.IQAService
}

func NewQAController(qaService service.IQAService) IQAController {
	return &qaController{
		qaService: qaService,
	}
}

func (c *qaController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/qa/v1")
	h.Post("doc", c.DocQA)
	h.Post("session", c.SessionQA)
}

func (c *qaController) DocQA(ctx *fiber.Ctx) error {
	var req dto.DocQARequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.qaService.DocQA(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success answer question", res))
}

func (c *qaController) SessionQA(ctx *fiber.Ctx) error {
	var req struct {
		dto.SessionQARequest
		Persistent *bool `json:"persistent"`
	}
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req.SessionQARequest); err != nil {
		return err
	}

	// Persistent KB participates unless explicitly opted out.
	persistent := req.Persistent == nil || *req.Persistent

	res, err := c.qaService.SessionQA(ctx.Context(), &req.SessionQARequest, persistent)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success answer question", res))
}
