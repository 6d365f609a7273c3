package controller

import (
	"ai-storystudio-be/internal/dto"
	"ai-storystudio-be/internal/pkg/serverutils"
	"ai-storystudio-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IStoryController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Abort(ctx *fiber.Ctx) error
	Feedback(ctx *fiber.Ctx) error
}

type storyController struct {
	storyService service.IStoryService
}

func NewStoryController(storyService service.IStoryService) IStoryController {
	return &storyController{
		storyService: storyService,
	}
}

func (c *storyController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/story/v1")
	h.Post("session", c.Create)
	h.Get("session/:id", c.Show)
	h.Post("session/:id/abort", c.Abort)
	h.Post("session/:id/feedback", c.Feedback)
}

func (c *storyController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateStorySessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.storyService.CreateSession(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Success create story session", res))
}

func (c *storyController) Show(ctx *fiber.Ctx) error {
	id := ctx.Params("id")

	res, err := c.storyService.GetSession(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show story session", res))
}

func (c *storyController) Abort(ctx *fiber.Ctx) error {
	id := ctx.Params("id")

	if err := c.storyService.AbortSession(ctx.Context(), id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Abort requested", fiber.Map{"session_id": id}))
}

func (c *storyController) Feedback(ctx *fiber.Ctx) error {
	id := ctx.Params("id")

	var req dto.StoryFeedbackRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.storyService.SubmitFeedback(ctx.Context(), id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success apply feedback", res))
}
