package handlers

import (
	"go_datachat_backend/services"

	"github.com/gofiber/fiber/v2"
)

type ChatHandler struct {
	chatService  *services.ChatService
	orchestrator *services.TaskOrchestrator
}

func NewChatHandler(chatService *services.ChatService, orchestrator *services.TaskOrchestrator) *ChatHandler {
	return &ChatHandler{
		chatService:  chatService,
		orchestrator: orchestrator,
	}
}

// SubmitPrompt accepts one user question and kicks the answer flow off in the
// background. A resubmission on the same conversation cancels the run still in
// flight.
func (h *ChatHandler) SubmitPrompt(c *fiber.Ctx) error {
	convoID := c.Params("convo_id")

	var req struct {
		Question string `json:"question"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.Question == "" {
		return fiber.NewError(fiber.StatusBadRequest, "question required")
	}
	registry := h.chatService.Registry()
	if _, ok := registry.ByID(convoID); !ok {
		return fiber.NewError(fiber.StatusNotFound, "conversation not found")
	}

	ctx, stop := registry.BeginRun(convoID)
	go func() {
		defer stop()
		h.orchestrator.SubmitPrompt(ctx, convoID, req.Question)
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":   "accepted",
		"convo_id": convoID,
	})
}

// UnderstandDatabase starts the database summary flow. Message defaults to a
// canned prompt; refresh forces a new summary job.
func (h *ChatHandler) UnderstandDatabase(c *fiber.Ctx) error {
	convoID := c.Params("convo_id")

	var req struct {
		Message string `json:"message"`
		Refresh bool   `json:"refresh"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	registry := h.chatService.Registry()
	if _, ok := registry.ByID(convoID); !ok {
		return fiber.NewError(fiber.StatusNotFound, "conversation not found")
	}

	ctx, stop := registry.BeginRun(convoID)
	go func() {
		defer stop()
		h.orchestrator.UnderstandDatabase(ctx, convoID, req.Message, req.Refresh)
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":   "accepted",
		"convo_id": convoID,
	})
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	convoID := c.Params("convo_id")
	messages, err := h.chatService.Messages(c.Context(), convoID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return c.JSON(fiber.Map{"messages": messages})
}

func (h *ChatHandler) GetFlow(c *fiber.Ctx) error {
	convoID := c.Params("convo_id")
	flow, err := h.chatService.Flow(c.Context(), convoID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return c.JSON(fiber.Map{"flow": flow})
}

func (h *ChatHandler) SetBookmark(c *fiber.Ctx) error {
	messageID := c.Params("message_id")

	var req struct {
		Bookmarked bool `json:"bookmarked"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := h.chatService.SetBookmark(c.Context(), messageID, req.Bookmarked); err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return c.JSON(fiber.Map{
		"message_id": messageID,
		"bookmarked": req.Bookmarked,
	})
}
