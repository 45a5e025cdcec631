package handlers

import (
	"go_datachat_backend/services"

	"github.com/gofiber/fiber/v2"
)

type ConversationHandler struct {
	chatService *services.ChatService
}

func NewConversationHandler(chatService *services.ChatService) *ConversationHandler {
	return &ConversationHandler{chatService: chatService}
}

func (h *ConversationHandler) Create(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	convo, err := h.chatService.CreateConversation(c.Context(), req.Name)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to create conversation")
	}
	return c.Status(fiber.StatusCreated).JSON(convo)
}

func (h *ConversationHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"conversations": h.chatService.Registry().List(),
	})
}

func (h *ConversationHandler) Get(c *fiber.Ctx) error {
	convoID := c.Params("convo_id")
	convo, ok := h.chatService.Registry().ByID(convoID)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "conversation not found")
	}
	return c.JSON(convo)
}

// BindDatabase points the conversation at a summarized database.
func (h *ConversationHandler) BindDatabase(c *fiber.Ctx) error {
	convoID := c.Params("convo_id")

	var req struct {
		DBSummaryID int64  `json:"db_summary_id"`
		JobID       string `json:"job_id"`
		DBName      string `json:"db_name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := h.chatService.BindDatabase(c.Context(), convoID, req.DBSummaryID, req.JobID, req.DBName); err != nil {
		return fiber.NewError(fiber.StatusNotFound, "conversation not found")
	}
	return c.JSON(fiber.Map{"convo_id": convoID, "db_name": req.DBName})
}

// Delete refuses to remove the last remaining conversation.
func (h *ConversationHandler) Delete(c *fiber.Ctx) error {
	convoID := c.Params("convo_id")
	if err := h.chatService.DeleteConversation(c.Context(), convoID); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{"status": "deleted", "convo_id": convoID})
}

func (h *ConversationHandler) Rename(c *fiber.Ctx) error {
	convoID := c.Params("convo_id")

	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name required")
	}
	if _, ok := h.chatService.Registry().ByID(convoID); !ok {
		return fiber.NewError(fiber.StatusNotFound, "conversation not found")
	}
	if err := h.chatService.RenameConversation(c.Context(), convoID, req.Name); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to rename conversation")
	}
	return c.JSON(fiber.Map{"convo_id": convoID, "name": req.Name})
}
