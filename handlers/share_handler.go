package handlers

import (
	"go_datachat_backend/services"

	"github.com/gofiber/fiber/v2"
)

type ShareHandler struct {
	shareService *services.ShareService
}

func NewShareHandler(shareService *services.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

// CreateShare freezes the conversation into a snapshot and returns the object
// key plus a presigned download URL.
func (h *ShareHandler) CreateShare(c *fiber.Ctx) error {
	convoID := c.Params("convo_id")
	key, url, err := h.shareService.CreatePublicLink(c.Context(), convoID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"key": key,
		"url": url,
	})
}

func (h *ShareHandler) GetShare(c *fiber.Ctx) error {
	key := c.Params("*")
	if key == "" {
		return fiber.NewError(fiber.StatusBadRequest, "share key required")
	}
	snapshot, err := h.shareService.ReadPublicLink(c.Context(), key)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "share not found")
	}
	return c.JSON(snapshot)
}
