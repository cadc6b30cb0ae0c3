package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/mashora/mashora-backend/internal/services"
	"github.com/mashora/mashora-backend/internal/storage"
)

// DistributionHandler triggers request distribution to legal-arm lawyers
type DistributionHandler struct {
	assignmentService *services.AssignmentService
}

// NewDistributionHandler creates a new distribution handler
func NewDistributionHandler(assignmentService *services.AssignmentService) *DistributionHandler {
	return &DistributionHandler{assignmentService: assignmentService}
}

// DistributeRequest handles POST /api/requests/:id/distribute
func (h *DistributionHandler) DistributeRequest(c *fiber.Ctx) error {
	requestID := c.Params("id")
	if requestID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Request ID is required",
		})
	}

	var req struct {
		CategoryCode string `json:"category_code"`
	}
	// Body is optional; the request's own category is the fallback
	_ = c.BodyParser(&req)

	result, err := h.assignmentService.DistributeRequest(requestID, req.CategoryCode)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Request not found",
			})
		case errors.Is(err, storage.ErrAlreadyAssigned):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Request is already assigned",
			})
		default:
			log.Printf("Distribution failed for request %s: %v", requestID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to distribute request",
			})
		}
	}

	return c.JSON(result)
}
