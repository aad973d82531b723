package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campus360/incidencias-service/internal/api/dto"
	"github.com/campus360/incidencias-service/internal/service"
)

// CatalogHandler serves the read-only state/priority/category catalogs.
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: catalogService}
}

// ListStates GET /catalog/states.
func (h *CatalogHandler) ListStates(c *fiber.Ctx) error {
	states, err := h.service.ListStates(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.StateResponse, 0, len(states))
	for _, state := range states {
		items = append(items, dto.StateResponse{
			Code:        state.Code,
			Name:        state.Name,
			Description: state.Description,
			Order:       state.Order,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListPriorities GET /catalog/priorities.
func (h *CatalogHandler) ListPriorities(c *fiber.Ctx) error {
	priorities, err := h.service.ListPriorities(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.PriorityResponse, 0, len(priorities))
	for _, priority := range priorities {
		items = append(items, dto.PriorityResponse{
			Code:        priority.Code,
			Name:        priority.Name,
			Description: priority.Description,
			Level:       priority.Level,
			Color:       priority.Color,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListCategories GET /catalog/categories.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.service.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for _, category := range categories {
		items = append(items, dto.CategoryResponse{
			Code:        category.Code,
			Name:        category.Name,
			Description: category.Description,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
