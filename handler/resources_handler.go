package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"lms-gateway/admin"
)

// ResourcesHandler serves the admin UI's resource groups in display order.
type ResourcesHandler struct {
	groups   []admin.ResourceGroup
	priority []string
}

// NewResourcesHandler creates a resources handler over the registered groups.
func NewResourcesHandler(groups []admin.ResourceGroup, priority []string) *ResourcesHandler {
	return &ResourcesHandler{
		groups:   groups,
		priority: priority,
	}
}

// Handle processes GET /admin/resources.
func (h *ResourcesHandler) Handle(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"groups": admin.Order(h.groups, h.priority),
	})
}
