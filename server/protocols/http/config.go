package http

import (
	"github.com/gofiber/fiber/v2"
)

// handleConfig serves the catalog defaults clients merge into their own
// configuration before issuing further requests.
func (s *Server) handleConfig(c *fiber.Ctx) error {
	return c.JSON(ConfigResponse{
		Defaults: map[string]string{
			"warehouse":            s.config.GetWarehousePath(),
			"catalog-impl":         "sql",
			"write.format.default": "parquet",
		},
		Overrides: map[string]string{},
	})
}

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":    "icecat",
		"message": "Iceberg REST catalog",
		"docs":    "/v1/config",
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}
