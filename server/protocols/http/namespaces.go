package http

import (
	"strings"

	"github.com/gear6io/icecat/pkg/errors"
	"github.com/gofiber/fiber/v2"
)

// namespaceFromPath parses the dot-separated namespace path segment
func namespaceFromPath(c *fiber.Ctx) ([]string, error) {
	raw := c.Params("namespace")
	if raw == "" {
		return nil, errors.Newf(errors.Validation, "namespace: namespace is required")
	}
	return strings.Split(raw, "."), nil
}

func (s *Server) handleListNamespaces(c *fiber.Ctx) error {
	var parent []string
	if p := c.Query("parent"); p != "" {
		parent = strings.Split(p, ".")
	}

	namespaces, err := s.store.ListNamespaces(c.UserContext(), parent)
	if err != nil {
		return err
	}
	return c.JSON(ListNamespacesResponse{Namespaces: namespaces})
}

func (s *Server) handleCreateNamespace(c *fiber.Ctx) error {
	var req CreateNamespaceRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if len(req.Namespace) == 0 {
		return errors.Newf(errors.Validation, "namespace: namespace must have at least one level")
	}

	if err := s.store.CreateNamespace(c.UserContext(), req.Namespace, req.Properties); err != nil {
		return err
	}

	props := req.Properties
	if props == nil {
		props = map[string]string{}
	}
	return c.JSON(NamespaceResponse{Namespace: req.Namespace, Properties: props})
}

func (s *Server) handleGetNamespace(c *fiber.Ctx) error {
	levels, err := namespaceFromPath(c)
	if err != nil {
		return err
	}

	ns, err := s.store.GetNamespace(c.UserContext(), levels)
	if err != nil {
		return err
	}
	return c.JSON(NamespaceResponse{Namespace: ns.Levels, Properties: ns.Properties})
}

func (s *Server) handleNamespaceExists(c *fiber.Ctx) error {
	levels, err := namespaceFromPath(c)
	if err != nil {
		return err
	}

	exists, err := s.store.NamespaceExists(c.UserContext(), levels)
	if err != nil {
		return err
	}
	if !exists {
		return c.SendStatus(fiber.StatusNotFound)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (s *Server) handleUpdateNamespaceProperties(c *fiber.Ctx) error {
	levels, err := namespaceFromPath(c)
	if err != nil {
		return err
	}

	var req UpdateNamespacePropertiesRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	summary, err := s.store.UpdateNamespaceProperties(c.UserContext(), levels, req.Updates, req.Removals)
	if err != nil {
		return err
	}
	return c.JSON(UpdateNamespacePropertiesResponse{
		Updated: summary.Updated,
		Removed: summary.Removed,
		Missing: summary.Missing,
	})
}

func (s *Server) handleDropNamespace(c *fiber.Ctx) error {
	levels, err := namespaceFromPath(c)
	if err != nil {
		return err
	}

	if err := s.store.DropNamespace(c.UserContext(), levels); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
