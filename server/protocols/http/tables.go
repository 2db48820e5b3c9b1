package http

import (
	"github.com/gear6io/icecat/pkg/errors"
	"github.com/gear6io/icecat/server/tables"
	"github.com/gofiber/fiber/v2"
)

func tableNameFromPath(c *fiber.Ctx) (string, error) {
	name := c.Params("table")
	if name == "" {
		return "", errors.Newf(errors.Validation, "table: table name is required")
	}
	return name, nil
}

func (s *Server) handleListTables(c *fiber.Ctx) error {
	levels, err := namespaceFromPath(c)
	if err != nil {
		return err
	}

	idents, err := s.store.ListTables(c.UserContext(), levels)
	if err != nil {
		return err
	}
	return c.JSON(ListTablesResponse{Identifiers: idents})
}

func (s *Server) handleCreateTable(c *fiber.Ctx) error {
	levels, err := namespaceFromPath(c)
	if err != nil {
		return err
	}

	var req tables.CreateTableRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := s.tables.Create(c.UserContext(), levels, &req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *Server) handleRegisterTable(c *fiber.Ctx) error {
	levels, err := namespaceFromPath(c)
	if err != nil {
		return err
	}

	var req tables.RegisterTableRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := s.tables.Register(c.UserContext(), levels, &req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *Server) handleLoadTable(c *fiber.Ctx) error {
	levels, err := namespaceFromPath(c)
	if err != nil {
		return err
	}
	name, err := tableNameFromPath(c)
	if err != nil {
		return err
	}

	result, err := s.tables.Load(c.UserContext(), levels, name, c.Query("snapshot-ref"))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *Server) handleTableExists(c *fiber.Ctx) error {
	levels, err := namespaceFromPath(c)
	if err != nil {
		return err
	}
	name, err := tableNameFromPath(c)
	if err != nil {
		return err
	}

	exists, err := s.store.TableExists(c.UserContext(), levels, name)
	if err != nil {
		return err
	}
	if !exists {
		return c.SendStatus(fiber.StatusNotFound)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (s *Server) handleCommitTable(c *fiber.Ctx) error {
	levels, err := namespaceFromPath(c)
	if err != nil {
		return err
	}
	name, err := tableNameFromPath(c)
	if err != nil {
		return err
	}

	var req tables.CommitTableRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := s.tables.Commit(c.UserContext(), levels, name, &req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *Server) handleDropTable(c *fiber.Ctx) error {
	levels, err := namespaceFromPath(c)
	if err != nil {
		return err
	}
	name, err := tableNameFromPath(c)
	if err != nil {
		return err
	}

	purge := c.Query("purge") == "true"
	if err := s.tables.Drop(c.UserContext(), levels, name, purge); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleRenameTable(c *fiber.Ctx) error {
	var req tables.RenameTableRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := s.tables.Rename(c.UserContext(), &req); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
