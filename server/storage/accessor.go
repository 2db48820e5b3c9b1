package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/gear6io/icecat/pkg/errors"
	"github.com/rs/zerolog"
)

// ComponentType defines the storage accessor component type identifier
const ComponentType = "storage"

// Accessor provides sandboxed JSON file access under a warehouse root.
// Absolute paths and URIs are used as-is; relative paths resolve against the
// root and must stay inside it.
type Accessor struct {
	warehouseRoot string
	logger        zerolog.Logger
}

// NewAccessor creates a storage accessor scoped to the given warehouse root
func NewAccessor(warehouseRoot string, logger zerolog.Logger) *Accessor {
	return &Accessor{
		warehouseRoot: warehouseRoot,
		logger:        logger.With().Str("component", "storage").Logger(),
	}
}

// WarehouseRoot returns the root directory the accessor is scoped to
func (a *Accessor) WarehouseRoot() string {
	return a.warehouseRoot
}

// Resolve maps a catalog path to a filesystem path, rejecting traversal out
// of the warehouse root for relative inputs.
func (a *Accessor) Resolve(path string) (string, error) {
	if strings.Contains(path, "://") || filepath.IsAbs(path) {
		return strings.TrimPrefix(path, "file://"), nil
	}

	root, err := filepath.Abs(a.warehouseRoot)
	if err != nil {
		return "", errors.New(errors.CommonInternal, "failed to resolve warehouse root", err)
	}

	full := filepath.Clean(filepath.Join(root, path))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", errors.Newf(errors.Validation, "path traversal attempt detected for relative path: %s", path)
	}
	return full, nil
}

// ReadJSON reads and unmarshals a JSON file into v
func (a *Accessor) ReadJSON(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return errors.New(errors.CommonTimeout, "read cancelled", err)
	}

	resolved, err := a.Resolve(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Newf(errors.CommonNotFound, "file with identifier '%s' not found", resolved)
		}
		return errors.New(errors.CommonInternal, "failed to read JSON file", err).AddContext("path", resolved)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return errors.Newf(errors.Validation, "could not parse JSON from %s: %v", resolved, err)
	}
	return nil
}

// WriteJSON marshals v with two-space indentation and writes it atomically
// (temp file in the target directory, then rename).
func (a *Accessor) WriteJSON(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return errors.New(errors.CommonTimeout, "write cancelled", err)
	}

	resolved, err := a.Resolve(path)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.New(errors.CommonInternal, "failed to marshal JSON", err).AddContext("path", resolved)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.New(errors.CommonInternal, "failed to create parent directory", err).AddContext("path", dir)
	}

	tmp, err := os.CreateTemp(dir, ".icecat-*.tmp")
	if err != nil {
		return errors.New(errors.CommonInternal, "failed to create temp file", err).AddContext("path", dir)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.New(errors.CommonInternal, "failed to write temp file", err).AddContext("path", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.New(errors.CommonInternal, "failed to close temp file", err).AddContext("path", tmpName)
	}

	if err := os.Rename(tmpName, resolved); err != nil {
		os.Remove(tmpName)
		return errors.New(errors.CommonInternal, "failed to rename temp file", err).AddContext("path", resolved)
	}

	a.logger.Debug().Str("path", resolved).Int("bytes", len(data)).Msg("Wrote JSON file")
	return nil
}

// Exists reports whether the file exists
func (a *Accessor) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.New(errors.CommonTimeout, "stat cancelled", err)
	}

	resolved, err := a.Resolve(path)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(resolved); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.New(errors.CommonInternal, "failed to check file existence", err).AddContext("path", resolved)
	}
	return true, nil
}

// Delete removes the file; a missing file is not an error
func (a *Accessor) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return errors.New(errors.CommonTimeout, "delete cancelled", err)
	}

	resolved, err := a.Resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(resolved); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.New(errors.CommonInternal, "failed to delete file", err).AddContext("path", resolved)
	}
	return nil
}

// GetType returns the component type identifier
func (a *Accessor) GetType() string {
	return ComponentType
}
