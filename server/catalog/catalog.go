package catalog

import (
	"context"
	"strings"
)

// TableIdent names a table by its namespace levels and name
type TableIdent struct {
	Namespace []string `json:"namespace"`
	Name      string   `json:"name"`
}

// String returns the dotted form, e.g. "db.schema.events"
func (t TableIdent) String() string {
	return strings.Join(append(append([]string{}, t.Namespace...), t.Name), ".")
}

// Namespace is a catalog namespace row
type Namespace struct {
	Levels     []string
	Properties map[string]string
}

// TableEntry is a catalog table row. MetadataLocation is the authoritative
// pointer to the table's current metadata file.
type TableEntry struct {
	Namespace        []string
	Name             string
	MetadataLocation string
	Properties       map[string]string
}

// PropertiesUpdateSummary partitions the keys touched by a namespace
// properties update: Removed holds removals that existed, Missing the ones
// that did not.
type PropertiesUpdateSummary struct {
	Updated []string
	Removed []string
	Missing []string
}

// Store persists namespaces and table pointers. Implementations must be safe
// for concurrent use; every mutating operation runs in one transaction.
type Store interface {
	// Namespaces
	CreateNamespace(ctx context.Context, levels []string, properties map[string]string) error
	GetNamespace(ctx context.Context, levels []string) (*Namespace, error)
	NamespaceExists(ctx context.Context, levels []string) (bool, error)
	ListNamespaces(ctx context.Context, parent []string) ([][]string, error)
	UpdateNamespaceProperties(ctx context.Context, levels []string, updates map[string]string, removals []string) (*PropertiesUpdateSummary, error)
	DropNamespace(ctx context.Context, levels []string) error

	// Tables
	CreateTable(ctx context.Context, namespace []string, name, metadataLocation string, properties map[string]string) error
	GetTable(ctx context.Context, namespace []string, name string) (*TableEntry, error)
	TableExists(ctx context.Context, namespace []string, name string) (bool, error)
	ListTables(ctx context.Context, namespace []string) ([]TableIdent, error)
	RenameTable(ctx context.Context, src, dst TableIdent) error
	DropTable(ctx context.Context, namespace []string, name string) error

	// CASMetadataLocation is the optimistic-lock primitive: the pointer moves
	// to newLocation only if it still equals expected.
	CASMetadataLocation(ctx context.Context, namespace []string, name, expected, newLocation string) error

	Close() error
}
