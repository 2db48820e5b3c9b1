package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"

	"github.com/gear6io/icecat/pkg/errors"
	"github.com/gear6io/icecat/server/catalog"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// ComponentType defines the sqlite catalog store component type identifier
const ComponentType = "catalog_sqlite"

const levelSeparator = "."

type namespaceModel struct {
	bun.BaseModel `bun:"table:namespaces"`

	ID         int64  `bun:"id,pk,autoincrement"`
	Levels     string `bun:"levels,notnull,unique"`
	Properties string `bun:"properties,notnull,default:'{}'"`
}

type tableModel struct {
	bun.BaseModel `bun:"table:tables"`

	ID               int64  `bun:"id,pk,autoincrement"`
	NamespaceID      int64  `bun:"namespace_id,notnull,unique:ns_name"`
	Name             string `bun:"name,notnull,unique:ns_name"`
	MetadataLocation string `bun:"metadata_location,notnull,unique"`
	Properties       string `bun:"properties,notnull,default:'{}'"`
}

// Store is the bun/sqlite implementation of catalog.Store
type Store struct {
	db     *bun.DB
	logger zerolog.Logger
}

var _ catalog.Store = (*Store)(nil)

// NewStore opens the sqlite database at dsn and ensures the schema exists
func NewStore(dsn string, logger zerolog.Logger) (*Store, error) {
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.New(ErrDatabaseOpenFailed, "failed to open sqlite database", err)
	}

	s := &Store{
		db:     bun.NewDB(sqldb, sqlitedialect.New()),
		logger: logger.With().Str("component", ComponentType).Logger(),
	}

	if err := s.initSchema(context.Background()); err != nil {
		sqldb.Close()
		return nil, errors.New(ErrDatabaseInitFailed, "failed to initialize catalog schema", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*namespaceModel)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}

	if _, err := s.db.NewCreateTable().
		Model((*tableModel)(nil)).
		ForeignKey(`("namespace_id") REFERENCES "namespaces" ("id") ON DELETE RESTRICT`).
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_namespaces_levels ON namespaces(levels)`,
		`CREATE INDEX IF NOT EXISTS idx_tables_namespace ON tables(namespace_id)`,
	}
	for _, idx := range indexes {
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.New(ErrDatabaseCloseFailed, "failed to close catalog store", err)
	}
	return nil
}

// GetType returns the component type identifier
func (s *Store) GetType() string {
	return ComponentType
}

func joinLevels(levels []string) string {
	return strings.Join(levels, levelSeparator)
}

func splitLevels(joined string) []string {
	return strings.Split(joined, levelSeparator)
}

func encodeProperties(props map[string]string) (string, error) {
	if props == nil {
		props = map[string]string{}
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "", errors.New(ErrPropertiesEncode, "failed to encode properties", err)
	}
	return string(data), nil
}

func decodeProperties(raw string) (map[string]string, error) {
	props := map[string]string{}
	if raw == "" {
		return props, nil
	}
	if err := json.Unmarshal([]byte(raw), &props); err != nil {
		return nil, errors.New(ErrPropertiesDecode, "failed to decode properties", err)
	}
	return props, nil
}

func (s *Store) namespaceByLevels(ctx context.Context, idb bun.IDB, levels []string) (*namespaceModel, error) {
	ns := new(namespaceModel)
	err := idb.NewSelect().Model(ns).Where("levels = ?", joinLevels(levels)).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Newf(errors.NoSuchNamespace, "namespace does not exist: %s", joinLevels(levels))
		}
		return nil, errors.New(ErrQueryFailed, "failed to query namespace", err)
	}
	return ns, nil
}

func (s *Store) tableByName(ctx context.Context, idb bun.IDB, namespaceID int64, namespace []string, name string) (*tableModel, error) {
	tbl := new(tableModel)
	err := idb.NewSelect().Model(tbl).
		Where("namespace_id = ?", namespaceID).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Newf(errors.NoSuchTable, "table does not exist: %s.%s", joinLevels(namespace), name)
		}
		return nil, errors.New(ErrQueryFailed, "failed to query table", err)
	}
	return tbl, nil
}

// CreateNamespace inserts a new namespace row
func (s *Store) CreateNamespace(ctx context.Context, levels []string, properties map[string]string) error {
	if len(levels) == 0 {
		return errors.Newf(errors.Validation, "namespace must have at least one level")
	}

	props, err := encodeProperties(properties)
	if err != nil {
		return err
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*namespaceModel)(nil)).
			Where("levels = ?", joinLevels(levels)).
			Exists(ctx)
		if err != nil {
			return errors.New(ErrQueryFailed, "failed to check namespace existence", err)
		}
		if exists {
			return errors.Newf(errors.NamespaceAlreadyExists, "namespace already exists: %s", joinLevels(levels))
		}

		ns := &namespaceModel{Levels: joinLevels(levels), Properties: props}
		if _, err := tx.NewInsert().Model(ns).Exec(ctx); err != nil {
			return errors.New(ErrQueryFailed, "failed to insert namespace", err)
		}
		return nil
	})
}

// GetNamespace loads a namespace row
func (s *Store) GetNamespace(ctx context.Context, levels []string) (*catalog.Namespace, error) {
	ns, err := s.namespaceByLevels(ctx, s.db, levels)
	if err != nil {
		return nil, err
	}
	props, err := decodeProperties(ns.Properties)
	if err != nil {
		return nil, err
	}
	return &catalog.Namespace{Levels: splitLevels(ns.Levels), Properties: props}, nil
}

// NamespaceExists reports whether the namespace row exists
func (s *Store) NamespaceExists(ctx context.Context, levels []string) (bool, error) {
	exists, err := s.db.NewSelect().Model((*namespaceModel)(nil)).
		Where("levels = ?", joinLevels(levels)).
		Exists(ctx)
	if err != nil {
		return false, errors.New(ErrQueryFailed, "failed to check namespace existence", err)
	}
	return exists, nil
}

// ListNamespaces returns namespace level lists, ordered. With a parent it
// returns direct children only; with nil it returns every namespace.
func (s *Store) ListNamespaces(ctx context.Context, parent []string) ([][]string, error) {
	var rows []namespaceModel
	err := s.db.NewSelect().Model(&rows).Order("levels ASC").Scan(ctx)
	if err != nil {
		return nil, errors.New(ErrQueryFailed, "failed to list namespaces", err)
	}

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		levels := splitLevels(row.Levels)
		if parent != nil {
			if len(levels) != len(parent)+1 {
				continue
			}
			if joinLevels(levels[:len(parent)]) != joinLevels(parent) {
				continue
			}
		}
		out = append(out, levels)
	}
	return out, nil
}

// UpdateNamespaceProperties merges updates and drops removals in one
// transaction, reporting which keys were updated, removed and missing.
func (s *Store) UpdateNamespaceProperties(ctx context.Context, levels []string, updates map[string]string, removals []string) (*catalog.PropertiesUpdateSummary, error) {
	summary := &catalog.PropertiesUpdateSummary{
		Updated: []string{},
		Removed: []string{},
		Missing: []string{},
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ns, err := s.namespaceByLevels(ctx, tx, levels)
		if err != nil {
			return err
		}
		props, err := decodeProperties(ns.Properties)
		if err != nil {
			return err
		}

		for _, key := range removals {
			if _, ok := props[key]; ok {
				delete(props, key)
				summary.Removed = append(summary.Removed, key)
			} else {
				summary.Missing = append(summary.Missing, key)
			}
		}
		for key, value := range updates {
			props[key] = value
			summary.Updated = append(summary.Updated, key)
		}

		encoded, err := encodeProperties(props)
		if err != nil {
			return err
		}
		if _, err := tx.NewUpdate().Model((*namespaceModel)(nil)).
			Set("properties = ?", encoded).
			Where("id = ?", ns.ID).
			Exec(ctx); err != nil {
			return errors.New(ErrQueryFailed, "failed to update namespace properties", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(summary.Updated)
	sort.Strings(summary.Removed)
	sort.Strings(summary.Missing)
	return summary, nil
}

// DropNamespace removes an empty namespace
func (s *Store) DropNamespace(ctx context.Context, levels []string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ns, err := s.namespaceByLevels(ctx, tx, levels)
		if err != nil {
			return err
		}

		count, err := tx.NewSelect().Model((*tableModel)(nil)).
			Where("namespace_id = ?", ns.ID).
			Count(ctx)
		if err != nil {
			return errors.New(ErrQueryFailed, "failed to count namespace tables", err)
		}
		if count > 0 {
			return errors.Newf(errors.Validation, "namespace is not empty: %s", joinLevels(levels))
		}

		if _, err := tx.NewDelete().Model((*namespaceModel)(nil)).
			Where("id = ?", ns.ID).
			Exec(ctx); err != nil {
			return errors.New(ErrQueryFailed, "failed to delete namespace", err)
		}
		return nil
	})
}

// CreateTable inserts a new table row pointing at metadataLocation
func (s *Store) CreateTable(ctx context.Context, namespace []string, name, metadataLocation string, properties map[string]string) error {
	props, err := encodeProperties(properties)
	if err != nil {
		return err
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ns, err := s.namespaceByLevels(ctx, tx, namespace)
		if err != nil {
			return err
		}

		exists, err := tx.NewSelect().Model((*tableModel)(nil)).
			Where("namespace_id = ?", ns.ID).
			Where("name = ?", name).
			Exists(ctx)
		if err != nil {
			return errors.New(ErrQueryFailed, "failed to check table existence", err)
		}
		if exists {
			return errors.Newf(errors.TableAlreadyExists, "table already exists: %s.%s", joinLevels(namespace), name)
		}

		tbl := &tableModel{
			NamespaceID:      ns.ID,
			Name:             name,
			MetadataLocation: metadataLocation,
			Properties:       props,
		}
		if _, err := tx.NewInsert().Model(tbl).Exec(ctx); err != nil {
			// The unique constraint on metadata_location guards two tables
			// sharing one metadata file
			if strings.Contains(err.Error(), "UNIQUE constraint failed: tables.metadata_location") {
				return errors.Newf(errors.CommonConflict,
					"metadata location already referenced by another table: %s", metadataLocation)
			}
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return errors.Newf(errors.TableAlreadyExists, "table already exists: %s.%s", joinLevels(namespace), name)
			}
			return errors.New(ErrQueryFailed, "failed to insert table", err)
		}
		return nil
	})
}

// GetTable loads a table row
func (s *Store) GetTable(ctx context.Context, namespace []string, name string) (*catalog.TableEntry, error) {
	ns, err := s.namespaceByLevels(ctx, s.db, namespace)
	if err != nil {
		if errors.IsKind(err, errors.NoSuchNamespace) {
			return nil, errors.Newf(errors.NoSuchTable, "table does not exist: %s.%s", joinLevels(namespace), name)
		}
		return nil, err
	}

	tbl, err := s.tableByName(ctx, s.db, ns.ID, namespace, name)
	if err != nil {
		return nil, err
	}

	props, err := decodeProperties(tbl.Properties)
	if err != nil {
		return nil, err
	}
	return &catalog.TableEntry{
		Namespace:        splitLevels(ns.Levels),
		Name:             tbl.Name,
		MetadataLocation: tbl.MetadataLocation,
		Properties:       props,
	}, nil
}

// TableExists reports whether the table row exists
func (s *Store) TableExists(ctx context.Context, namespace []string, name string) (bool, error) {
	_, err := s.GetTable(ctx, namespace, name)
	if err != nil {
		if errors.IsKind(err, errors.NoSuchTable) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListTables returns the namespace's table identifiers ordered by name
func (s *Store) ListTables(ctx context.Context, namespace []string) ([]catalog.TableIdent, error) {
	ns, err := s.namespaceByLevels(ctx, s.db, namespace)
	if err != nil {
		return nil, err
	}

	var rows []tableModel
	if err := s.db.NewSelect().Model(&rows).
		Where("namespace_id = ?", ns.ID).
		Order("name ASC").
		Scan(ctx); err != nil {
		return nil, errors.New(ErrQueryFailed, "failed to list tables", err)
	}

	out := make([]catalog.TableIdent, 0, len(rows))
	for _, row := range rows {
		out = append(out, catalog.TableIdent{Namespace: splitLevels(ns.Levels), Name: row.Name})
	}
	return out, nil
}

// RenameTable atomically moves a table between identifiers. The metadata
// pointer is untouched.
func (s *Store) RenameTable(ctx context.Context, src, dst catalog.TableIdent) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		srcNS, err := s.namespaceByLevels(ctx, tx, src.Namespace)
		if err != nil {
			if errors.IsKind(err, errors.NoSuchNamespace) {
				return errors.Newf(errors.NoSuchTable, "table does not exist: %s", src.String())
			}
			return err
		}

		tbl, err := s.tableByName(ctx, tx, srcNS.ID, src.Namespace, src.Name)
		if err != nil {
			return err
		}

		dstNS, err := s.namespaceByLevels(ctx, tx, dst.Namespace)
		if err != nil {
			return err
		}

		exists, err := tx.NewSelect().Model((*tableModel)(nil)).
			Where("namespace_id = ?", dstNS.ID).
			Where("name = ?", dst.Name).
			Exists(ctx)
		if err != nil {
			return errors.New(ErrQueryFailed, "failed to check destination table", err)
		}
		if exists {
			return errors.Newf(errors.TableAlreadyExists, "table already exists: %s", dst.String())
		}

		if _, err := tx.NewUpdate().Model((*tableModel)(nil)).
			Set("namespace_id = ?", dstNS.ID).
			Set("name = ?", dst.Name).
			Where("id = ?", tbl.ID).
			Exec(ctx); err != nil {
			return errors.New(ErrQueryFailed, "failed to rename table", err)
		}

		s.logger.Info().
			Str("source", src.String()).
			Str("destination", dst.String()).
			Msg("Renamed table")
		return nil
	})
}

// CASMetadataLocation advances the metadata pointer only if it still equals
// expected, verified by the affected row count.
func (s *Store) CASMetadataLocation(ctx context.Context, namespace []string, name, expected, newLocation string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ns, err := s.namespaceByLevels(ctx, tx, namespace)
		if err != nil {
			if errors.IsKind(err, errors.NoSuchNamespace) {
				return errors.Newf(errors.NoSuchTable, "table does not exist: %s.%s", joinLevels(namespace), name)
			}
			return err
		}

		res, err := tx.NewUpdate().Model((*tableModel)(nil)).
			Set("metadata_location = ?", newLocation).
			Where("namespace_id = ?", ns.ID).
			Where("name = ?", name).
			Where("metadata_location = ?", expected).
			Exec(ctx)
		if err != nil {
			return errors.New(ErrQueryFailed, "failed to update metadata location", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return errors.New(ErrQueryFailed, "failed to read affected row count", err)
		}
		if affected == 1 {
			return nil
		}

		// The pointer moved under us, or the table vanished. Read back the
		// current location for the diagnostic.
		tbl, lookupErr := s.tableByName(ctx, tx, ns.ID, namespace, name)
		if lookupErr != nil {
			return lookupErr
		}
		return errors.Newf(errors.CommitFailed,
			"commit failed: metadata location changed from %s to %s, cannot move to %s",
			expected, tbl.MetadataLocation, newLocation)
	})
}

// DropTable removes a table row
func (s *Store) DropTable(ctx context.Context, namespace []string, name string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ns, err := s.namespaceByLevels(ctx, tx, namespace)
		if err != nil {
			if errors.IsKind(err, errors.NoSuchNamespace) {
				return errors.Newf(errors.NoSuchTable, "table does not exist: %s.%s", joinLevels(namespace), name)
			}
			return err
		}

		res, err := tx.NewDelete().Model((*tableModel)(nil)).
			Where("namespace_id = ?", ns.ID).
			Where("name = ?", name).
			Exec(ctx)
		if err != nil {
			return errors.New(ErrQueryFailed, "failed to delete table", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return errors.New(ErrQueryFailed, "failed to read affected row count", err)
		}
		if affected == 0 {
			return errors.Newf(errors.NoSuchTable, "table does not exist: %s.%s", joinLevels(namespace), name)
		}
		return nil
	})
}
