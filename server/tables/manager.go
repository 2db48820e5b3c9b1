package tables

import (
	"context"
	"path"
	"path/filepath"
	"strconv"

	"github.com/gear6io/icecat/pkg/errors"
	"github.com/gear6io/icecat/server/catalog"
	"github.com/gear6io/icecat/server/metadata"
	"github.com/gear6io/icecat/server/storage"
	"github.com/rs/zerolog"
)

// ComponentType defines the table manager component type identifier
const ComponentType = "tables"

// CatalogName identifies this catalog in create/register response configs
const CatalogName = "rest-catalog"

// Manager is the commit pipeline: it fuses the catalog store, the storage
// accessor and the metadata manager into the table operations the REST
// surface exposes.
type Manager struct {
	store   catalog.Store
	storage *storage.Accessor
	meta    *metadata.Manager
	logger  zerolog.Logger
}

// NewManager creates a table manager
func NewManager(store catalog.Store, accessor *storage.Accessor, meta *metadata.Manager, logger zerolog.Logger) *Manager {
	return &Manager{
		store:   store,
		storage: accessor,
		meta:    meta,
		logger:  logger.With().Str("component", ComponentType).Logger(),
	}
}

func (m *Manager) tableBaseLocation(namespace []string, name, requested string) string {
	if requested != "" {
		return requested
	}
	parts := append([]string{m.storage.WarehouseRoot()}, namespace...)
	return filepath.Join(append(parts, name)...)
}

// Create builds initial metadata for a new table, writes it and inserts the
// catalog row. With StageCreate set, nothing is persisted.
func (m *Manager) Create(ctx context.Context, namespace []string, req *CreateTableRequest) (*TableResult, error) {
	if req.Name == "" {
		return nil, errors.Newf(errors.Validation, "name: table name is required")
	}
	if req.Schema == nil {
		return nil, errors.Newf(errors.Validation, "schema: table schema is required")
	}
	if _, err := m.store.GetNamespace(ctx, namespace); err != nil {
		return nil, err
	}

	location := m.tableBaseLocation(namespace, req.Name, req.Location)
	md, metadataFile := m.meta.BuildInitial(req.Schema, req.PartitionSpec, req.WriteOrder, req.Properties, location)

	if !req.StageCreate {
		if err := m.storage.WriteJSON(ctx, metadataFile, md); err != nil {
			return nil, err
		}
		if err := m.store.CreateTable(ctx, namespace, req.Name, metadataFile, nil); err != nil {
			if delErr := m.storage.Delete(ctx, metadataFile); delErr != nil {
				m.logger.Warn().Err(delErr).Str("path", metadataFile).Msg("Failed to clean up metadata file")
			}
			return nil, err
		}
	}

	m.logger.Info().
		Strs("namespace", namespace).
		Str("table", req.Name).
		Bool("staged", req.StageCreate).
		Msg("Created table")

	return &TableResult{
		MetadataLocation: metadataFile,
		Metadata:         md,
		Config:           map[string]string{"created-by": CatalogName},
	}, nil
}

// Register inserts a catalog row pointing at an existing metadata file. A
// missing name is inferred from the metadata file's directory.
func (m *Manager) Register(ctx context.Context, namespace []string, req *RegisterTableRequest) (*TableResult, error) {
	if req.MetadataLocation == "" {
		return nil, errors.Newf(errors.Validation, "metadata-location: metadata location is required")
	}

	name := req.Name
	if name == "" {
		name = inferTableName(req.MetadataLocation)
	}
	if name == "" {
		return nil, errors.Newf(errors.Validation, "name: could not infer table name from %s", req.MetadataLocation)
	}

	exists, err := m.storage.Exists(ctx, req.MetadataLocation)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Newf(errors.CommonNotFound, "metadata file does not exist: %s", req.MetadataLocation)
	}

	var md metadata.TableMetadata
	if err := m.storage.ReadJSON(ctx, req.MetadataLocation, &md); err != nil {
		return nil, err
	}

	if err := m.store.CreateTable(ctx, namespace, name, req.MetadataLocation, nil); err != nil {
		return nil, err
	}

	m.logger.Info().
		Strs("namespace", namespace).
		Str("table", name).
		Str("metadata_location", req.MetadataLocation).
		Msg("Registered table")

	return &TableResult{
		MetadataLocation: req.MetadataLocation,
		Metadata:         &md,
		Config:           map[string]string{"registered-by": CatalogName},
	}, nil
}

// inferTableName derives a table name from a metadata file path: the parent
// directory, or its parent when the file sits under the conventional
// "metadata" directory.
func inferTableName(metadataLocation string) string {
	dir := path.Dir(metadataLocation)
	name := path.Base(dir)
	if name == "metadata" {
		name = path.Base(path.Dir(dir))
	}
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// Commit checks requirements, applies updates, writes the new metadata file
// and advances the catalog pointer with a CAS. A lost race removes the file
// and surfaces a commit conflict.
func (m *Manager) Commit(ctx context.Context, namespace []string, name string, req *CommitTableRequest) (*TableResult, error) {
	if req.Identifier != nil {
		if req.Identifier.Name != name || joinedNotEqual(req.Identifier.Namespace, namespace) {
			return nil, errors.Newf(errors.BadRequest,
				"identifier %s does not match the request path %s.%s",
				req.Identifier.String(), path.Join(namespace...), name)
		}
	}

	assertCreate := false
	for i := range req.Requirements {
		if req.Requirements[i].IsAssertCreate() {
			assertCreate = true
			break
		}
	}

	if assertCreate {
		return m.commitCreate(ctx, namespace, name, req)
	}
	return m.commitUpdate(ctx, namespace, name, req)
}

func joinedNotEqual(a, b []string) bool {
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i] != b[i] {
			return true
		}
	}
	return false
}

func (m *Manager) commitCreate(ctx context.Context, namespace []string, name string, req *CommitTableRequest) (*TableResult, error) {
	exists, err := m.store.TableExists(ctx, namespace, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Newf(errors.TableAlreadyExists, "table already exists: %s.%s", path.Join(namespace...), name)
	}
	if _, err := m.store.GetNamespace(ctx, namespace); err != nil {
		return nil, err
	}

	var (
		schemaUpdate *metadata.Update
		location     string
		properties   map[string]string
	)
	for i := range req.Updates {
		u := &req.Updates[i]
		switch u.Action {
		case metadata.ActionAddSchema:
			if schemaUpdate == nil {
				schemaUpdate = u
			}
		case metadata.ActionSetLocation:
			if location == "" {
				location = u.Location
			}
		case metadata.ActionSetProperties:
			if properties == nil {
				properties = u.Updates
			}
		}
	}
	if schemaUpdate == nil || schemaUpdate.Schema == nil {
		return nil, errors.Newf(errors.BadRequest, "table creation commit requires an add-schema update")
	}

	location = m.tableBaseLocation(namespace, name, location)
	md, _ := m.meta.BuildInitial(schemaUpdate.Schema, nil, nil, properties, location)

	// Replay the remaining updates so spec, sort order and snapshot updates
	// in the same commit land in the initial metadata. The consumed
	// add-schema would trip the duplicate-id check, so it is skipped.
	remaining := make([]metadata.Update, 0, len(req.Updates))
	for i := range req.Updates {
		if &req.Updates[i] == schemaUpdate {
			continue
		}
		remaining = append(remaining, req.Updates[i])
	}
	if len(remaining) > 0 {
		md, err = m.meta.ApplyUpdates(md, remaining, "")
		if err != nil {
			return nil, err
		}
	}

	metadataFile := m.meta.NewMetadataLocation(md.Location, "")
	md.MetadataLog = []metadata.MetadataLogEntry{{TimestampMS: md.LastUpdatedMS, MetadataFile: metadataFile}}

	if err := m.storage.WriteJSON(ctx, metadataFile, md); err != nil {
		return nil, err
	}
	if err := m.store.CreateTable(ctx, namespace, name, metadataFile, md.Properties); err != nil {
		if delErr := m.storage.Delete(ctx, metadataFile); delErr != nil {
			m.logger.Warn().Err(delErr).Str("path", metadataFile).Msg("Failed to clean up metadata file")
		}
		return nil, err
	}

	return &TableResult{MetadataLocation: metadataFile, Metadata: md}, nil
}

func (m *Manager) commitUpdate(ctx context.Context, namespace []string, name string, req *CommitTableRequest) (*TableResult, error) {
	row, err := m.store.GetTable(ctx, namespace, name)
	if err != nil {
		return nil, err
	}
	oldLocation := row.MetadataLocation

	var current metadata.TableMetadata
	if err := m.storage.ReadJSON(ctx, oldLocation, &current); err != nil {
		return nil, err
	}

	for i := range req.Requirements {
		if err := req.Requirements[i].Check(&current); err != nil {
			return nil, err
		}
	}

	overrideLocation := ""
	for i := range req.Updates {
		if req.Updates[i].Action == metadata.ActionSetLocation {
			overrideLocation = req.Updates[i].Location
			break
		}
	}

	newMetadata, err := m.meta.ApplyUpdates(&current, req.Updates, overrideLocation)
	if err != nil {
		return nil, err
	}

	newFile := m.meta.NewMetadataLocation(newMetadata.Location, oldLocation)
	newMetadata.MetadataLog = append(newMetadata.MetadataLog, metadata.MetadataLogEntry{
		TimestampMS:  newMetadata.LastUpdatedMS,
		MetadataFile: newFile,
	})

	if err := m.storage.WriteJSON(ctx, newFile, newMetadata); err != nil {
		return nil, err
	}

	if err := m.store.CASMetadataLocation(ctx, namespace, name, oldLocation, newFile); err != nil {
		if delErr := m.storage.Delete(ctx, newFile); delErr != nil {
			m.logger.Warn().Err(delErr).Str("path", newFile).Msg("Failed to clean up metadata file after lost commit")
		}
		if errors.IsKind(err, errors.CommitFailed) || errors.IsKind(err, errors.NoSuchTable) {
			return nil, err
		}
		return nil, errors.New(errors.CommitFailed, "commit failed", err)
	}

	m.logger.Info().
		Strs("namespace", namespace).
		Str("table", name).
		Str("from", oldLocation).
		Str("to", newFile).
		Msg("Committed table metadata")

	return &TableResult{MetadataLocation: newFile, Metadata: newMetadata}, nil
}

// Drop removes the catalog row; with purge it also deletes every file named
// in the metadata log plus the current metadata file. Purge failures are
// logged, never fatal.
func (m *Manager) Drop(ctx context.Context, namespace []string, name string, purge bool) error {
	row, err := m.store.GetTable(ctx, namespace, name)
	if err != nil {
		return err
	}

	if purge {
		targets := map[string]bool{row.MetadataLocation: true}
		var md metadata.TableMetadata
		if err := m.storage.ReadJSON(ctx, row.MetadataLocation, &md); err != nil {
			m.logger.Warn().Err(err).Str("path", row.MetadataLocation).Msg("Could not read metadata for purge")
		} else {
			for _, entry := range md.MetadataLog {
				targets[entry.MetadataFile] = true
			}
		}
		for target := range targets {
			if err := m.storage.Delete(ctx, target); err != nil {
				m.logger.Warn().Err(err).Str("path", target).Msg("Failed to purge metadata file")
			}
		}
	}

	if err := m.store.DropTable(ctx, namespace, name); err != nil {
		return err
	}

	m.logger.Info().
		Strs("namespace", namespace).
		Str("table", name).
		Bool("purge", purge).
		Msg("Dropped table")
	return nil
}

// Load reads the table's current metadata. A snapshot ref selects either a
// named ref or a literal snapshot id; the returned copy has the current
// snapshot (and schema, when the snapshot pins one) swapped without touching
// the persisted metadata.
func (m *Manager) Load(ctx context.Context, namespace []string, name, snapshotRef string) (*TableResult, error) {
	row, err := m.store.GetTable(ctx, namespace, name)
	if err != nil {
		return nil, err
	}

	var md metadata.TableMetadata
	if err := m.storage.ReadJSON(ctx, row.MetadataLocation, &md); err != nil {
		return nil, err
	}

	result := &md
	if snapshotRef != "" {
		result, err = resolveSnapshotRef(&md, namespace, name, snapshotRef)
		if err != nil {
			return nil, err
		}
	}

	return &TableResult{MetadataLocation: row.MetadataLocation, Metadata: result}, nil
}

func resolveSnapshotRef(md *metadata.TableMetadata, namespace []string, name, snapshotRef string) (*metadata.TableMetadata, error) {
	var snapshotID int64
	if ref, ok := md.Refs[snapshotRef]; ok {
		snapshotID = ref.SnapshotID
	} else if id, err := strconv.ParseInt(snapshotRef, 10, 64); err == nil {
		snapshotID = id
	} else {
		return nil, errors.Newf(errors.NoSuchTable,
			"table does not exist: %s.%s (ref:%s)", path.Join(namespace...), name, snapshotRef)
	}

	snap := md.SnapshotByID(snapshotID)
	if snap == nil {
		return nil, errors.Newf(errors.CommitFailed,
			"ref %s resolves to snapshot %d which is not present", snapshotRef, snapshotID)
	}

	out := md.Clone()
	id := snap.SnapshotID
	out.CurrentSnapshotID = &id
	if snap.SchemaID != nil {
		out.CurrentSchemaID = *snap.SchemaID
	}
	return out, nil
}

// Rename delegates to the store's atomic rename
func (m *Manager) Rename(ctx context.Context, req *RenameTableRequest) error {
	if req.Source.Name == "" || req.Destination.Name == "" {
		return errors.Newf(errors.Validation, "source and destination names are required")
	}
	return m.store.RenameTable(ctx, req.Source, req.Destination)
}

// GetType returns the component type identifier
func (m *Manager) GetType() string {
	return ComponentType
}
