package metadata

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gear6io/icecat/pkg/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// InitialFormatVersion is the format version assigned to freshly created tables
const InitialFormatVersion = 1

// Manager builds and rewrites table metadata. It never touches storage; the
// commit pipeline owns file IO and the catalog pointer.
type Manager struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewManager creates a metadata manager using the wall clock
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		logger: logger.With().Str("component", "metadata").Logger(),
		now:    time.Now,
	}
}

// WithClock replaces the manager's clock, for tests
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) nowMS() int64 {
	return m.now().UnixMilli()
}

// NewMetadataLocation generates the next metadata file path for a table:
// {tableLocation}/metadata/{VVVVV}-{uuid}.metadata.json. The version counter
// comes from oldLocation's basename plus one; the fresh UUID keeps two racers
// that read the same old location from colliding on the file name.
func (m *Manager) NewMetadataLocation(tableLocation, oldLocation string) string {
	version := 0
	if oldLocation != "" {
		base := path.Base(oldLocation)
		if prefix, _, ok := strings.Cut(base, "-"); ok {
			if v, err := strconv.Atoi(prefix); err == nil {
				version = v + 1
			}
		}
	}
	return fmt.Sprintf("%s/metadata/%05d-%s.metadata.json",
		strings.TrimSuffix(tableLocation, "/"), version, uuid.NewString())
}

// BuildInitial constructs the first metadata for a new table and the location
// it is to be written at. The schema is required; spec, order and properties
// are optional.
func (m *Manager) BuildInitial(schema *Schema, spec *PartitionSpec, order *SortOrder, properties map[string]string, tableLocation string) (*TableMetadata, string) {
	nowMS := m.nowMS()
	newLocation := m.NewMetadataLocation(tableLocation, "")

	s := *schema
	if s.Type == "" {
		s.Type = "struct"
	}

	md := &TableMetadata{
		FormatVersion:   InitialFormatVersion,
		TableUUID:       uuid.NewString(),
		Location:        tableLocation,
		LastUpdatedMS:   nowMS,
		LastColumnID:    s.MaxFieldID(),
		Schemas:         []Schema{s},
		CurrentSchemaID: s.SchemaID,
		PartitionSpecs:  []PartitionSpec{},
		Properties:      map[string]string{},
		Snapshots:       []Snapshot{},
		SnapshotLog:     []SnapshotLogEntry{},
		MetadataLog:     []MetadataLogEntry{{TimestampMS: nowMS, MetadataFile: newLocation}},
		SortOrders:      []SortOrder{},
		Refs:            map[string]SnapshotRef{},
	}

	if spec != nil {
		md.PartitionSpecs = []PartitionSpec{*spec}
		md.DefaultSpecID = spec.SpecID
		md.LastPartitionID = maxPartitionFieldID(spec)
	}
	if order != nil {
		md.SortOrders = []SortOrder{*order}
		md.DefaultSortOrderID = order.OrderID
	}
	for k, v := range properties {
		md.Properties[k] = v
	}

	m.logger.Debug().
		Str("table_uuid", md.TableUUID).
		Str("location", tableLocation).
		Msg("Built initial table metadata")

	return md, newLocation
}

// ApplyUpdates deep-copies current, applies each update in order, advances
// last-updated-ms and verifies ref consistency. The input is never mutated.
// overrideLocation, when non-empty, wins over any set-location payload.
func (m *Manager) ApplyUpdates(current *TableMetadata, updates []Update, overrideLocation string) (*TableMetadata, error) {
	md := current.Clone()

	for i := range updates {
		if err := m.applyUpdate(md, &updates[i], overrideLocation); err != nil {
			return nil, err
		}
	}

	md.LastUpdatedMS = m.nowMS()

	for name, ref := range md.Refs {
		if md.SnapshotByID(ref.SnapshotID) == nil {
			return nil, errors.Newf(errors.CommitFailed,
				"ref %s points at unknown snapshot %d", name, ref.SnapshotID)
		}
	}

	return md, nil
}

func (m *Manager) applyUpdate(md *TableMetadata, u *Update, overrideLocation string) error {
	switch u.Action {
	case ActionAssignUUID:
		md.TableUUID = u.UUID

	case ActionUpgradeFormat:
		if u.FormatVersion < md.FormatVersion {
			return errors.Newf(errors.CommitFailed,
				"cannot downgrade format version from %d to %d", md.FormatVersion, u.FormatVersion)
		}
		md.FormatVersion = u.FormatVersion

	case ActionAddSchema:
		if u.Schema == nil {
			return errors.Newf(errors.BadRequest, "add-schema requires a schema")
		}
		if md.SchemaByID(u.Schema.SchemaID) != nil {
			return errors.Newf(errors.CommitFailed,
				"schema with id %d already exists", u.Schema.SchemaID)
		}
		md.Schemas = append(md.Schemas, *u.Schema)
		last := md.LastColumnID
		if n := u.Schema.MaxFieldID(); n > last {
			last = n
		}
		if u.LastColumnID != nil && *u.LastColumnID > last {
			last = *u.LastColumnID
		}
		md.LastColumnID = last

	case ActionSetCurrentSchema:
		if u.SchemaID == nil {
			return errors.Newf(errors.BadRequest, "set-current-schema requires a schema-id")
		}
		if md.SchemaByID(*u.SchemaID) == nil {
			return errors.Newf(errors.CommitFailed,
				"cannot set current schema to unknown schema %d", *u.SchemaID)
		}
		md.CurrentSchemaID = *u.SchemaID

	case ActionAddSpec:
		if u.Spec == nil {
			return errors.Newf(errors.BadRequest, "add-spec requires a spec")
		}
		if md.SpecByID(u.Spec.SpecID) != nil {
			return errors.Newf(errors.CommitFailed,
				"partition spec with id %d already exists", u.Spec.SpecID)
		}
		md.PartitionSpecs = append(md.PartitionSpecs, *u.Spec)
		if n := maxPartitionFieldID(u.Spec); n > md.LastPartitionID {
			md.LastPartitionID = n
		}

	case ActionSetDefaultSpec:
		if u.SpecID == nil {
			return errors.Newf(errors.BadRequest, "set-default-spec requires a spec-id")
		}
		if md.SpecByID(*u.SpecID) == nil {
			return errors.Newf(errors.CommitFailed,
				"cannot set default spec to unknown spec %d", *u.SpecID)
		}
		md.DefaultSpecID = *u.SpecID

	case ActionAddSortOrder:
		if u.SortOrder == nil {
			return errors.Newf(errors.BadRequest, "add-sort-order requires a sort-order")
		}
		if md.SortOrderByID(u.SortOrder.OrderID) != nil {
			return errors.Newf(errors.CommitFailed,
				"sort order with id %d already exists", u.SortOrder.OrderID)
		}
		md.SortOrders = append(md.SortOrders, *u.SortOrder)

	case ActionSetDefaultSortOrder:
		if u.SortOrderID == nil {
			return errors.Newf(errors.BadRequest, "set-default-sort-order requires a sort-order-id")
		}
		if md.SortOrderByID(*u.SortOrderID) == nil {
			return errors.Newf(errors.CommitFailed,
				"cannot set default sort order to unknown order %d", *u.SortOrderID)
		}
		md.DefaultSortOrderID = *u.SortOrderID

	case ActionAddSnapshot:
		if u.Snapshot == nil {
			return errors.Newf(errors.BadRequest, "add-snapshot requires a snapshot")
		}
		snap := *u.Snapshot
		if snap.TimestampMS == 0 {
			snap.TimestampMS = m.nowMS()
		}
		md.Snapshots = append(md.Snapshots, snap)
		id := snap.SnapshotID
		md.CurrentSnapshotID = &id
		md.SnapshotLog = append(md.SnapshotLog, SnapshotLogEntry{
			TimestampMS: snap.TimestampMS,
			SnapshotID:  snap.SnapshotID,
		})
		if md.Refs == nil {
			md.Refs = map[string]SnapshotRef{}
		}
		md.Refs["main"] = SnapshotRef{Type: RefTypeBranch, SnapshotID: snap.SnapshotID}

	case ActionSetSnapshotRef:
		if u.RefName == "" || u.SnapshotID == nil {
			return errors.Newf(errors.BadRequest, "set-snapshot-ref requires ref-name and snapshot-id")
		}
		if md.SnapshotByID(*u.SnapshotID) == nil {
			return errors.Newf(errors.CommitFailed,
				"cannot set ref %s to unknown snapshot %d", u.RefName, *u.SnapshotID)
		}
		refType := u.Type
		if refType == "" {
			refType = RefTypeBranch
		}
		if md.Refs == nil {
			md.Refs = map[string]SnapshotRef{}
		}
		md.Refs[u.RefName] = SnapshotRef{
			Type:               refType,
			SnapshotID:         *u.SnapshotID,
			MinSnapshotsToKeep: u.MinSnapshotsToKeep,
			MaxSnapshotAgeMS:   u.MaxSnapshotAgeMS,
			MaxRefAgeMS:        u.MaxRefAgeMS,
		}

	case ActionRemoveSnapshotRef:
		delete(md.Refs, u.RefName)

	case ActionRemoveSnapshots:
		removed := make(map[int64]bool, len(u.SnapshotIDs))
		for _, id := range u.SnapshotIDs {
			removed[id] = true
		}
		kept := md.Snapshots[:0]
		for _, snap := range md.Snapshots {
			if !removed[snap.SnapshotID] {
				kept = append(kept, snap)
			}
		}
		md.Snapshots = kept
		if md.CurrentSnapshotID != nil && removed[*md.CurrentSnapshotID] {
			md.CurrentSnapshotID = nil
		}
		for name, ref := range md.Refs {
			if removed[ref.SnapshotID] {
				delete(md.Refs, name)
			}
		}

	case ActionSetProperties:
		if md.Properties == nil {
			md.Properties = map[string]string{}
		}
		for k, v := range u.Updates {
			md.Properties[k] = v
		}

	case ActionRemoveProperties:
		for _, k := range u.Removals {
			delete(md.Properties, k)
		}

	case ActionSetLocation:
		if overrideLocation != "" {
			md.Location = overrideLocation
		} else {
			md.Location = u.Location
		}

	default:
		return errors.Newf(errors.BadRequest, "unknown update action: %s", u.Action)
	}
	return nil
}
