package metadata

import "encoding/json"

// SchemaField is one column of a table schema. Type is either a primitive
// type name or a nested complex type (struct/list/map) carried as decoded
// JSON.
type SchemaField struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Type     any    `json:"type"`
	Required bool   `json:"required"`
	Doc      string `json:"doc,omitempty"`
}

// Schema is an ordered set of fields identified by schema-id
type Schema struct {
	Type               string        `json:"type"`
	SchemaID           int           `json:"schema-id"`
	Fields             []SchemaField `json:"fields"`
	IdentifierFieldIDs []int         `json:"identifier-field-ids,omitempty"`
}

// PartitionField maps a source column through a transform into a partition value
type PartitionField struct {
	FieldID   int    `json:"field-id"`
	SourceID  int    `json:"source-id"`
	Name      string `json:"name"`
	Transform string `json:"transform"`
}

// PartitionSpec identifies how a table's rows are split into partitions
type PartitionSpec struct {
	SpecID int              `json:"spec-id"`
	Fields []PartitionField `json:"fields"`
}

// SortField is one key of a sort order
type SortField struct {
	SourceID  int    `json:"source-id"`
	Transform string `json:"transform"`
	Direction string `json:"direction"`
	NullOrder string `json:"null-order"`
}

// SortOrder is an ordered list of sort keys identified by order-id
type SortOrder struct {
	OrderID int         `json:"order-id"`
	Fields  []SortField `json:"fields"`
}

// Snapshot is an immutable point-in-time table state
type Snapshot struct {
	SnapshotID       int64             `json:"snapshot-id"`
	ParentSnapshotID *int64            `json:"parent-snapshot-id,omitempty"`
	SequenceNumber   int64             `json:"sequence-number,omitempty"`
	TimestampMS      int64             `json:"timestamp-ms"`
	ManifestList     string            `json:"manifest-list,omitempty"`
	Summary          map[string]string `json:"summary,omitempty"`
	SchemaID         *int              `json:"schema-id,omitempty"`
}

// SnapshotRef is a named branch or tag pointing at a snapshot
type SnapshotRef struct {
	Type               string `json:"type"`
	SnapshotID         int64  `json:"snapshot-id"`
	MinSnapshotsToKeep *int   `json:"min-snapshots-to-keep,omitempty"`
	MaxSnapshotAgeMS   *int64 `json:"max-snapshot-age-ms,omitempty"`
	MaxRefAgeMS        *int64 `json:"max-ref-age-ms,omitempty"`
}

// Ref types
const (
	RefTypeBranch = "branch"
	RefTypeTag    = "tag"
)

// SnapshotLogEntry records when a snapshot became current
type SnapshotLogEntry struct {
	TimestampMS int64 `json:"timestamp-ms"`
	SnapshotID  int64 `json:"snapshot-id"`
}

// MetadataLogEntry records a previously written metadata file
type MetadataLogEntry struct {
	TimestampMS  int64  `json:"timestamp-ms"`
	MetadataFile string `json:"metadata-file"`
}

// TableMetadata is the full on-disk table description. Instances are treated
// as immutable once written; mutation happens on a Clone.
type TableMetadata struct {
	FormatVersion      int                    `json:"format-version"`
	TableUUID          string                 `json:"table-uuid"`
	Location           string                 `json:"location"`
	LastSequenceNumber int64                  `json:"last-sequence-number,omitempty"`
	LastUpdatedMS      int64                  `json:"last-updated-ms"`
	LastColumnID       int                    `json:"last-column-id"`
	Schemas            []Schema               `json:"schemas"`
	CurrentSchemaID    int                    `json:"current-schema-id"`
	PartitionSpecs     []PartitionSpec        `json:"partition-specs"`
	DefaultSpecID      int                    `json:"default-spec-id"`
	LastPartitionID    int                    `json:"last-partition-id"`
	Properties         map[string]string      `json:"properties"`
	CurrentSnapshotID  *int64                 `json:"current-snapshot-id"`
	Snapshots          []Snapshot             `json:"snapshots"`
	SnapshotLog        []SnapshotLogEntry     `json:"snapshot-log"`
	MetadataLog        []MetadataLogEntry     `json:"metadata-log"`
	SortOrders         []SortOrder            `json:"sort-orders"`
	DefaultSortOrderID int                    `json:"default-sort-order-id"`
	Refs               map[string]SnapshotRef `json:"refs"`
}

// Clone returns a deep copy sharing no containers with the receiver. Field
// types carry nested decoded JSON, so a marshal round-trip is the only copy
// that is guaranteed complete.
func (m *TableMetadata) Clone() *TableMetadata {
	data, err := json.Marshal(m)
	if err != nil {
		// TableMetadata holds only JSON-decoded values, marshal cannot fail
		panic(err)
	}
	var out TableMetadata
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

// SchemaByID returns the schema with the given id, or nil
func (m *TableMetadata) SchemaByID(id int) *Schema {
	for i := range m.Schemas {
		if m.Schemas[i].SchemaID == id {
			return &m.Schemas[i]
		}
	}
	return nil
}

// SpecByID returns the partition spec with the given id, or nil
func (m *TableMetadata) SpecByID(id int) *PartitionSpec {
	for i := range m.PartitionSpecs {
		if m.PartitionSpecs[i].SpecID == id {
			return &m.PartitionSpecs[i]
		}
	}
	return nil
}

// SortOrderByID returns the sort order with the given id, or nil
func (m *TableMetadata) SortOrderByID(id int) *SortOrder {
	for i := range m.SortOrders {
		if m.SortOrders[i].OrderID == id {
			return &m.SortOrders[i]
		}
	}
	return nil
}

// SnapshotByID returns the snapshot with the given id, or nil
func (m *TableMetadata) SnapshotByID(id int64) *Snapshot {
	for i := range m.Snapshots {
		if m.Snapshots[i].SnapshotID == id {
			return &m.Snapshots[i]
		}
	}
	return nil
}

// MaxFieldID returns the highest field id in the schema, descending into
// nested struct types.
func (s *Schema) MaxFieldID() int {
	return maxFieldID(s.Fields)
}

func maxFieldID(fields []SchemaField) int {
	max := 0
	for _, f := range fields {
		if f.ID > max {
			max = f.ID
		}
		if n := maxNestedFieldID(f.Type); n > max {
			max = n
		}
	}
	return max
}

func maxNestedFieldID(t any) int {
	m, ok := t.(map[string]any)
	if !ok {
		return 0
	}
	max := 0
	fields, ok := m["fields"].([]any)
	if !ok {
		return 0
	}
	for _, raw := range fields {
		fm, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := fm["id"].(float64); ok && int(id) > max {
			max = int(id)
		}
		if n := maxNestedFieldID(fm["type"]); n > max {
			max = n
		}
	}
	return max
}

// maxPartitionFieldID returns the highest field-id in a spec, 0 when empty
func maxPartitionFieldID(spec *PartitionSpec) int {
	max := 0
	for _, f := range spec.Fields {
		if f.FieldID > max {
			max = f.FieldID
		}
	}
	return max
}
