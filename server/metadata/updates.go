package metadata

// Update actions accepted by ApplyUpdates. The wire discriminator is the
// "action" field; unknown actions are rejected.
const (
	ActionAssignUUID          = "assign-uuid"
	ActionUpgradeFormat       = "upgrade-format-version"
	ActionAddSchema           = "add-schema"
	ActionSetCurrentSchema    = "set-current-schema"
	ActionAddSpec             = "add-spec"
	ActionSetDefaultSpec      = "set-default-spec"
	ActionAddSortOrder        = "add-sort-order"
	ActionSetDefaultSortOrder = "set-default-sort-order"
	ActionAddSnapshot         = "add-snapshot"
	ActionSetSnapshotRef      = "set-snapshot-ref"
	ActionRemoveSnapshotRef   = "remove-snapshot-ref"
	ActionRemoveSnapshots     = "remove-snapshots"
	ActionSetProperties       = "set-properties"
	ActionRemoveProperties    = "remove-properties"
	ActionSetLocation         = "set-location"
)

// Update is one typed mutation of table metadata. A single struct carries
// every variant's payload; Action selects which fields are meaningful.
type Update struct {
	Action string `json:"action"`

	// assign-uuid
	UUID string `json:"uuid,omitempty"`

	// upgrade-format-version
	FormatVersion int `json:"format-version,omitempty"`

	// add-schema
	Schema       *Schema `json:"schema,omitempty"`
	LastColumnID *int    `json:"last-column-id,omitempty"`

	// set-current-schema
	SchemaID *int `json:"schema-id,omitempty"`

	// add-spec / set-default-spec
	Spec   *PartitionSpec `json:"spec,omitempty"`
	SpecID *int           `json:"spec-id,omitempty"`

	// add-sort-order / set-default-sort-order
	SortOrder   *SortOrder `json:"sort-order,omitempty"`
	SortOrderID *int       `json:"sort-order-id,omitempty"`

	// add-snapshot
	Snapshot *Snapshot `json:"snapshot,omitempty"`

	// set-snapshot-ref / remove-snapshot-ref
	RefName            string `json:"ref-name,omitempty"`
	Type               string `json:"type,omitempty"`
	SnapshotID         *int64 `json:"snapshot-id,omitempty"`
	MinSnapshotsToKeep *int   `json:"min-snapshots-to-keep,omitempty"`
	MaxSnapshotAgeMS   *int64 `json:"max-snapshot-age-ms,omitempty"`
	MaxRefAgeMS        *int64 `json:"max-ref-age-ms,omitempty"`

	// remove-snapshots
	SnapshotIDs []int64 `json:"snapshot-ids,omitempty"`

	// set-properties / remove-properties
	Updates  map[string]string `json:"updates,omitempty"`
	Removals []string          `json:"removals,omitempty"`

	// set-location
	Location string `json:"location,omitempty"`
}
