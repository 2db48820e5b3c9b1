package metadata

import "github.com/gear6io/icecat/pkg/errors"

// Requirement types checked before a commit applies. The wire discriminator
// is the "type" field.
const (
	RequirementAssertCreate             = "assert-create"
	RequirementAssertTableUUID          = "assert-table-uuid"
	RequirementAssertRefSnapshotID      = "assert-ref-snapshot-id"
	RequirementAssertDefaultSpecID      = "assert-default-spec-id"
	RequirementAssertDefaultSortOrderID = "assert-default-sort-order-id"
	RequirementAssertCurrentSchemaID    = "assert-current-schema-id"
	RequirementAssertLastAssignedField  = "assert-last-assigned-field-id"
)

// Requirement is one commit precondition over current table metadata
type Requirement struct {
	Type string `json:"type"`

	// assert-table-uuid
	UUID string `json:"uuid,omitempty"`

	// assert-ref-snapshot-id; a nil SnapshotID asserts the ref is absent
	Ref        string `json:"ref,omitempty"`
	SnapshotID *int64 `json:"snapshot-id,omitempty"`

	// id assertions
	DefaultSpecID       *int `json:"default-spec-id,omitempty"`
	DefaultSortOrderID  *int `json:"default-sort-order-id,omitempty"`
	CurrentSchemaID     *int `json:"current-schema-id,omitempty"`
	LastAssignedFieldID *int `json:"last-assigned-field-id,omitempty"`
}

// IsAssertCreate reports whether the requirement marks a create-path commit
func (r *Requirement) IsAssertCreate() bool {
	return r.Type == RequirementAssertCreate
}

// Check verifies the requirement against current metadata. A mismatch is a
// commit conflict; the caller must not apply updates after a failure.
func (r *Requirement) Check(current *TableMetadata) error {
	switch r.Type {
	case RequirementAssertCreate:
		// Handled by the commit pipeline before the table row is read
		return nil

	case RequirementAssertTableUUID:
		if current.TableUUID != r.UUID {
			return errors.Newf(errors.CommitFailed,
				"requirement failed: table UUID is %s, expected %s", current.TableUUID, r.UUID)
		}

	case RequirementAssertRefSnapshotID:
		ref, ok := current.Refs[r.Ref]
		if r.SnapshotID == nil {
			if ok {
				return errors.Newf(errors.CommitFailed,
					"requirement failed: ref %s was created concurrently", r.Ref)
			}
			return nil
		}
		if !ok {
			return errors.Newf(errors.CommitFailed,
				"requirement failed: ref %s is missing", r.Ref)
		}
		if ref.SnapshotID != *r.SnapshotID {
			return errors.Newf(errors.CommitFailed,
				"requirement failed: ref %s points at snapshot %d, expected %d",
				r.Ref, ref.SnapshotID, *r.SnapshotID)
		}

	case RequirementAssertDefaultSpecID:
		if r.DefaultSpecID != nil && current.DefaultSpecID != *r.DefaultSpecID {
			return errors.Newf(errors.CommitFailed,
				"requirement failed: default spec id is %d, expected %d",
				current.DefaultSpecID, *r.DefaultSpecID)
		}

	case RequirementAssertDefaultSortOrderID:
		if r.DefaultSortOrderID != nil && current.DefaultSortOrderID != *r.DefaultSortOrderID {
			return errors.Newf(errors.CommitFailed,
				"requirement failed: default sort order id is %d, expected %d",
				current.DefaultSortOrderID, *r.DefaultSortOrderID)
		}

	case RequirementAssertCurrentSchemaID:
		if r.CurrentSchemaID != nil && current.CurrentSchemaID != *r.CurrentSchemaID {
			return errors.Newf(errors.CommitFailed,
				"requirement failed: current schema id is %d, expected %d",
				current.CurrentSchemaID, *r.CurrentSchemaID)
		}

	case RequirementAssertLastAssignedField:
		if r.LastAssignedFieldID != nil && current.LastColumnID != *r.LastAssignedFieldID {
			return errors.Newf(errors.CommitFailed,
				"requirement failed: last assigned field id is %d, expected %d",
				current.LastColumnID, *r.LastAssignedFieldID)
		}

	default:
		return errors.Newf(errors.BadRequest, "unknown requirement type: %s", r.Type)
	}
	return nil
}
