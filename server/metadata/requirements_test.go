package metadata

import (
	"testing"

	"github.com/gear6io/icecat/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requirementFixture(t *testing.T) *TableMetadata {
	t.Helper()
	m := newTestManager()
	md, _ := m.BuildInitial(testSchema(0), nil, nil, nil, "/wh/db/t")
	out, err := m.ApplyUpdates(md, []Update{
		{Action: ActionAddSnapshot, Snapshot: &Snapshot{SnapshotID: 7, TimestampMS: 1}},
	}, "")
	require.NoError(t, err)
	out.TableUUID = "aaaa-bbbb"
	return out
}

func TestRequirementChecks(t *testing.T) {
	md := requirementFixture(t)

	zero := 0
	nine := 9
	two := 2
	id7 := int64(7)
	id8 := int64(8)

	tests := []struct {
		name string
		req  Requirement
		fail bool
	}{
		{"assert-create passes standalone", Requirement{Type: RequirementAssertCreate}, false},
		{"uuid match", Requirement{Type: RequirementAssertTableUUID, UUID: "aaaa-bbbb"}, false},
		{"uuid mismatch", Requirement{Type: RequirementAssertTableUUID, UUID: "wrong"}, true},
		{"ref match", Requirement{Type: RequirementAssertRefSnapshotID, Ref: "main", SnapshotID: &id7}, false},
		{"ref wrong snapshot", Requirement{Type: RequirementAssertRefSnapshotID, Ref: "main", SnapshotID: &id8}, true},
		{"ref missing", Requirement{Type: RequirementAssertRefSnapshotID, Ref: "nope", SnapshotID: &id7}, true},
		{"ref must be absent, is absent", Requirement{Type: RequirementAssertRefSnapshotID, Ref: "nope"}, false},
		{"ref must be absent, exists", Requirement{Type: RequirementAssertRefSnapshotID, Ref: "main"}, true},
		{"default spec match", Requirement{Type: RequirementAssertDefaultSpecID, DefaultSpecID: &zero}, false},
		{"default spec mismatch", Requirement{Type: RequirementAssertDefaultSpecID, DefaultSpecID: &nine}, true},
		{"sort order match", Requirement{Type: RequirementAssertDefaultSortOrderID, DefaultSortOrderID: &zero}, false},
		{"sort order mismatch", Requirement{Type: RequirementAssertDefaultSortOrderID, DefaultSortOrderID: &nine}, true},
		{"current schema match", Requirement{Type: RequirementAssertCurrentSchemaID, CurrentSchemaID: &zero}, false},
		{"current schema mismatch", Requirement{Type: RequirementAssertCurrentSchemaID, CurrentSchemaID: &nine}, true},
		{"last field match", Requirement{Type: RequirementAssertLastAssignedField, LastAssignedFieldID: &two}, false},
		{"last field mismatch", Requirement{Type: RequirementAssertLastAssignedField, LastAssignedFieldID: &nine}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Check(md)
			if tt.fail {
				require.Error(t, err)
				assert.True(t, errors.IsKind(err, errors.CommitFailed))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequirementUnknownType(t *testing.T) {
	md := requirementFixture(t)
	err := (&Requirement{Type: "assert-nothing"}).Check(md)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.BadRequest))
}

func TestIsAssertCreate(t *testing.T) {
	assert.True(t, (&Requirement{Type: RequirementAssertCreate}).IsAssertCreate())
	assert.False(t, (&Requirement{Type: RequirementAssertTableUUID}).IsAssertCreate())
}
