package tables

import (
	"github.com/gear6io/icecat/server/catalog"
	"github.com/gear6io/icecat/server/metadata"
)

// CreateTableRequest creates a new table in a namespace
type CreateTableRequest struct {
	Name          string                  `json:"name"`
	Schema        *metadata.Schema        `json:"schema"`
	PartitionSpec *metadata.PartitionSpec `json:"partition-spec,omitempty"`
	WriteOrder    *metadata.SortOrder     `json:"write-order,omitempty"`
	Properties    map[string]string       `json:"properties,omitempty"`
	Location      string                  `json:"location,omitempty"`
	StageCreate   bool                    `json:"stage-create,omitempty"`
}

// RegisterTableRequest registers an existing metadata file as a table
type RegisterTableRequest struct {
	Name             string `json:"name,omitempty"`
	MetadataLocation string `json:"metadata-location"`
}

// CommitTableRequest advances a table's metadata pointer
type CommitTableRequest struct {
	Identifier   *catalog.TableIdent    `json:"identifier,omitempty"`
	Requirements []metadata.Requirement `json:"requirements,omitempty"`
	Updates      []metadata.Update      `json:"updates,omitempty"`
}

// RenameTableRequest moves a table between identifiers
type RenameTableRequest struct {
	Source      catalog.TableIdent `json:"source"`
	Destination catalog.TableIdent `json:"destination"`
}

// TableResult is the response payload for create, register, load and commit
type TableResult struct {
	MetadataLocation string                  `json:"metadata-location"`
	Metadata         *metadata.TableMetadata `json:"metadata"`
	Config           map[string]string       `json:"config,omitempty"`
}
