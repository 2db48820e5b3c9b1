package http

import "github.com/gear6io/icecat/server/catalog"

// CreateNamespaceRequest is the POST /v1/namespaces payload
type CreateNamespaceRequest struct {
	Namespace  []string          `json:"namespace"`
	Properties map[string]string `json:"properties,omitempty"`
}

// NamespaceResponse describes one namespace
type NamespaceResponse struct {
	Namespace  []string          `json:"namespace"`
	Properties map[string]string `json:"properties"`
}

// ListNamespacesResponse lists namespace level sequences
type ListNamespacesResponse struct {
	Namespaces [][]string `json:"namespaces"`
}

// UpdateNamespacePropertiesRequest merges and removes namespace properties
type UpdateNamespacePropertiesRequest struct {
	Updates  map[string]string `json:"updates,omitempty"`
	Removals []string          `json:"removals,omitempty"`
}

// UpdateNamespacePropertiesResponse partitions the touched keys
type UpdateNamespacePropertiesResponse struct {
	Updated []string `json:"updated"`
	Removed []string `json:"removed"`
	Missing []string `json:"missing,omitempty"`
}

// ListTablesResponse lists table identifiers in a namespace
type ListTablesResponse struct {
	Identifiers []catalog.TableIdent `json:"identifiers"`
}

// ConfigResponse is the GET /v1/config payload
type ConfigResponse struct {
	Defaults  map[string]string `json:"defaults"`
	Overrides map[string]string `json:"overrides"`
}

// errorBody is the wire shape every error response carries
type errorBody struct {
	Message string   `json:"message"`
	Type    string   `json:"type"`
	Code    int      `json:"code"`
	Stack   []string `json:"stack,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}
