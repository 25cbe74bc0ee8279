// Package selfaware exposes an external self-awareness service over HTTP and
// MCP.
//
// The boundary is an adapter only. Requests carry a string action tag that is
// mapped onto one Service method; the Service decides what the action means.
// Workspace is the default Service used by the CLI.
package selfaware

import (
	"context"

	"github.com/mvp-joe/workbench-context/internal/git"
)

// Status describes the service state.
type Status struct {
	Initialized   bool      `json:"initialized"`
	Root          string    `json:"root,omitempty"`
	WorkspaceOpen bool      `json:"workspaceOpen"`
	FileCount     int       `json:"fileCount"`
	Capabilities  []string  `json:"capabilities"`
	Git           *git.Info `json:"git,omitempty"`
}

// Result is the outcome of an action. Success drives the HTTP status code.
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Service is the capability object behind the boundary.
type Service interface {
	// Initialize prepares the service. It is called before every dispatch
	// and must be idempotent.
	Initialize(ctx context.Context) error
	GetStatus(ctx context.Context) (*Status, error)
	OpenSourceWorkspace(ctx context.Context) (*Result, error)
	ImplementCapability(ctx context.Context, name string) (*Result, error)
	// AnalyzeSource analyzes the workspace; path optionally narrows it to one file.
	AnalyzeSource(ctx context.Context, path string) (*Result, error)
}
