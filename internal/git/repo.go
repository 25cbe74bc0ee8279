// Package git reads repository facts for the workspace status.
package git

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// commandTimeout bounds each git invocation.
const commandTimeout = 2 * time.Second

// Info describes the repository containing a workspace.
type Info struct {
	Branch string `json:"branch"`
	Remote string `json:"remote,omitempty"`
	Root   string `json:"root,omitempty"`
}

// Inspector reports repository facts for a directory.
// Implementations never fail: missing facts are left empty.
type Inspector interface {
	Inspect(ctx context.Context, dir string) Info
}

// execInspector shells out to the git binary.
type execInspector struct{}

// NewInspector returns the default Inspector backed by the git binary.
func NewInspector() Inspector {
	return execInspector{}
}

// Inspect implements Inspector. Outside a repository Branch is "unknown".
// A detached HEAD is reported as "detached-<short hash>".
func (execInspector) Inspect(ctx context.Context, dir string) Info {
	root, ok := run(ctx, dir, "rev-parse", "--show-toplevel")
	if !ok {
		return Info{Branch: "unknown"}
	}

	info := Info{Root: root}
	if branch, ok := run(ctx, dir, "branch", "--show-current"); ok && branch != "" {
		info.Branch = branch
	} else if hash, ok := run(ctx, dir, "rev-parse", "--short", "HEAD"); ok {
		info.Branch = "detached-" + hash
	} else {
		info.Branch = "unknown"
	}

	if remote, ok := run(ctx, dir, "remote", "get-url", "origin"); ok {
		info.Remote = remote
	} else if names, ok := run(ctx, dir, "remote"); ok && names != "" {
		first := strings.SplitN(names, "\n", 2)[0]
		info.Remote, _ = run(ctx, dir, "remote", "get-url", first)
	}

	return info
}

func run(ctx context.Context, dir string, args ...string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(output)), true
}

// Static is an Inspector that returns fixed facts. Useful in tests and when
// git lookups are disabled.
type Static Info

// Inspect implements Inspector.
func (s Static) Inspect(ctx context.Context, dir string) Info {
	return Info(s)
}
