// Package git shells out to git (and jj for colocated jujutsu repos) for the
// handful of VCS facts the engine needs: repository root, current branch,
// remote URL, clone/branch operations, and a stable repository identity.
package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/musterdev/muster/internal/debug"
)

// RepoRoot returns the top-level directory of the repository containing dir.
func RepoRoot(dir string) (string, error) {
	out, err := run(dir, "git", "rev-parse", "--show-toplevel")
	if err == nil {
		return out, nil
	}
	if isJujutsu(dir) {
		return run(dir, "jj", "root")
	}
	return "", fmt.Errorf("not a git repository: %s", dir)
}

// CurrentBranch returns the checked-out branch for dir. Detached HEAD (or a
// jj repo with no named bookmark) yields an empty string, not an error.
func CurrentBranch(dir string) (string, error) {
	out, err := run(dir, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err == nil {
		if out == "HEAD" {
			return "", nil // detached
		}
		return out, nil
	}
	if isJujutsu(dir) {
		out, err := run(dir, "jj", "log", "-r", "@", "--no-graph", "-T", "bookmarks")
		if err != nil {
			return "", err
		}
		// jj prints space-separated bookmarks; the first is good enough
		fields := strings.Fields(out)
		if len(fields) == 0 {
			return "", nil
		}
		return strings.TrimSuffix(fields[0], "*"), nil
	}
	return "", fmt.Errorf("cannot determine branch for %s", dir)
}

// RemoteURL returns the URL of the origin remote, or empty when there is no
// remote. Only a real failure (not a repo at all) is an error.
func RemoteURL(dir string) (string, error) {
	out, err := run(dir, "git", "remote", "get-url", "origin")
	if err == nil {
		return out, nil
	}
	// Distinguish "no origin" from "not a repo".
	if _, rootErr := run(dir, "git", "rev-parse", "--git-dir"); rootErr == nil {
		return "", nil
	}
	if isJujutsu(dir) {
		out, err := run(dir, "jj", "git", "remote", "list")
		if err != nil {
			return "", err
		}
		for _, line := range strings.Split(out, "\n") {
			fields := strings.Fields(line)
			if len(fields) == 2 && fields[0] == "origin" {
				return fields[1], nil
			}
		}
		return "", nil
	}
	return "", fmt.Errorf("not a git repository: %s", dir)
}

// RootCommit returns the hash of the first commit reachable from HEAD.
func RootCommit(dir string) (string, error) {
	out, err := run(dir, "git", "rev-list", "--max-parents=0", "HEAD")
	if err != nil {
		return "", fmt.Errorf("root commit for %s: %w", dir, err)
	}
	// An octopus of roots is possible; take the first line for stability.
	lines := strings.Split(out, "\n")
	return strings.TrimSpace(lines[0]), nil
}

// Identity resolves a stable repository identity for grouping workspaces:
// the normalized origin URL when one exists, otherwise a content identity
// derived from the root commit. Raw `git remote` output is never used as a
// key directly.
func Identity(dir string) (string, error) {
	url, err := RemoteURL(dir)
	if err != nil {
		return "", err
	}
	if url != "" {
		return NormalizeRemoteURL(url), nil
	}
	root, err := RootCommit(dir)
	if err != nil {
		return "", err
	}
	return "content:" + root, nil
}

// NormalizeRemoteURL canonicalizes a remote URL so ssh and https forms of the
// same repository compare equal: scheme and user info dropped, host
// lowercased, trailing .git stripped.
func NormalizeRemoteURL(url string) string {
	url = strings.TrimSpace(url)
	url = strings.TrimSuffix(url, "/")
	url = strings.TrimSuffix(url, ".git")

	// scp-like syntax: git@host:owner/repo
	if at := strings.Index(url, "@"); at >= 0 && !strings.Contains(url[:at], "://") {
		url = url[at+1:]
		url = strings.Replace(url, ":", "/", 1)
	}
	for _, prefix := range []string{"https://", "http://", "ssh://", "git://"} {
		url = strings.TrimPrefix(url, prefix)
	}
	if at := strings.Index(url, "@"); at >= 0 && at < strings.IndexByte(url+"/", '/') {
		url = url[at+1:]
	}
	if slash := strings.IndexByte(url, '/'); slash > 0 {
		url = strings.ToLower(url[:slash]) + url[slash:]
	} else {
		url = strings.ToLower(url)
	}
	return url
}

// Clone clones url into dest.
func Clone(ctx context.Context, url, dest string) error {
	cmd := exec.CommandContext(ctx, "git", "clone", url, dest)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	debug.Logf("git: clone %s -> %s\n", url, dest)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git clone %s: %w", url, err)
	}
	return nil
}

// CreateBranch creates and checks out a new branch in dir.
func CreateBranch(ctx context.Context, dir, name string) error {
	cmd := exec.CommandContext(ctx, "git", "checkout", "-b", name)
	cmd.Dir = dir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git checkout -b %s: %w", name, err)
	}
	return nil
}

// BranchNameForTask derives a safe branch name from a task identifier.
func BranchNameForTask(taskID string) string {
	name := strings.ToLower(strings.TrimSpace(taskID))
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.', r == '/':
			return r
		default:
			return '-'
		}
	}, name)
	mapped = strings.Trim(mapped, "-./")
	if mapped == "" {
		mapped = "task"
	}
	return "muster/" + mapped
}

func isJujutsu(dir string) bool {
	root := dir
	for {
		if info, err := os.Stat(filepath.Join(root, ".jj")); err == nil && info.IsDir() {
			return true
		}
		parent := filepath.Dir(root)
		if parent == root {
			return false
		}
		root = parent
	}
}

func run(dir string, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}
