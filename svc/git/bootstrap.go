package git

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"gitpaste/cfg"
)

var gitignoreLines = []string{
	"# temp/intermediate",
	"*.tmp",
	"*.swp",
	"*.bak",
	"*.part",
	"*.lock",
	"*.log",
	"# OS/editor noise",
	".DS_Store",
	"Thumbs.db",
	".idea/",
	".vscode/",
}

// Preflight makes sure the directory layout exists and is writable, the
// git binary is available, and the repo has an initial commit. One-time
// setup: steady-state code assumes all of this holds.
func Preflight(paths cfg.Paths, r *Runner) error {
	if err := CheckInstalled(); err != nil {
		return err
	}
	for _, dir := range []string{paths.Run, paths.Idempotency, paths.Tmp, paths.Repo} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	writeTest := filepath.Join(paths.Run, ".write_test")
	if err := os.WriteFile(writeTest, []byte("ok"), 0o644); err != nil {
		return errors.Wrap(err, "write test file")
	}
	if err := os.Remove(writeTest); err != nil {
		return errors.Wrap(err, "cleanup write test")
	}
	return Bootstrap(r)
}

func Bootstrap(r *Runner) error {
	repo := r.Repo()
	if err := os.MkdirAll(repo, 0o755); err != nil {
		return errors.Wrap(err, "create repo")
	}
	if !r.IsRepo() {
		if _, err := r.Run("init"); err != nil {
			return errors.Wrap(err, "git init")
		}
	}
	for _, dir := range []string{"pastes", "meta"} {
		if err := os.MkdirAll(filepath.Join(repo, dir), 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}

	readme := filepath.Join(repo, "README.md")
	if _, err := os.Stat(readme); os.IsNotExist(err) {
		body := "# gitpaste\n\nGit-backed paste store.\n"
		if err := os.WriteFile(readme, []byte(body), 0o644); err != nil {
			return errors.Wrap(err, "write readme")
		}
	}

	gitignore := filepath.Join(repo, ".gitignore")
	var content string
	if data, err := os.ReadFile(gitignore); err == nil {
		content = string(data)
	}
	for _, line := range gitignoreLines {
		if !strings.Contains(content, line) {
			content += line + "\n"
		}
	}
	if err := os.WriteFile(gitignore, []byte(content), 0o644); err != nil {
		return errors.Wrap(err, "write gitignore")
	}

	if _, err := r.Run("rev-parse", "--verify", "HEAD"); err != nil {
		if _, err := r.Run("add", "README.md", ".gitignore", "pastes", "meta"); err != nil {
			return errors.Wrap(err, "stage initial files")
		}
		if _, err := r.Run("commit", "-m", "init gitpaste repository"); err != nil {
			return errors.Wrap(err, "initial commit")
		}
	}
	return nil
}

// Ready reports whether the repo is bootstrapped and the git lock is
// currently acquirable. Used by the readiness probe.
func Ready(r *Runner, gitLockPath string) error {
	if !r.IsRepo() {
		return errors.New("repo not ready")
	}
	lock, err := AcquireLock(gitLockPath)
	if err != nil {
		return err
	}
	lock.Release()
	return nil
}
