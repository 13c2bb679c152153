package git

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"gitpaste/pkg/domain"
)

// Runner invokes the git binary against one working tree with a fixed
// author identity. It holds no lock itself; mutating calls require the
// caller to hold the repo git lock.
type Runner struct {
	repo        string
	authorName  string
	authorEmail string
}

func NewRunner(repo, authorName, authorEmail string) *Runner {
	return &Runner{repo: repo, authorName: authorName, authorEmail: authorEmail}
}

func (r *Runner) Repo() string { return r.repo }

func CheckInstalled() error {
	cmd := exec.Command("git", "--version")
	if err := cmd.Run(); err != nil {
		return domain.ErrGitMissing
	}
	return nil
}

func (r *Runner) Run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.repo
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME="+r.authorName,
		"GIT_AUTHOR_EMAIL="+r.authorEmail,
		"GIT_COMMITTER_NAME="+r.authorName,
		"GIT_COMMITTER_EMAIL="+r.authorEmail,
	)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %v: %s", args, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (r *Runner) IsRepo() bool {
	out, err := r.Run("rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// LookupCommit returns the short id of the latest commit touching a
// repo-relative path, for lazy hydration of metadata written before its
// commit existed.
func (r *Runner) LookupCommit(relPath string) (string, error) {
	out, err := r.Run("log", "-n", "1", "--format=%H", "--", relPath)
	if err != nil {
		return "", err
	}
	if len(out) > 12 {
		out = out[:12]
	}
	return out, nil
}

func (r *Runner) HeadShort() (string, error) {
	return r.Run("rev-parse", "--short=12", "HEAD")
}
