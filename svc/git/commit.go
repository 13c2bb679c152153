package git

import (
	"github.com/pkg/errors"

	"gitpaste/metrics"
	"gitpaste/pkg/domain"
	"gitpaste/svc/store"
	"gitpaste/svc/util"
)

// CommitPaste stages exactly the draft's two files, commits them and
// applies the push policy. Callers must hold the repo git lock for the
// whole sequence; once staging begins the sequence runs to completion
// or failure without cancellation.
func CommitPaste(r *Runner, draft *domain.PasteDraft, push domain.PushMode, remote string) (*domain.CommitResult, error) {
	if _, err := r.Run("add", draft.RelPath, draft.MetaRelPath); err != nil {
		metrics.CommitFailures.Inc()
		return nil, errors.Wrap(err, "stage paste")
	}
	if _, err := r.Run("commit", "-m", draft.Subject); err != nil {
		metrics.CommitFailures.Inc()
		return nil, errors.Wrap(err, "commit paste")
	}
	commit, err := r.HeadShort()
	if err != nil {
		metrics.CommitFailures.Inc()
		return nil, errors.Wrap(err, "resolve commit")
	}

	switch push {
	case domain.PushBestEffort:
		if _, err := r.Run("push", remote, "HEAD"); err != nil {
			// The local commit stands; the failure rides along in the
			// result for the caller to log.
			metrics.PushFailures.Inc()
			return &domain.CommitResult{Commit: commit, Pushed: false, PushError: err.Error()}, nil
		}
		return &domain.CommitResult{Commit: commit, Pushed: true}, nil
	case domain.PushStrict:
		if _, err := r.Run("push", remote, "HEAD"); err != nil {
			metrics.PushFailures.Inc()
			rollback(r, draft)
			return nil, errors.Wrapf(domain.ErrInternalServer, "push failed in strict mode: %v", err)
		}
		return &domain.CommitResult{Commit: commit, Pushed: true}, nil
	default:
		return &domain.CommitResult{Commit: commit, Pushed: false}, nil
	}
}

// rollback undoes a committed-but-unpushed paste: soft-reset the commit,
// drop the files, reset the index. Each step is best-effort; this runs
// on an error path with no further recovery available.
func rollback(r *Runner, draft *domain.PasteDraft) {
	if _, err := r.Run("reset", "--soft", "HEAD~1"); err != nil {
		util.Warn().Err(err).Str("id", draft.ID).Msg("rollback soft reset failed")
	}
	store.RemoveFiles(draft.AbsPath, draft.MetaPath)
	if _, err := r.Run("reset"); err != nil {
		util.Warn().Err(err).Str("id", draft.ID).Msg("rollback index reset failed")
	}
}
