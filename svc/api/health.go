package api

import (
	"io"
	"net/http"

	"gitpaste/pkg/domain"
	gitx "gitpaste/svc/git"
)

func (h *Hdl) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok")
}

// Ready reports whether the service can actually take a write: the repo
// is bootstrapped and the git lock is acquirable right now.
func (h *Hdl) Ready(w http.ResponseWriter, r *http.Request) {
	if err := gitx.Ready(h.git, h.paths.GitLock); err != nil {
		writeErr(w, r, domain.ErrRepoNotReady)
		return
	}
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok")
}
