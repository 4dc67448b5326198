package workflow

import (
	"net/http"

	"medlens/internal/usecase/analyze"
)

// Register mounts the workflow endpoints on the given mux.
func Register(mux *http.ServeMux, svc *analyze.Service) {
	mux.Handle("/workflow/process", ProcessHandler{Svc: svc})
}
