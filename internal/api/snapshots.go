package api

import (
	"net/http"

	"github.com/stockpilot/stockpilot/internal/auth"
)

func handleCreateSnapshot(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Snapshots == nil {
		writeNotConfigured(w, r, "snapshots")
		return
	}
	if err := requireAnyRole(r, auth.RoleOperator); err != nil {
		writeForbidden(w, r, err)
		return
	}
	info, err := deps.Snapshots.Export(r.Context())
	if err != nil {
		writeAnswerError(deps, w, r, "", err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}
