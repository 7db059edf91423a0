package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/stockpilot/stockpilot/internal/auth"
	"github.com/stockpilot/stockpilot/internal/backend"
	"github.com/stockpilot/stockpilot/internal/inventory"
	"github.com/stockpilot/stockpilot/internal/reports"
)

const (
	defaultInventoryLimit = 100
	maxInventoryLimit     = 1000
)

var errInvalidLimit = errors.New("limit must be a positive integer")

type schemaColumn struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

func handleSchema(w http.ResponseWriter, r *http.Request) {
	if err := requireAnyRole(r, auth.RoleInventoryReader, auth.RoleOperator); err != nil {
		writeForbidden(w, r, err)
		return
	}
	columns := make([]schemaColumn, 0, len(inventory.Schema))
	for _, column := range inventory.Schema {
		columns = append(columns, schemaColumn{Name: column.Name, Type: string(column.Type), Description: column.Description})
	}
	writeJSON(w, http.StatusOK, map[string]any{"table": inventory.TableName, "columns": columns})
}

// handleListInventory serves ?limit=&order=[-]column&category= directly from the store.
func handleListInventory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Store == nil {
		writeNotConfigured(w, r, "inventory backend")
		return
	}
	if err := requireAnyRole(r, auth.RoleInventoryReader, auth.RoleOperator); err != nil {
		writeForbidden(w, r, err)
		return
	}

	limit, err := parseLimit(r, defaultInventoryLimit)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", err.Error(), false, nil)
		return
	}
	query := backend.Query{Limit: limit}
	if order := strings.TrimSpace(r.URL.Query().Get("order")); order != "" {
		query.Order = &backend.Order{Column: strings.TrimPrefix(order, "-"), Desc: strings.HasPrefix(order, "-")}
	}
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		query.Filters = append(query.Filters, backend.Filter{Column: "category", Op: backend.OpILike, Value: category})
	}
	if err := query.Validate(); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", err.Error(), false, nil)
		return
	}

	rows, err := deps.Store.Select(r.Context(), query)
	if err != nil {
		writeAnswerError(deps, w, r, "", &backend.Error{Op: "select", Err: err})
		return
	}
	if rows == nil {
		rows = []inventory.Row{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows, "count": len(rows)})
}

func handleSummary(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Reports == nil {
		writeNotConfigured(w, r, "reports")
		return
	}
	if err := requireAnyRole(r, auth.RoleInventoryReader, auth.RoleOperator); err != nil {
		writeForbidden(w, r, err)
		return
	}
	summary, err := deps.Reports.Summary(r.Context())
	if err != nil {
		writeAnswerError(deps, w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func handleReport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Reports == nil {
		writeNotConfigured(w, r, "reports")
		return
	}
	if err := requireAnyRole(r, auth.RoleInventoryReader, auth.RoleOperator); err != nil {
		writeForbidden(w, r, err)
		return
	}
	limit, err := parseLimit(r, 0)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", err.Error(), false, nil)
		return
	}

	name := r.PathValue("report")
	if name == "suppliers" {
		suppliers, err := deps.Reports.Suppliers(r.Context())
		if err != nil {
			writeAnswerError(deps, w, r, "", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"report": name, "suppliers": suppliers})
		return
	}

	var run func(ctx context.Context, limit int) ([]inventory.Row, error)
	switch name {
	case "low-stock":
		run = deps.Reports.LowStock
	case "out-of-stock":
		run = deps.Reports.OutOfStock
	case "top-selling":
		run = deps.Reports.TopSelling
	case "most-expensive":
		run = deps.Reports.MostExpensive
	case "expired":
		run = deps.Reports.Expired
	case "by-category":
		category := strings.TrimSpace(r.URL.Query().Get("category"))
		run = func(ctx context.Context, limit int) ([]inventory.Row, error) {
			return deps.Reports.ByCategory(ctx, category, limit)
		}
	default:
		writeError(r.Context(), w, http.StatusNotFound, "not_found", "unknown report", false, map[string]any{"report": name})
		return
	}

	rows, err := run(r.Context(), limit)
	if err != nil {
		writeAnswerError(deps, w, r, "", err)
		return
	}
	if rows == nil {
		rows = []inventory.Row{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": name, "rows": rows, "count": len(rows)})
}

// handleSuggestions falls back to the default suggestions when the summary fails.
func handleSuggestions(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := requireAnyRole(r, auth.RoleInventoryReader, auth.RoleOperator); err != nil {
		writeForbidden(w, r, err)
		return
	}
	suggestions := reports.DefaultSuggestions()
	if deps.Reports != nil {
		if summary, err := deps.Reports.Summary(r.Context()); err == nil {
			suggestions = reports.Suggestions(summary)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func parseLimit(r *http.Request, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errInvalidLimit
	}
	return min(limit, maxInventoryLimit), nil
}
