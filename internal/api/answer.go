package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stockpilot/stockpilot/internal/auth"
	"github.com/stockpilot/stockpilot/internal/backend"
	"github.com/stockpilot/stockpilot/internal/guard"
	"github.com/stockpilot/stockpilot/internal/inventory"
	"github.com/stockpilot/stockpilot/internal/nl2sql"
	"github.com/stockpilot/stockpilot/internal/observability"
	"github.com/stockpilot/stockpilot/internal/pipeline"
	"github.com/stockpilot/stockpilot/internal/shape"
)

type questionRequest struct {
	Question string `json:"question"`
	Charts   bool   `json:"charts"`
}

type translateResponse struct {
	SQL      string      `json:"sql"`
	Shape    shape.Shape `json:"shape"`
	Provider string      `json:"provider,omitempty"`
	Model    string      `json:"model,omitempty"`
}

func readQuestion(w http.ResponseWriter, r *http.Request) (questionRequest, bool) {
	var request questionRequest
	if err := decodeJSON(w, r, &request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", "invalid request body", false, map[string]any{"details": err.Error()})
		return request, false
	}
	request.Question = strings.TrimSpace(request.Question)
	if request.Question == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", "question is required", false, nil)
		return request, false
	}
	return request, true
}

func handleAnswer(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Answerer == nil {
		writeNotConfigured(w, r, "answering")
		return
	}
	if err := requireAnyRole(r, auth.RoleInventoryReader, auth.RoleOperator); err != nil {
		writeForbidden(w, r, err)
		return
	}
	request, ok := readQuestion(w, r)
	if !ok {
		return
	}

	answer, err := deps.Answerer.Answer(r.Context(), request.Question, pipeline.Options{Charts: request.Charts})
	if err != nil {
		writeAnswerError(deps, w, r, answer.SQL, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Translator == nil {
		writeNotConfigured(w, r, "query translation")
		return
	}
	if err := requireAnyRole(r, auth.RoleInventoryReader, auth.RoleOperator); err != nil {
		writeForbidden(w, r, err)
		return
	}
	request, ok := readQuestion(w, r)
	if !ok {
		return
	}

	translated, err := deps.Translator.Translate(r.Context(), nl2sql.Request{NaturalLanguage: request.Question})
	if err != nil {
		writeAnswerError(deps, w, r, "", err)
		return
	}
	sql, err := guard.Check(translated.SQL)
	if err != nil {
		writeAnswerError(deps, w, r, translated.SQL, err)
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{
		SQL:      sql,
		Shape:    shape.Recognize(sql).Shape,
		Provider: translated.Provider,
		Model:    translated.Model,
	})
}

// handleCharts plans and builds charts over the whole inventory table.
func handleCharts(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Charts == nil || deps.Store == nil {
		writeNotConfigured(w, r, "chart synthesis")
		return
	}
	if err := requireAnyRole(r, auth.RoleInventoryReader, auth.RoleOperator); err != nil {
		writeForbidden(w, r, err)
		return
	}
	request, ok := readQuestion(w, r)
	if !ok {
		return
	}

	rows, err := deps.Store.Select(r.Context(), backend.Query{})
	if err != nil {
		writeAnswerError(deps, w, r, "", &backend.Error{Op: "select", Err: err})
		return
	}
	if rows == nil {
		rows = []inventory.Row{}
	}
	writeJSON(w, http.StatusOK, deps.Charts.Synthesize(r.Context(), request.Question, rows))
}

// writeAnswerError maps pipeline failures onto the error envelope.
func writeAnswerError(deps Dependencies, w http.ResponseWriter, r *http.Request, sql string, err error) {
	extra := map[string]any{}
	if sql != "" {
		extra["sql"] = sql
	}
	var (
		translationErr *nl2sql.TranslationError
		unsafeErr      *guard.UnsafeQueryError
		backendErr     *backend.Error
	)
	switch {
	case errors.Is(err, nl2sql.ErrEmptyRequest):
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", err.Error(), false, nil)
	case errors.As(err, &translationErr):
		writeError(r.Context(), w, http.StatusBadGateway, "translation_failed", "could not translate the question into a query", true, withDetails(extra, err))
	case errors.As(err, &unsafeErr):
		extra["keyword"] = unsafeErr.Keyword
		writeError(r.Context(), w, http.StatusBadRequest, "unsafe_query", unsafeErr.Error(), false, extra)
	case errors.As(err, &backendErr):
		writeError(r.Context(), w, http.StatusBadGateway, "backend_failed", "inventory backend request failed", true, withDetails(extra, err))
	default:
		if deps.Logger != nil {
			observability.LoggerWithTrace(r.Context(), deps.Logger).ErrorContext(r.Context(), "request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "internal_error", "internal error", true, nil)
	}
}

func withDetails(extra map[string]any, err error) map[string]any {
	extra["details"] = err.Error()
	return extra
}
