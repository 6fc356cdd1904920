package web

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/triage/internal/errors"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 4 << 20

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderOK writes data with "success": true merged into the top-level object.
func renderOK(w http.ResponseWriter, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		renderJSON(w, http.StatusInternalServerError, errorBody(errors.NewInternal(err)))
		return
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		renderJSON(w, http.StatusOK, map[string]any{"success": true, "data": json.RawMessage(body)})
		return
	}
	fields["success"] = json.RawMessage("true")
	renderJSON(w, http.StatusOK, fields)
}

func errorBody(tErr *errors.TriageError) map[string]any {
	e := map[string]any{
		"code":    string(tErr.Code),
		"message": tErr.Message,
		"status":  tErr.Status,
	}
	if len(tErr.Details) > 0 {
		e["details"] = tErr.Details
	}
	return map[string]any{"success": false, "error": e}
}

// renderError renders {success:false, error:{code,message,status}} with the
// error's HTTP status.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	var tErr *errors.TriageError
	if !stderrors.As(err, &tErr) {
		tErr = errors.NewInternal(err)
	}
	renderJSON(w, tErr.Status, errorBody(tErr))
}

func errNoRoute(r *http.Request) error {
	return errors.NewNotFound("route", r.Method+" "+r.URL.Path)
}

// decodeBody decodes a bounded JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if stderrors.Is(err, io.EOF) {
			return errors.NewInvalidRequest("request body is required")
		}
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return errors.NewInvalidRequest("request body too large")
		}
		return errors.NewInvalidRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// queryParam returns a trimmed query parameter.
func queryParam(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}
