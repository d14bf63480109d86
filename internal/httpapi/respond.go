package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/triv3/musicvault/internal/apperr"
)

func parseQueryInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("invalid integer value: " + raw)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// errorBody is what every failed request gets back: a message and, for
// conflicts, the structured reason code the scheduler and store already
// attach to their apperr.Error values.
type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// writeError translates err to its HTTP status via apperr.HTTPStatus and
// writes the matching body. Errors not classified by apperr default to 500.
func writeError(w http.ResponseWriter, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	status := apperr.HTTPStatus(ae.Kind)
	writeJSON(w, status, errorBody{Error: ae.Message, Reason: ae.Reason})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("malformed request body: " + err.Error())
	}
	return nil
}
