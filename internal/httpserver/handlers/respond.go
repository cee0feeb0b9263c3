package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tote-app/tote/internal/domain"
)

// errorResponse is the JSON body of every non-2xx reply.
type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Detail: detail})
}

// decodeJSON reads a request body into v, rejecting unknown top-level
// garbage with a 400. Returns false when the response is already written.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// kindStatus maps ingestion error kinds to HTTP statuses.
var kindStatus = map[domain.ErrorKind]int{
	domain.KindNotFound:          http.StatusNotFound,
	domain.KindSuperseded:        http.StatusConflict,
	domain.KindTimeout:           http.StatusGatewayTimeout,
	domain.KindNetwork:           http.StatusBadGateway,
	domain.KindHTTPStatus:        http.StatusBadGateway,
	domain.KindPayloadTooLarge:   http.StatusBadGateway,
	domain.KindUnsupportedScheme: http.StatusUnprocessableEntity,
	domain.KindParse:             http.StatusUnprocessableEntity,
	domain.KindIO:                http.StatusInternalServerError,
}

// writeError translates a domain error into an HTTP reply. Errors that
// carry no ingestion kind are treated as bad input.
func writeError(w http.ResponseWriter, err error) {
	var ie *domain.IngestError
	if !errors.As(err, &ie) {
		badRequest(w, err.Error())
		return
	}

	status, ok := kindStatus[ie.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorResponse{Error: string(ie.Kind), Detail: ie.Error()})
}
