package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"raisefunds/logger"
	"raisefunds/payments"
)

const (
	internalErrorMessage = "internal server error"
	maxBodyBytes         = 1 << 20
)

var errNotImplemented = errors.New("not implemented")

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response: %s", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// writeServiceError maps domain errors to HTTP statuses. Unclassified errors
// are logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, payments.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, messageOf(err))

	case errors.Is(err, payments.ErrValidation),
		errors.Is(err, payments.ErrInvalidState),
		errors.Is(err, payments.ErrConflict),
		errors.Is(err, payments.ErrInvalidTransaction),
		errors.Is(err, payments.ErrInvalidRecipient),
		errors.Is(err, payments.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, payments.ErrChainUnavailable):
		logger.Warn("%s %s (request %s): %s", r.Method, r.URL.Path, requestIDFromContext(r.Context()), err)
		writeError(w, http.StatusServiceUnavailable, payments.ErrChainUnavailable.Error())

	case errors.Is(err, errNotImplemented):
		writeError(w, http.StatusNotImplemented, err.Error())

	default:
		logger.Error("%s %s (request %s) failed: %s", r.Method, r.URL.Path, requestIDFromContext(r.Context()), err)
		writeError(w, http.StatusInternalServerError, internalErrorMessage)
	}
}

func messageOf(err error) string {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "not found"
	}
	return err.Error()
}

func validationError(msg string) error {
	return errors.Wrap(payments.ErrValidation, msg)
}

func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return validationError("could not read request body")
	}
	if len(body) == 0 {
		return validationError("request body is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return validationError("malformed JSON body: " + err.Error())
	}
	return nil
}

// pathID parses the {id} route variable.
func pathID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		return 0, validationError("invalid id")
	}
	return id, nil
}
