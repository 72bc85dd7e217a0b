package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	cargoxerrors "github.com/orionop/cargox/errors"
)

var validate = validator.New()

// validateAll runs struct validation over every element of items and
// returns an InvalidInput error naming the first failure, if any.
func validateAll[T any](items []T) error {
	for i, it := range items {
		if err := validate.Struct(it); err != nil {
			return cargoxerrors.Wrapf(cargoxerrors.InvalidInput, err, "row %d failed validation", i)
		}
	}
	return nil
}

// envelope is the structured result shape returned by every handler:
// success, a human-readable message, and an operation-specific payload.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondOK(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

// respondErr maps a core error kind to an HTTP status and writes the
// envelope with success=false.
func respondErr(w http.ResponseWriter, err error) {
	kind := cargoxerrors.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case cargoxerrors.NotFound:
		status = http.StatusNotFound
	case cargoxerrors.InvalidInput:
		status = http.StatusBadRequest
	case cargoxerrors.CapacityExceeded, cargoxerrors.GeometricallyInfeasible:
		status = http.StatusConflict
	case cargoxerrors.ConsistencyViolation:
		status = http.StatusConflict
	case cargoxerrors.StoreUnavailable:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, envelope{Success: false, Message: err.Error()})
}
