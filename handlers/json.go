package handlers

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TalhaJubaerPrantor/neoblood-backend/errors"
)

type ErrorResponse struct {
	Message       string      `json:"message"`
	Kind          errors.Kind `json:"kind"`
	DaysRemaining int         `json:"daysRemaining,omitempty"`
}

func jsonResponse(data interface{}, writer http.ResponseWriter) {
	if err := json.NewEncoder(writer).Encode(data); err != nil {
		http.Error(writer, err.Error(), http.StatusInternalServerError)
	}
}

// handleServiceError maps the business error taxonomy onto transport codes
// and always ships the machine-checkable kind next to the message.
func handleServiceError(writer http.ResponseWriter, span trace.Span, err error) {
	statusErr := errors.As(err)
	span.SetStatus(codes.Error, statusErr.Message)

	writer.WriteHeader(errors.HTTPStatus(err))
	jsonResponse(ErrorResponse{
		Message:       statusErr.Message,
		Kind:          statusErr.Kind,
		DaysRemaining: statusErr.DaysRemaining,
	}, writer)
}
