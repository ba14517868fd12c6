package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TalhaJubaerPrantor/neoblood-backend/domain"
	application "github.com/TalhaJubaerPrantor/neoblood-backend/service"
)

type ConnectionHandler struct {
	connections *application.ConnectionService
	matches     *application.MatchService
	tracer      trace.Tracer
	logger      *logrus.Logger
}

func NewConnectionHandler(connections *application.ConnectionService, matches *application.MatchService, tracer trace.Tracer, logger *logrus.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		connections: connections,
		matches:     matches,
		tracer:      tracer,
		logger:      logger,
	}
}

func (handler *ConnectionHandler) Init(router *mux.Router) {
	router.HandleFunc("/send-request-to-donor", handler.Propose).Methods("POST")
	router.HandleFunc("/connection-requests/{userId}", handler.List).Methods("GET")
	router.HandleFunc("/accept-connection-request", handler.Accept).Methods("POST")
	router.HandleFunc("/reject-connection-request", handler.Reject).Methods("POST")
}

func (handler *ConnectionHandler) Propose(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "ConnectionHandler.Propose")
	defer span.End()

	var payload struct {
		RequesterID string `json:"requesterId"`
		DonorID     string `json:"donorId"`
		RequestID   string `json:"requestId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(writer, err.Error(), http.StatusBadRequest)
		return
	}

	requesterID, err := primitive.ObjectIDFromHex(payload.RequesterID)
	if err != nil {
		http.Error(writer, "Invalid requester ID", http.StatusBadRequest)
		return
	}
	donorID, err := primitive.ObjectIDFromHex(payload.DonorID)
	if err != nil {
		http.Error(writer, "Invalid donor ID", http.StatusBadRequest)
		return
	}
	requestID, err := primitive.ObjectIDFromHex(payload.RequestID)
	if err != nil {
		http.Error(writer, "Invalid request ID", http.StatusBadRequest)
		return
	}

	connection, err := handler.connections.Propose(ctx, requesterID, donorID, requestID)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}

	jsonResponse(map[string]interface{}{
		"message":           "Connection request sent successfully",
		"connectionRequest": connection,
	}, writer)
}

func (handler *ConnectionHandler) List(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "ConnectionHandler.List")
	defer span.End()

	vars := mux.Vars(req)
	userID, err := primitive.ObjectIDFromHex(vars["userId"])
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(writer, "Invalid user ID", http.StatusBadRequest)
		return
	}

	status := domain.ConnectionStatus(req.URL.Query().Get("status"))

	connections, err := handler.connections.List(ctx, userID, status)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}
	jsonResponse(map[string]interface{}{
		"connectionRequests": connections,
		"count":              len(connections),
	}, writer)
}

func (handler *ConnectionHandler) Accept(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "ConnectionHandler.Accept")
	defer span.End()

	var payload struct {
		UserID    string `json:"userId"`
		RequestID string `json:"requestId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(writer, err.Error(), http.StatusBadRequest)
		return
	}

	donorID, err := primitive.ObjectIDFromHex(payload.UserID)
	if err != nil {
		http.Error(writer, "Invalid user ID", http.StatusBadRequest)
		return
	}
	connectionID, err := primitive.ObjectIDFromHex(payload.RequestID)
	if err != nil {
		http.Error(writer, "Invalid request ID", http.StatusBadRequest)
		return
	}

	result, err := handler.matches.Accept(ctx, donorID, connectionID)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}

	jsonResponse(map[string]interface{}{
		"message":           "Connection request accepted successfully",
		"connectionRequest": result.ConnectionRequest,
		"bloodRequest":      result.BloodRequest,
		"donor":             result.Donor,
	}, writer)
}

func (handler *ConnectionHandler) Reject(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "ConnectionHandler.Reject")
	defer span.End()

	var payload struct {
		UserID    string `json:"userId"`
		RequestID string `json:"requestId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(writer, err.Error(), http.StatusBadRequest)
		return
	}

	donorID, err := primitive.ObjectIDFromHex(payload.UserID)
	if err != nil {
		http.Error(writer, "Invalid user ID", http.StatusBadRequest)
		return
	}
	connectionID, err := primitive.ObjectIDFromHex(payload.RequestID)
	if err != nil {
		http.Error(writer, "Invalid request ID", http.StatusBadRequest)
		return
	}

	connection, err := handler.connections.Reject(ctx, donorID, connectionID)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}

	jsonResponse(map[string]interface{}{
		"message":           "Connection request rejected successfully",
		"connectionRequest": connection,
	}, writer)
}
