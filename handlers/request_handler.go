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

type RequestHandler struct {
	requests *application.RequestService
	matches  *application.MatchService
	tracer   trace.Tracer
	logger   *logrus.Logger
}

func NewRequestHandler(requests *application.RequestService, matches *application.MatchService, tracer trace.Tracer, logger *logrus.Logger) *RequestHandler {
	return &RequestHandler{
		requests: requests,
		matches:  matches,
		tracer:   tracer,
		logger:   logger,
	}
}

func (handler *RequestHandler) Init(router *mux.Router) {
	router.HandleFunc("/blood-requests", handler.ListOpen).Methods("GET")
	router.HandleFunc("/create-blood-request", handler.Create).Methods("POST")
	router.HandleFunc("/delete-blood-request", handler.Delete).Methods("DELETE")
	router.HandleFunc("/my-blood-requests/{userId}", handler.ListMine).Methods("GET")
	router.HandleFunc("/accept-request", handler.AcceptDirect).Methods("POST")
}

func (handler *RequestHandler) ListOpen(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "RequestHandler.ListOpen")
	defer span.End()

	query := req.URL.Query()
	filter := domain.RequestFilter{
		BloodGroup: domain.BloodGroup(query.Get("bloodGroup")),
		District:   query.Get("district"),
		Thana:      query.Get("thana"),
	}

	feed, err := handler.requests.ListOpen(ctx, filter)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}
	jsonResponse(map[string]interface{}{"requests": feed, "count": len(feed)}, writer)
}

type createRequestPayload struct {
	UserID     string            `json:"userId"`
	BloodGroup domain.BloodGroup `json:"bloodGroup"`
	Date       string            `json:"date"`
	Time       string            `json:"time"`
	Phone      string            `json:"phone"`
	District   string            `json:"district"`
	Thana      string            `json:"thana"`
	Location   string            `json:"location"`
}

func (handler *RequestHandler) Create(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "RequestHandler.Create")
	defer span.End()

	var payload createRequestPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(writer, err.Error(), http.StatusBadRequest)
		return
	}

	recipientID, err := primitive.ObjectIDFromHex(payload.UserID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(writer, "Invalid user ID", http.StatusBadRequest)
		return
	}

	request, err := handler.requests.Create(ctx, recipientID, domain.BloodRequest{
		BloodGroup: payload.BloodGroup,
		Date:       payload.Date,
		Time:       payload.Time,
		Phone:      payload.Phone,
		District:   payload.District,
		Thana:      payload.Thana,
		Location:   payload.Location,
	})
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}

	jsonResponse(map[string]interface{}{"message": "Blood request created successfully", "request": request}, writer)
}

func (handler *RequestHandler) Delete(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "RequestHandler.Delete")
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

	userID, err := primitive.ObjectIDFromHex(payload.UserID)
	if err != nil {
		http.Error(writer, "Invalid user ID", http.StatusBadRequest)
		return
	}
	requestID, err := primitive.ObjectIDFromHex(payload.RequestID)
	if err != nil {
		http.Error(writer, "Invalid request ID", http.StatusBadRequest)
		return
	}

	if err := handler.requests.Delete(ctx, userID, requestID); err != nil {
		handleServiceError(writer, span, err)
		return
	}

	jsonResponse(map[string]interface{}{"message": "Blood request deleted successfully", "deletedRequestId": payload.RequestID}, writer)
}

func (handler *RequestHandler) ListMine(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "RequestHandler.ListMine")
	defer span.End()

	vars := mux.Vars(req)
	userID, err := primitive.ObjectIDFromHex(vars["userId"])
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(writer, "Invalid user ID", http.StatusBadRequest)
		return
	}

	requests, err := handler.requests.ListMine(ctx, userID)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}
	jsonResponse(map[string]interface{}{"bloodRequests": requests, "count": len(requests)}, writer)
}

func (handler *RequestHandler) AcceptDirect(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "RequestHandler.AcceptDirect")
	defer span.End()

	var payload struct {
		RequesterID string `json:"requesterId"`
		RequestID   string `json:"requestId"`
		DonorID     string `json:"donorId"`
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
	requestID, err := primitive.ObjectIDFromHex(payload.RequestID)
	if err != nil {
		http.Error(writer, "Invalid request ID", http.StatusBadRequest)
		return
	}
	donorID, err := primitive.ObjectIDFromHex(payload.DonorID)
	if err != nil {
		http.Error(writer, "Invalid donor ID", http.StatusBadRequest)
		return
	}

	result, err := handler.matches.AcceptDirect(ctx, requesterID, requestID, donorID)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}

	jsonResponse(map[string]interface{}{
		"message": "Blood request accepted successfully",
		"request": result.BloodRequest,
		"donor":   result.Donor,
	}, writer)
}
