package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	application "github.com/TalhaJubaerPrantor/neoblood-backend/service"
)

type CircleHandler struct {
	circle *application.CircleService
	users  *application.UserService
	tracer trace.Tracer
	logger *logrus.Logger
}

func NewCircleHandler(circle *application.CircleService, users *application.UserService, tracer trace.Tracer, logger *logrus.Logger) *CircleHandler {
	return &CircleHandler{
		circle: circle,
		users:  users,
		tracer: tracer,
		logger: logger,
	}
}

func (handler *CircleHandler) Init(router *mux.Router) {
	router.HandleFunc("/users/{userId}", handler.GetUser).Methods("GET")
	router.HandleFunc("/search-user-by-phone", handler.SearchByPhone).Methods("POST")
	router.HandleFunc("/add-to-circle", handler.Add).Methods("POST")
	router.HandleFunc("/remove-from-circle", handler.Remove).Methods("POST")
}

func (handler *CircleHandler) GetUser(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "CircleHandler.GetUser")
	defer span.End()

	vars := mux.Vars(req)
	userID, err := primitive.ObjectIDFromHex(vars["userId"])
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(writer, "Invalid user ID", http.StatusBadRequest)
		return
	}

	user, err := handler.users.Get(ctx, userID)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}
	jsonResponse(map[string]interface{}{"user": user}, writer)
}

func (handler *CircleHandler) SearchByPhone(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "CircleHandler.SearchByPhone")
	defer span.End()

	var payload struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(writer, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := handler.users.SearchByPhone(ctx, payload.Phone)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}
	jsonResponse(map[string]interface{}{"user": user}, writer)
}

func (handler *CircleHandler) Add(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "CircleHandler.Add")
	defer span.End()

	userID, counterpartID, ok := circlePayload(writer, span, req)
	if !ok {
		return
	}

	user, err := handler.circle.Add(ctx, userID, counterpartID)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}
	jsonResponse(map[string]interface{}{
		"message": "User added to circle successfully",
		"circle":  user.Circle,
	}, writer)
}

func (handler *CircleHandler) Remove(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "CircleHandler.Remove")
	defer span.End()

	userID, counterpartID, ok := circlePayload(writer, span, req)
	if !ok {
		return
	}

	user, err := handler.circle.Remove(ctx, userID, counterpartID)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}
	jsonResponse(map[string]interface{}{
		"message": "User removed from circle successfully",
		"circle":  user.Circle,
	}, writer)
}

func circlePayload(writer http.ResponseWriter, span trace.Span, req *http.Request) (primitive.ObjectID, primitive.ObjectID, bool) {
	var payload struct {
		UserID   string `json:"userId"`
		MemberID string `json:"memberId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(writer, err.Error(), http.StatusBadRequest)
		return primitive.NilObjectID, primitive.NilObjectID, false
	}

	userID, err := primitive.ObjectIDFromHex(payload.UserID)
	if err != nil {
		http.Error(writer, "Invalid user ID", http.StatusBadRequest)
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	memberID, err := primitive.ObjectIDFromHex(payload.MemberID)
	if err != nil {
		http.Error(writer, "Invalid member ID", http.StatusBadRequest)
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return userID, memberID, true
}
