package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TalhaJubaerPrantor/neoblood-backend/domain"
	application "github.com/TalhaJubaerPrantor/neoblood-backend/service"
)

type AuthHandler struct {
	service *application.AuthService
	tracer  trace.Tracer
	logger  *logrus.Logger
}

func NewAuthHandler(service *application.AuthService, tracer trace.Tracer, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		tracer:  tracer,
		logger:  logger,
	}
}

func (handler *AuthHandler) Init(router *mux.Router) {
	router.HandleFunc("/register", handler.Register).Methods("POST")
	router.HandleFunc("/login", handler.Login).Methods("POST")
	router.HandleFunc("/users", handler.GetAll).Methods("GET")
}

func (handler *AuthHandler) Register(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "AuthHandler.Register")
	defer span.End()

	var user domain.User
	if err := user.FromJSON(req.Body); err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(writer, err.Error(), http.StatusBadRequest)
		return
	}

	saved, err := handler.service.Register(ctx, &user)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}

	jsonResponse(map[string]interface{}{"user": saved}, writer)
}

func (handler *AuthHandler) Login(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "AuthHandler.Login")
	defer span.End()

	var credentials domain.Credentials
	if err := json.NewDecoder(req.Body).Decode(&credentials); err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(writer, err.Error(), http.StatusBadRequest)
		return
	}

	user, token, err := handler.service.Login(ctx, credentials)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}

	jsonResponse(map[string]interface{}{"user": user, "token": token}, writer)
}

func (handler *AuthHandler) GetAll(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "AuthHandler.GetAll")
	defer span.End()

	users, err := handler.service.GetAll(ctx)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}
	jsonResponse(users, writer)
}
