package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cristalhq/jwt/v4"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TalhaJubaerPrantor/neoblood-backend/authorization"
	"github.com/TalhaJubaerPrantor/neoblood-backend/domain"
	application "github.com/TalhaJubaerPrantor/neoblood-backend/service"
)

type UserHandler struct {
	service     *application.UserService
	eligibility *application.EligibilityService
	secretKey   []byte
	tracer      trace.Tracer
	logger      *logrus.Logger
}

func NewUserHandler(service *application.UserService, eligibility *application.EligibilityService, secretKey []byte, tracer trace.Tracer, logger *logrus.Logger) *UserHandler {
	return &UserHandler{
		service:     service,
		eligibility: eligibility,
		secretKey:   secretKey,
		tracer:      tracer,
		logger:      logger,
	}
}

func (handler *UserHandler) Init(router *mux.Router) {
	router.HandleFunc("/profile", handler.Profile).Methods("GET")
	router.HandleFunc("/donation-history/{userId}", handler.DonationHistory).Methods("GET")
	router.HandleFunc("/available-donors", handler.AvailableDonors).Methods("GET")
	router.HandleFunc("/eligibility-status/{userId}", handler.EligibilityStatus).Methods("GET")
}

func (handler *UserHandler) InitFind(router *mux.Router) {
	router.HandleFunc("/update-user-location", handler.UpdateLocation).Methods("POST")
	router.HandleFunc("/users-with-location", handler.UsersWithLocation).Methods("GET")
}

func (handler *UserHandler) Profile(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "UserHandler.Profile")
	defer span.End()

	claims, err := parseToken(req, handler.secretKey)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(writer, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := handler.service.Get(ctx, claims.UserID)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}
	jsonResponse(map[string]interface{}{"user": user}, writer)
}

func (handler *UserHandler) DonationHistory(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "UserHandler.DonationHistory")
	defer span.End()

	vars := mux.Vars(req)
	userID, err := primitive.ObjectIDFromHex(vars["userId"])
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(writer, "Invalid user ID", http.StatusBadRequest)
		return
	}

	history, user, err := handler.service.DonationHistory(ctx, userID)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}

	jsonResponse(map[string]interface{}{
		"donationHistory": history,
		"totalDonations":  user.TotalDonations,
		"points":          user.Points,
		"lastDonation":    user.LastDonation,
	}, writer)
}

func (handler *UserHandler) AvailableDonors(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "UserHandler.AvailableDonors")
	defer span.End()

	query := req.URL.Query()
	filter := domain.DonorFilter{
		BloodGroup: domain.BloodGroup(query.Get("bloodGroup")),
		District:   query.Get("district"),
		Thana:      query.Get("thana"),
	}

	donors, err := handler.service.AvailableDonors(ctx, filter)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}
	jsonResponse(map[string]interface{}{"donors": donors, "count": len(donors)}, writer)
}

func (handler *UserHandler) EligibilityStatus(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "UserHandler.EligibilityStatus")
	defer span.End()

	vars := mux.Vars(req)
	userID, err := primitive.ObjectIDFromHex(vars["userId"])
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(writer, "Invalid user ID", http.StatusBadRequest)
		return
	}

	status, err := handler.eligibility.EvaluateByID(ctx, userID)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}
	jsonResponse(status, writer)
}

func (handler *UserHandler) UpdateLocation(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "UserHandler.UpdateLocation")
	defer span.End()

	var payload struct {
		UserID      string                 `json:"userId"`
		LocationGeo map[string]interface{} `json:"locationGeo"`
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

	user, err := handler.service.UpdateLocation(ctx, userID, payload.LocationGeo)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}
	jsonResponse(map[string]interface{}{"message": "Location updated successfully", "user": user}, writer)
}

func (handler *UserHandler) UsersWithLocation(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "UserHandler.UsersWithLocation")
	defer span.End()

	group := domain.BloodGroup(req.URL.Query().Get("bloodGroup"))

	users, err := handler.service.UsersWithLocation(ctx, group)
	if err != nil {
		handleServiceError(writer, span, err)
		return
	}
	jsonResponse(map[string]interface{}{"users": users, "count": len(users)}, writer)
}

func parseToken(req *http.Request, secretKey []byte) (*domain.Claims, error) {
	bearer := req.Header.Get("Authorization")
	raw := strings.TrimPrefix(bearer, "Bearer ")

	verifier, err := jwt.NewVerifierHS(jwt.HS256, secretKey)
	if err != nil {
		return nil, err
	}
	token, err := jwt.Parse([]byte(raw), verifier)
	if err != nil {
		return nil, err
	}
	return authorization.GetClaims(token)
}
