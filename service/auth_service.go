package application

import (
	"context"
	"time"

	"github.com/cristalhq/jwt/v4"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TalhaJubaerPrantor/neoblood-backend/domain"
	"github.com/TalhaJubaerPrantor/neoblood-backend/errors"
)

const tokenLifetime = 24 * time.Hour

type AuthService struct {
	store     domain.UserStore
	secretKey []byte
	tracer    trace.Tracer
	logger    *logrus.Logger
	now       func() time.Time
}

func NewAuthService(store domain.UserStore, secretKey []byte, tracer trace.Tracer, logger *logrus.Logger, now func() time.Time) *AuthService {
	return &AuthService{
		store:     store,
		secretKey: secretKey,
		tracer:    tracer,
		logger:    logger,
		now:       now,
	}
}

func (service *AuthService) Register(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, span := service.tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	if err := user.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		if _, ok := err.(validator.ValidationErrors); ok {
			return nil, errors.Validation(err.Error())
		}
		return nil, err
	}

	if _, err := service.store.GetByEmail(ctx, user.Email); err == nil {
		return nil, errors.Conflict(errors.EmailAlreadyExist)
	} else if errors.KindOf(err) != errors.KindNotFound {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := service.now()
	if user.Availability == "" {
		user.Availability = domain.Available
	}
	user.Role = "user"
	user.IsActive = true
	user.TotalDonations = 0
	user.Points = 0
	user.DonationHistory = []domain.DonationRecord{}
	user.BloodRequests = map[string]domain.BloodRequest{}
	user.ConnectionRequests = map[string]domain.ConnectionRequest{}
	user.AcceptedConnections = map[string]domain.AcceptedConnection{}
	user.Circle = []domain.CircleEntry{}
	user.CreatedAt = now
	user.UpdatedAt = now

	saved, err := service.store.Register(ctx, user)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	service.logger.WithField("userId", saved.ID.Hex()).Info("user registered")
	return saved, nil
}

func (service *AuthService) Login(ctx context.Context, credentials domain.Credentials) (*domain.User, string, error) {
	ctx, span := service.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	user, err := service.store.GetByEmail(ctx, credentials.Email)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.KindOf(err) == errors.KindNotFound {
			return nil, "", errors.Validation(errors.InvalidCredentials)
		}
		return nil, "", err
	}
	if user.Password != credentials.Password {
		return nil, "", errors.Validation(errors.InvalidCredentials)
	}

	token, err := service.generateToken(user)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, "", err
	}
	return user, token, nil
}

func (service *AuthService) GetAll(ctx context.Context) ([]*domain.User, error) {
	ctx, span := service.tracer.Start(ctx, "AuthService.GetAll")
	defer span.End()

	return service.store.GetAll(ctx)
}

func (service *AuthService) generateToken(user *domain.User) (string, error) {
	signer, err := jwt.NewSignerHS(jwt.HS256, service.secretKey)
	if err != nil {
		return "", err
	}

	claims := domain.Claims{
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: service.now().Add(tokenLifetime),
	}

	builder := jwt.NewBuilder(signer)
	token, err := builder.Build(claims)
	if err != nil {
		return "", err
	}
	return token.String(), nil
}
