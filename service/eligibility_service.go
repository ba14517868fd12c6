package application

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TalhaJubaerPrantor/neoblood-backend/domain"
)

// EligibilityService decides whether a donor may accept a match right now.
// Expiry is lazy: the first read after the window lapses clears the stored
// eligibility date and flips availability back, and no read after that
// touches the record again.
type EligibilityService struct {
	store  domain.UserStore
	tracer trace.Tracer
	logger *logrus.Logger
	now    func() time.Time
}

func NewEligibilityService(store domain.UserStore, tracer trace.Tracer, logger *logrus.Logger, now func() time.Time) *EligibilityService {
	return &EligibilityService{
		store:  store,
		tracer: tracer,
		logger: logger,
		now:    now,
	}
}

func (service *EligibilityService) Evaluate(ctx context.Context, user *domain.User) (*domain.EligibilityStatus, error) {
	ctx, span := service.tracer.Start(ctx, "EligibilityService.Evaluate")
	defer span.End()

	now := service.now()

	if user.EligibilityDate != nil && user.EligibilityDate.After(now) {
		remaining := user.EligibilityDate.Sub(now)
		days := int(math.Ceil(remaining.Hours() / 24))
		return &domain.EligibilityStatus{
			IsEligible:      false,
			DaysRemaining:   days,
			Availability:    user.Availability,
			EligibilityDate: user.EligibilityDate,
			LastDonation:    user.LastDonation,
		}, nil
	}

	if user.EligibilityDate != nil && user.Availability == domain.Unavailable {
		// Window just lapsed: clear it so the next read is a no-op.
		user.EligibilityDate = nil
		user.Availability = domain.Available
		user.UpdatedAt = now
		if err := service.store.Save(ctx, user); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		service.logger.WithField("userId", user.ID.Hex()).Info("eligibility window lapsed, donor available again")
	}

	return &domain.EligibilityStatus{
		IsEligible:   true,
		Availability: user.Availability,
		LastDonation: user.LastDonation,
	}, nil
}

func (service *EligibilityService) EvaluateByID(ctx context.Context, userID primitive.ObjectID) (*domain.EligibilityStatus, error) {
	ctx, span := service.tracer.Start(ctx, "EligibilityService.EvaluateByID")
	defer span.End()

	user, err := service.store.Get(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return service.Evaluate(ctx, user)
}
