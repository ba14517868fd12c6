package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TalhaJubaerPrantor/neoblood-backend/domain"
	"github.com/TalhaJubaerPrantor/neoblood-backend/errors"
)

// CircleService maintains the saved-contacts list. Membership is kept
// bidirectional but carries no eligibility or conflict semantics.
type CircleService struct {
	store  domain.UserStore
	tracer trace.Tracer
	logger *logrus.Logger
	now    func() time.Time
}

func NewCircleService(store domain.UserStore, tracer trace.Tracer, logger *logrus.Logger, now func() time.Time) *CircleService {
	return &CircleService{
		store:  store,
		tracer: tracer,
		logger: logger,
		now:    now,
	}
}

func (service *CircleService) Add(ctx context.Context, userID, counterpartID primitive.ObjectID) (*domain.User, error) {
	ctx, span := service.tracer.Start(ctx, "CircleService.Add")
	defer span.End()

	if userID == counterpartID {
		return nil, errors.Validation(errors.SelfCircle)
	}

	user, err := service.store.Get(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	counterpart, err := service.store.Get(ctx, counterpartID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.KindOf(err) == errors.KindNotFound {
			return nil, errors.NotFound(errors.ConnectionUserNotFound)
		}
		return nil, err
	}

	if user.InCircle(counterpartID) {
		return nil, errors.Conflict(errors.AlreadyInCircle)
	}

	now := service.now()
	user.Circle = append(user.Circle, snapshotEntry(counterpart, now))
	user.UpdatedAt = now
	if err := service.store.Save(ctx, user); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if !counterpart.InCircle(userID) {
		counterpart.Circle = append(counterpart.Circle, snapshotEntry(user, now))
		counterpart.UpdatedAt = now
		if err := service.store.Save(ctx, counterpart); err != nil {
			span.SetStatus(codes.Error, err.Error())
			service.logger.WithFields(logrus.Fields{
				"userId":        userID.Hex(),
				"counterpartId": counterpartID.Hex(),
			}).Error("circle entry added on one side only")
			return nil, err
		}
	}

	return user, nil
}

func (service *CircleService) Remove(ctx context.Context, userID, counterpartID primitive.ObjectID) (*domain.User, error) {
	ctx, span := service.tracer.Start(ctx, "CircleService.Remove")
	defer span.End()

	user, err := service.store.Get(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if !user.RemoveFromCircle(counterpartID) {
		return nil, errors.NotFound(errors.NotInCircle)
	}
	user.UpdatedAt = service.now()
	if err := service.store.Save(ctx, user); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	counterpart, err := service.store.Get(ctx, counterpartID)
	if err == nil && counterpart.RemoveFromCircle(userID) {
		counterpart.UpdatedAt = service.now()
		if err := service.store.Save(ctx, counterpart); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	return user, nil
}

func (service *CircleService) List(ctx context.Context, userID primitive.ObjectID) ([]domain.CircleEntry, *domain.User, error) {
	ctx, span := service.tracer.Start(ctx, "CircleService.List")
	defer span.End()

	user, err := service.store.Get(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	return user.Circle, user, nil
}

func snapshotEntry(user *domain.User, addedAt time.Time) domain.CircleEntry {
	return domain.CircleEntry{
		UserID:         user.ID,
		Name:           user.Name,
		Phone:          user.Phone,
		BloodGroup:     user.BloodGroup,
		Location:       user.Location,
		LastDonation:   user.LastDonation,
		TotalDonations: user.TotalDonations,
		AddedAt:        addedAt,
	}
}
