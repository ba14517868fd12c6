package application

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TalhaJubaerPrantor/neoblood-backend/domain"
	"github.com/TalhaJubaerPrantor/neoblood-backend/errors"
)

// RequestService is the blood request registry: recipients post and remove
// requests under their own record, donors browse the flattened open feed.
type RequestService struct {
	store  domain.UserStore
	cache  domain.FeedCache
	cb     *gobreaker.CircuitBreaker
	tracer trace.Tracer
	logger *logrus.Logger
	now    func() time.Time
}

func NewRequestService(store domain.UserStore, cache domain.FeedCache, tracer trace.Tracer, logger *logrus.Logger, now func() time.Time) *RequestService {
	return &RequestService{
		store:  store,
		cache:  cache,
		cb:     CircuitBreaker("requestFeedCache", logger),
		tracer: tracer,
		logger: logger,
		now:    now,
	}
}

func (service *RequestService) Create(ctx context.Context, recipientID primitive.ObjectID, request domain.BloodRequest) (*domain.BloodRequest, error) {
	ctx, span := service.tracer.Start(ctx, "RequestService.Create")
	defer span.End()

	if err := validateBloodRequest(request); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	recipient, err := service.store.Get(ctx, recipientID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	request.ID = primitive.NewObjectID()
	request.IsAccepted = false
	request.AcceptedBy = nil
	request.AcceptedByName = ""
	request.CreatedAt = service.now()

	recipient.PutBloodRequest(request)
	recipient.UpdatedAt = service.now()

	if err := service.store.Save(ctx, recipient); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	service.invalidateFeed(ctx)
	return &request, nil
}

// ListOpen flattens every unaccepted request across all users into a single
// feed, newest first. The unfiltered feed is served from the redis cache when
// the breaker allows it.
func (service *RequestService) ListOpen(ctx context.Context, filter domain.RequestFilter) ([]domain.OpenBloodRequest, error) {
	ctx, span := service.tracer.Start(ctx, "RequestService.ListOpen")
	defer span.End()

	if filter.IsEmpty() && service.cache != nil {
		cached, err := service.cb.Execute(func() (interface{}, error) {
			return service.cache.GetOpenRequests(ctx)
		})
		if err == nil {
			if requests, ok := cached.([]domain.OpenBloodRequest); ok && requests != nil {
				return requests, nil
			}
		}
	}

	users, err := service.store.GetWithOpenRequests(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	feed := []domain.OpenBloodRequest{}
	for _, user := range users {
		for _, request := range user.BloodRequests {
			if request.IsAccepted {
				continue
			}
			if filter.BloodGroup != "" && request.BloodGroup != filter.BloodGroup {
				continue
			}
			if filter.District != "" && request.District != filter.District {
				continue
			}
			if filter.Thana != "" && request.Thana != filter.Thana {
				continue
			}
			feed = append(feed, domain.OpenBloodRequest{
				ID:                  request.ID,
				RequesterID:         user.ID,
				RequesterName:       user.Name,
				RequesterPhone:      user.Phone,
				RequesterEmail:      user.Email,
				RequesterBloodGroup: user.BloodGroup,
				RequesterLocation:   user.Location,
				BloodGroup:          request.BloodGroup,
				Date:                request.Date,
				Time:                request.Time,
				Phone:               request.Phone,
				District:            request.District,
				Thana:               request.Thana,
				Location:            request.Location,
				IsAccepted:          request.IsAccepted,
				CreatedAt:           request.CreatedAt,
			})
		}
	}

	sort.Slice(feed, func(i, j int) bool {
		if feed[i].CreatedAt.Equal(feed[j].CreatedAt) {
			return feed[i].ID.Hex() > feed[j].ID.Hex()
		}
		return feed[i].CreatedAt.After(feed[j].CreatedAt)
	})

	if filter.IsEmpty() && service.cache != nil {
		_, _ = service.cb.Execute(func() (interface{}, error) {
			return nil, service.cache.SetOpenRequests(ctx, feed)
		})
	}

	return feed, nil
}

func (service *RequestService) ListMine(ctx context.Context, userID primitive.ObjectID) ([]domain.BloodRequest, error) {
	ctx, span := service.tracer.Start(ctx, "RequestService.ListMine")
	defer span.End()

	user, err := service.store.Get(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return user.BloodRequestsNewestFirst(), nil
}

func (service *RequestService) Delete(ctx context.Context, userID, requestID primitive.ObjectID) error {
	ctx, span := service.tracer.Start(ctx, "RequestService.Delete")
	defer span.End()

	user, err := service.store.Get(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	request, ok := user.BloodRequestByID(requestID)
	if !ok {
		return errors.NotFound(errors.BloodRequestNotFound)
	}
	if request.IsAccepted {
		// Accepted requests are immutable history.
		return errors.Conflict(errors.DeleteAcceptedRequest)
	}

	user.RemoveBloodRequest(requestID)
	user.UpdatedAt = service.now()

	// Conditional on the stored request still being open, so an acceptance
	// that lands between our read and this write is never erased.
	if err := service.store.SaveIfRequestOpen(ctx, user, requestID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.KindOf(err) == errors.KindConflict {
			return errors.Conflict(errors.DeleteAcceptedRequest)
		}
		return err
	}

	service.invalidateFeed(ctx)
	return nil
}

func (service *RequestService) invalidateFeed(ctx context.Context) {
	if service.cache == nil {
		return
	}
	_, err := service.cb.Execute(func() (interface{}, error) {
		return nil, service.cache.Invalidate(ctx)
	})
	if err != nil {
		service.logger.WithError(err).Warn("could not invalidate open-request feed cache")
	}
}

func validateBloodRequest(request domain.BloodRequest) error {
	if !request.BloodGroup.IsValid() {
		return errors.Validation("A valid blood group is required")
	}
	if request.Date == "" || request.Time == "" || request.Phone == "" ||
		request.District == "" || request.Thana == "" || request.Location == "" {
		return errors.Validation("Missing required fields: bloodGroup, date, time, phone, district, thana, location")
	}
	return nil
}
