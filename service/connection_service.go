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

// ConnectionService mediates proposals from a recipient to a specific donor
// for a specific blood request. Connection requests live on the donor's
// record; the referenced blood request stays on the requester's.
type ConnectionService struct {
	store  domain.UserStore
	tracer trace.Tracer
	logger *logrus.Logger
	now    func() time.Time
}

func NewConnectionService(store domain.UserStore, tracer trace.Tracer, logger *logrus.Logger, now func() time.Time) *ConnectionService {
	return &ConnectionService{
		store:  store,
		tracer: tracer,
		logger: logger,
		now:    now,
	}
}

func (service *ConnectionService) Propose(ctx context.Context, requesterID, donorID, requestID primitive.ObjectID) (*domain.ConnectionRequest, error) {
	ctx, span := service.tracer.Start(ctx, "ConnectionService.Propose")
	defer span.End()

	requester, err := service.store.Get(ctx, requesterID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.KindOf(err) == errors.KindNotFound {
			return nil, errors.NotFound(errors.RequesterNotFound)
		}
		return nil, err
	}

	donor, err := service.store.Get(ctx, donorID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.KindOf(err) == errors.KindNotFound {
			return nil, errors.NotFound(errors.DonorNotFound)
		}
		return nil, err
	}

	request, ok := requester.BloodRequestByID(requestID)
	if !ok {
		return nil, errors.NotFound(errors.BloodRequestNotFound)
	}
	if request.IsAccepted {
		return nil, errors.Conflict(errors.RequestAlreadyAccepted)
	}
	if donor.HasPendingConnectionFrom(requesterID, requestID) {
		return nil, errors.Conflict(errors.DuplicateConnection)
	}

	// Snapshot the request fields at proposal time; they are historical fact
	// from here on and are never resynced.
	connection := domain.ConnectionRequest{
		ID:             primitive.NewObjectID(),
		RequesterID:    requesterID,
		RequesterName:  requester.Name,
		RequesterPhone: requester.Phone,
		RequestID:      requestID,
		BloodGroup:     request.BloodGroup,
		Date:           request.Date,
		Time:           request.Time,
		Location:       request.Location,
		District:       request.District,
		Thana:          request.Thana,
		Phone:          request.Phone,
		Status:         domain.Pending,
		CreatedAt:      service.now(),
	}

	donor.PutConnectionRequest(connection)
	donor.UpdatedAt = service.now()

	if err := service.store.Save(ctx, donor); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &connection, nil
}

func (service *ConnectionService) List(ctx context.Context, userID primitive.ObjectID, status domain.ConnectionStatus) ([]domain.ConnectionRequest, error) {
	ctx, span := service.tracer.Start(ctx, "ConnectionService.List")
	defer span.End()

	user, err := service.store.Get(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return user.ConnectionRequestsNewestFirst(status), nil
}

// Reject is terminal and has no side effects on the requester; sibling
// proposals for the same blood request stay pending.
func (service *ConnectionService) Reject(ctx context.Context, donorID, connectionID primitive.ObjectID) (*domain.ConnectionRequest, error) {
	ctx, span := service.tracer.Start(ctx, "ConnectionService.Reject")
	defer span.End()

	donor, err := service.store.Get(ctx, donorID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	connection, ok := donor.ConnectionRequestByID(connectionID)
	if !ok {
		return nil, errors.NotFound(errors.ConnectionRequestNotFound)
	}
	if connection.Status != domain.Pending {
		return nil, errors.Conflictf("This request has already been %s", connection.Status)
	}

	connection.Status = domain.Rejected
	donor.PutConnectionRequest(connection)
	donor.UpdatedAt = service.now()

	if err := service.store.SaveIfConnectionPending(ctx, donor, connectionID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &connection, nil
}
