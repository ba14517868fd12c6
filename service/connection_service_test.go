package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/TalhaJubaerPrantor/neoblood-backend/domain"
	"github.com/TalhaJubaerPrantor/neoblood-backend/errors"
	"github.com/TalhaJubaerPrantor/neoblood-backend/store"
)

type ConnectionServiceSuite struct {
	suite.Suite
	store   *store.UserInMemoryStore
	service *ConnectionService

	requester *domain.User
	donor     *domain.User
	request   domain.BloodRequest
}

func TestConnectionServiceSuite(t *testing.T) {
	suite.Run(t, new(ConnectionServiceSuite))
}

func (s *ConnectionServiceSuite) SetupTest() {
	s.store = store.NewUserInMemoryStore()
	s.service = NewConnectionService(s.store, testTracer(), testLogger(), testClock)

	s.requester = seedUser(s.store, &domain.User{
		Name:       "Rahim",
		Email:      "rahim@example.com",
		Password:   "secret",
		Phone:      "01712345678",
		BloodGroup: domain.OPositive,
	})
	s.donor = seedUser(s.store, &domain.User{
		Name:       "Karim",
		Email:      "karim@example.com",
		Password:   "secret",
		Phone:      "01812345678",
		BloodGroup: domain.OPositive,
	})

	s.request = openRequest(testTime.AddDate(0, 0, -1))
	s.requester.PutBloodRequest(s.request)
	s.Require().NoError(s.store.Save(context.Background(), s.requester))
}

func (s *ConnectionServiceSuite) TestPropose() {
	ctx := context.Background()

	s.Run("snapshot lands pending on the donor", func() {
		connection, err := s.service.Propose(ctx, s.requester.ID, s.donor.ID, s.request.ID)
		s.Require().NoError(err)
		s.Equal(domain.Pending, connection.Status)
		s.Equal(s.requester.ID, connection.RequesterID)
		s.Equal("Rahim", connection.RequesterName)
		s.Equal(s.request.BloodGroup, connection.BloodGroup)
		s.Equal(s.request.Date, connection.Date)
		s.Equal(s.request.Location, connection.Location)

		donor, err := s.store.Get(ctx, s.donor.ID)
		s.Require().NoError(err)
		stored, ok := donor.ConnectionRequestByID(connection.ID)
		s.Require().True(ok)
		s.Equal(domain.Pending, stored.Status)
	})

	s.Run("duplicate pending proposal is rejected", func() {
		_, err := s.service.Propose(ctx, s.requester.ID, s.donor.ID, s.request.ID)
		s.Require().Error(err)
		s.Equal(errors.KindConflict, errors.KindOf(err))
		s.Equal(errors.DuplicateConnection, errors.As(err).Message)
	})
}

func (s *ConnectionServiceSuite) TestProposeErrors() {
	ctx := context.Background()

	s.Run("unknown requester", func() {
		_, err := s.service.Propose(ctx, primitive.NewObjectID(), s.donor.ID, s.request.ID)
		s.Require().Error(err)
		s.Equal(errors.RequesterNotFound, errors.As(err).Message)
	})

	s.Run("unknown donor", func() {
		_, err := s.service.Propose(ctx, s.requester.ID, primitive.NewObjectID(), s.request.ID)
		s.Require().Error(err)
		s.Equal(errors.DonorNotFound, errors.As(err).Message)
	})

	s.Run("unknown blood request", func() {
		_, err := s.service.Propose(ctx, s.requester.ID, s.donor.ID, primitive.NewObjectID())
		s.Require().Error(err)
		s.Equal(errors.BloodRequestNotFound, errors.As(err).Message)
	})

	s.Run("accepted blood request", func() {
		accepted := s.request
		accepted.IsAccepted = true
		s.requester.PutBloodRequest(accepted)
		s.Require().NoError(s.store.Save(ctx, s.requester))

		_, err := s.service.Propose(ctx, s.requester.ID, s.donor.ID, s.request.ID)
		s.Require().Error(err)
		s.Equal(errors.KindConflict, errors.KindOf(err))
		s.Equal(errors.RequestAlreadyAccepted, errors.As(err).Message)
	})
}

func (s *ConnectionServiceSuite) TestList() {
	ctx := context.Background()

	pending := pendingConnection(s.requester, s.request, testTime.AddDate(0, 0, -1))
	rejected := pendingConnection(s.requester, s.request, testTime.AddDate(0, 0, -2))
	rejected.Status = domain.Rejected
	s.donor.PutConnectionRequest(pending)
	s.donor.PutConnectionRequest(rejected)
	s.Require().NoError(s.store.Save(ctx, s.donor))

	s.Run("all statuses, newest first", func() {
		connections, err := s.service.List(ctx, s.donor.ID, "")
		s.Require().NoError(err)
		s.Require().Len(connections, 2)
		s.Equal(pending.ID, connections[0].ID)
		s.Equal(rejected.ID, connections[1].ID)
	})

	s.Run("status filter", func() {
		connections, err := s.service.List(ctx, s.donor.ID, domain.Pending)
		s.Require().NoError(err)
		s.Require().Len(connections, 1)
		s.Equal(pending.ID, connections[0].ID)
	})
}

func (s *ConnectionServiceSuite) TestReject() {
	ctx := context.Background()

	connection := pendingConnection(s.requester, s.request, testTime.AddDate(0, 0, -1))
	s.donor.PutConnectionRequest(connection)
	s.Require().NoError(s.store.Save(ctx, s.donor))

	s.Run("pending request becomes rejected", func() {
		rejected, err := s.service.Reject(ctx, s.donor.ID, connection.ID)
		s.Require().NoError(err)
		s.Equal(domain.Rejected, rejected.Status)

		donor, err := s.store.Get(ctx, s.donor.ID)
		s.Require().NoError(err)
		stored, ok := donor.ConnectionRequestByID(connection.ID)
		s.Require().True(ok)
		s.Equal(domain.Rejected, stored.Status)

		// The requester's blood request is untouched.
		requester, err := s.store.Get(ctx, s.requester.ID)
		s.Require().NoError(err)
		request, ok := requester.BloodRequestByID(s.request.ID)
		s.Require().True(ok)
		s.False(request.IsAccepted)
	})

	s.Run("reject is terminal", func() {
		_, err := s.service.Reject(ctx, s.donor.ID, connection.ID)
		s.Require().Error(err)
		s.Equal(errors.KindConflict, errors.KindOf(err))
	})

	s.Run("unknown connection request", func() {
		_, err := s.service.Reject(ctx, s.donor.ID, primitive.NewObjectID())
		s.Require().Error(err)
		s.Equal(errors.KindNotFound, errors.KindOf(err))
	})
}
