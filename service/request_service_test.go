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

type RequestServiceSuite struct {
	suite.Suite
	store   *store.UserInMemoryStore
	service *RequestService

	recipient *domain.User
}

func TestRequestServiceSuite(t *testing.T) {
	suite.Run(t, new(RequestServiceSuite))
}

func (s *RequestServiceSuite) SetupTest() {
	s.store = store.NewUserInMemoryStore()
	s.service = NewRequestService(s.store, nil, testTracer(), testLogger(), testClock)

	s.recipient = seedUser(s.store, &domain.User{
		Name:       "Rahim",
		Email:      "rahim@example.com",
		Password:   "secret",
		Phone:      "01712345678",
		BloodGroup: domain.OPositive,
	})
}

func (s *RequestServiceSuite) TestCreate() {
	ctx := context.Background()

	s.Run("valid request is stored open", func() {
		request, err := s.service.Create(ctx, s.recipient.ID, domain.BloodRequest{
			BloodGroup: domain.ABNegative,
			Date:       "2024-05-20",
			Time:       "10:00",
			Phone:      "01712345678",
			District:   "Dhaka",
			Thana:      "Dhanmondi",
			Location:   "Dhaka Medical College",
		})
		s.Require().NoError(err)
		s.False(request.ID.IsZero())
		s.False(request.IsAccepted)
		s.Equal(testTime, request.CreatedAt)

		stored, err := s.store.Get(ctx, s.recipient.ID)
		s.Require().NoError(err)
		_, ok := stored.BloodRequestByID(request.ID)
		s.True(ok)
	})

	s.Run("invalid blood group is rejected", func() {
		_, err := s.service.Create(ctx, s.recipient.ID, domain.BloodRequest{
			BloodGroup: "X+",
			Date:       "2024-05-20",
			Time:       "10:00",
			Phone:      "01712345678",
			District:   "Dhaka",
			Thana:      "Dhanmondi",
			Location:   "Dhaka Medical College",
		})
		s.Require().Error(err)
		s.Equal(errors.KindValidation, errors.KindOf(err))
	})

	s.Run("missing fields are rejected", func() {
		_, err := s.service.Create(ctx, s.recipient.ID, domain.BloodRequest{
			BloodGroup: domain.OPositive,
			Date:       "2024-05-20",
		})
		s.Require().Error(err)
		s.Equal(errors.KindValidation, errors.KindOf(err))
	})

	s.Run("unknown recipient", func() {
		_, err := s.service.Create(ctx, primitive.NewObjectID(), domain.BloodRequest{
			BloodGroup: domain.OPositive,
			Date:       "2024-05-20",
			Time:       "10:00",
			Phone:      "01712345678",
			District:   "Dhaka",
			Thana:      "Dhanmondi",
			Location:   "Dhaka Medical College",
		})
		s.Require().Error(err)
		s.Equal(errors.KindNotFound, errors.KindOf(err))
	})
}

func (s *RequestServiceSuite) TestListOpen() {
	ctx := context.Background()

	older := openRequest(testTime.AddDate(0, 0, -2))
	newer := openRequest(testTime.AddDate(0, 0, -1))
	newer.District = "Chattogram"
	newer.Thana = "Kotwali"
	accepted := openRequest(testTime.AddDate(0, 0, -3))
	accepted.IsAccepted = true

	s.recipient.PutBloodRequest(older)
	s.recipient.PutBloodRequest(newer)
	s.recipient.PutBloodRequest(accepted)
	s.Require().NoError(s.store.Save(ctx, s.recipient))

	s.Run("open requests only, newest first", func() {
		feed, err := s.service.ListOpen(ctx, domain.RequestFilter{})
		s.Require().NoError(err)
		s.Require().Len(feed, 2)
		s.Equal(newer.ID, feed[0].ID)
		s.Equal(older.ID, feed[1].ID)
		s.Equal("Rahim", feed[0].RequesterName)
	})

	s.Run("district filter", func() {
		feed, err := s.service.ListOpen(ctx, domain.RequestFilter{District: "Chattogram"})
		s.Require().NoError(err)
		s.Require().Len(feed, 1)
		s.Equal(newer.ID, feed[0].ID)
	})

	s.Run("blood group filter with no matches", func() {
		feed, err := s.service.ListOpen(ctx, domain.RequestFilter{BloodGroup: domain.ABNegative})
		s.Require().NoError(err)
		s.Empty(feed)
	})
}

func (s *RequestServiceSuite) TestListMine() {
	ctx := context.Background()

	older := openRequest(testTime.AddDate(0, 0, -2))
	newer := openRequest(testTime.AddDate(0, 0, -1))
	s.recipient.PutBloodRequest(older)
	s.recipient.PutBloodRequest(newer)
	s.Require().NoError(s.store.Save(ctx, s.recipient))

	requests, err := s.service.ListMine(ctx, s.recipient.ID)
	s.Require().NoError(err)
	s.Require().Len(requests, 2)
	s.Equal(newer.ID, requests[0].ID)
	s.Equal(older.ID, requests[1].ID)
}

func (s *RequestServiceSuite) TestDelete() {
	ctx := context.Background()

	request := openRequest(testTime.AddDate(0, 0, -1))
	accepted := openRequest(testTime.AddDate(0, 0, -2))
	accepted.IsAccepted = true
	s.recipient.PutBloodRequest(request)
	s.recipient.PutBloodRequest(accepted)
	s.Require().NoError(s.store.Save(ctx, s.recipient))

	s.Run("open request is removed", func() {
		s.Require().NoError(s.service.Delete(ctx, s.recipient.ID, request.ID))

		stored, err := s.store.Get(ctx, s.recipient.ID)
		s.Require().NoError(err)
		_, ok := stored.BloodRequestByID(request.ID)
		s.False(ok)
	})

	s.Run("accepted request is immutable", func() {
		err := s.service.Delete(ctx, s.recipient.ID, accepted.ID)
		s.Require().Error(err)
		s.Equal(errors.KindConflict, errors.KindOf(err))
		s.Equal(errors.DeleteAcceptedRequest, errors.As(err).Message)
	})

	s.Run("unknown request", func() {
		err := s.service.Delete(ctx, s.recipient.ID, primitive.NewObjectID())
		s.Require().Error(err)
		s.Equal(errors.KindNotFound, errors.KindOf(err))
	})
}

func (s *RequestServiceSuite) TestDeleteRaceWithAcceptance() {
	ctx := context.Background()

	request := openRequest(testTime.AddDate(0, 0, -1))
	s.recipient.PutBloodRequest(request)
	s.Require().NoError(s.store.Save(ctx, s.recipient))

	// Recipient as the deleter read it, request still open.
	snapshot, err := s.store.Get(ctx, s.recipient.ID)
	s.Require().NoError(err)

	// A donor accepts behind the deleter's back.
	donorID := primitive.NewObjectID()
	accepted := request
	accepted.IsAccepted = true
	accepted.AcceptedBy = &donorID
	live, err := s.store.Get(ctx, s.recipient.ID)
	s.Require().NoError(err)
	live.PutBloodRequest(accepted)
	s.Require().NoError(s.store.SaveIfRequestOpen(ctx, live, request.ID))

	staleStore := &staleUserStore{
		UserInMemoryStore: s.store,
		staleID:           s.recipient.ID,
		stale:             snapshot,
	}
	racing := NewRequestService(staleStore, nil, testTracer(), testLogger(), testClock)

	err = racing.Delete(ctx, s.recipient.ID, request.ID)
	s.Require().Error(err)
	s.Equal(errors.KindConflict, errors.KindOf(err))
	s.Equal(errors.DeleteAcceptedRequest, errors.As(err).Message)

	// The accepted request survived the stale delete.
	stored, err := s.store.Get(ctx, s.recipient.ID)
	s.Require().NoError(err)
	storedRequest, ok := stored.BloodRequestByID(request.ID)
	s.Require().True(ok)
	s.True(storedRequest.IsAccepted)
	s.Require().NotNil(storedRequest.AcceptedBy)
	s.Equal(donorID, *storedRequest.AcceptedBy)
}
