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

type UserServiceSuite struct {
	suite.Suite
	store   *store.UserInMemoryStore
	service *UserService
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceSuite))
}

func (s *UserServiceSuite) SetupTest() {
	s.store = store.NewUserInMemoryStore()
	eligibility := NewEligibilityService(s.store, testTracer(), testLogger(), testClock)
	s.service = NewUserService(s.store, eligibility, testTracer(), testLogger(), testClock)
}

func (s *UserServiceSuite) TestSearchByPhone() {
	ctx := context.Background()

	seedUser(s.store, &domain.User{
		Name:       "Rahim",
		Email:      "rahim@example.com",
		Password:   "secret",
		Phone:      "01712345678",
		BloodGroup: domain.OPositive,
	})

	s.Run("found", func() {
		user, err := s.service.SearchByPhone(ctx, "01712345678")
		s.Require().NoError(err)
		s.Equal("Rahim", user.Name)
	})

	s.Run("empty phone", func() {
		_, err := s.service.SearchByPhone(ctx, "")
		s.Require().Error(err)
		s.Equal(errors.KindValidation, errors.KindOf(err))
	})

	s.Run("malformed phone", func() {
		_, err := s.service.SearchByPhone(ctx, "0211234567")
		s.Require().Error(err)
		s.Equal(errors.KindValidation, errors.KindOf(err))
		s.Equal(errors.InvalidPhoneFormat, errors.As(err).Message)
	})

	s.Run("no user behind the phone", func() {
		_, err := s.service.SearchByPhone(ctx, "01912345678")
		s.Require().Error(err)
		s.Equal(errors.KindNotFound, errors.KindOf(err))
		s.Equal(errors.PhoneNotFound, errors.As(err).Message)
	})
}

func (s *UserServiceSuite) TestUpdateLocation() {
	ctx := context.Background()

	lat, lng := 23.8103, 90.4125
	user := seedUser(s.store, &domain.User{
		Name:       "Rahim",
		Email:      "rahim@example.com",
		Password:   "secret",
		BloodGroup: domain.OPositive,
		LocationGeo: &domain.GeoLocation{
			Latitude:  &lat,
			Longitude: &lng,
			Name:      "Dhaka",
			IsEnabled: true,
		},
	})

	s.Run("partial patch keeps absent fields", func() {
		updated, err := s.service.UpdateLocation(ctx, user.ID, map[string]interface{}{
			"name": "Dhanmondi",
		})
		s.Require().NoError(err)
		s.Equal("Dhanmondi", updated.LocationGeo.Name)
		s.Require().NotNil(updated.LocationGeo.Latitude)
		s.Equal(lat, *updated.LocationGeo.Latitude)
		s.True(updated.LocationGeo.IsEnabled)
	})

	s.Run("coordinates patch", func() {
		updated, err := s.service.UpdateLocation(ctx, user.ID, map[string]interface{}{
			"latitude":  22.3569,
			"longitude": 91.7832,
		})
		s.Require().NoError(err)
		s.Equal(22.3569, *updated.LocationGeo.Latitude)
		s.Equal(91.7832, *updated.LocationGeo.Longitude)
	})

	s.Run("unknown user", func() {
		_, err := s.service.UpdateLocation(ctx, primitive.NewObjectID(), map[string]interface{}{})
		s.Require().Error(err)
		s.Equal(errors.KindNotFound, errors.KindOf(err))
	})
}

func (s *UserServiceSuite) TestDonationHistory() {
	ctx := context.Background()

	recipient := seedUser(s.store, &domain.User{
		Name:       "Rahim",
		Email:      "rahim@example.com",
		Password:   "secret",
		Phone:      "01712345678",
		BloodGroup: domain.OPositive,
	})
	donor := seedUser(s.store, &domain.User{
		Name:       "Karim",
		Email:      "karim@example.com",
		Password:   "secret",
		BloodGroup: domain.OPositive,
		DonationHistory: []domain.DonationRecord{
			{
				ID:          primitive.NewObjectID(),
				Name:        "Rahim",
				BloodGroup:  domain.OPositive,
				Date:        "2024-01-10",
				Location:    "Dhaka Medical College",
				RecipientID: recipient.ID,
			},
			{
				ID:         primitive.NewObjectID(),
				Name:       "Walk-in",
				BloodGroup: domain.OPositive,
				Date:       "2024-03-05",
				Location:   "Chattogram",
			},
		},
		TotalDonations: 2,
		Points:         60,
	})

	history, user, err := s.service.DonationHistory(ctx, donor.ID)
	s.Require().NoError(err)
	s.Equal(2, user.TotalDonations)
	s.Require().Len(history, 2)

	// Newest first; only the tracked recipient resolves to a contact card.
	s.Equal("2024-03-05", history[0].Date)
	s.Nil(history[0].Recipient)
	s.Equal("2024-01-10", history[1].Date)
	s.Require().NotNil(history[1].Recipient)
	s.Equal("Rahim", history[1].Recipient.Name)
	s.Equal("01712345678", history[1].Recipient.Phone)
}

func (s *UserServiceSuite) TestAvailableDonors() {
	ctx := context.Background()

	seedUser(s.store, &domain.User{
		Name:           "Karim",
		Email:          "karim@example.com",
		Password:       "secret",
		BloodGroup:     domain.OPositive,
		District:       "Dhaka",
		TotalDonations: 5,
	})
	seedUser(s.store, &domain.User{
		Name:       "Salma",
		Email:      "salma@example.com",
		Password:   "secret",
		BloodGroup: domain.OPositive,
		District:   "Dhaka",
	})

	cooling := testTime.AddDate(0, 2, 0)
	seedUser(s.store, &domain.User{
		Name:            "Nabil",
		Email:           "nabil@example.com",
		Password:        "secret",
		BloodGroup:      domain.OPositive,
		District:        "Dhaka",
		EligibilityDate: &cooling,
	})
	seedUser(s.store, &domain.User{
		Name:       "Mita",
		Email:      "mita@example.com",
		Password:   "secret",
		BloodGroup: domain.ABNegative,
		District:   "Dhaka",
	})

	s.Run("matching group, eligible only, most experienced first", func() {
		donors, err := s.service.AvailableDonors(ctx, domain.DonorFilter{BloodGroup: domain.OPositive})
		s.Require().NoError(err)
		s.Require().Len(donors, 2)
		s.Equal("Karim", donors[0].Name)
		s.Equal("Salma", donors[1].Name)
	})

	s.Run("district filter", func() {
		donors, err := s.service.AvailableDonors(ctx, domain.DonorFilter{
			BloodGroup: domain.OPositive,
			District:   "Chattogram",
		})
		s.Require().NoError(err)
		s.Empty(donors)
	})

	s.Run("blood group is required", func() {
		_, err := s.service.AvailableDonors(ctx, domain.DonorFilter{})
		s.Require().Error(err)
		s.Equal(errors.KindValidation, errors.KindOf(err))
	})
}

func (s *UserServiceSuite) TestUsersWithLocation() {
	ctx := context.Background()

	lat, lng := 23.8103, 90.4125
	seedUser(s.store, &domain.User{
		Name:       "Karim",
		Email:      "karim@example.com",
		Password:   "secret",
		BloodGroup: domain.OPositive,
		LocationGeo: &domain.GeoLocation{
			Latitude:  &lat,
			Longitude: &lng,
			IsEnabled: true,
		},
	})
	seedUser(s.store, &domain.User{
		Name:       "Salma",
		Email:      "salma@example.com",
		Password:   "secret",
		BloodGroup: domain.OPositive,
	})

	users, err := s.service.UsersWithLocation(ctx, domain.OPositive)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal("Karim", users[0].Name)
}
