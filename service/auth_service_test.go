package application

import (
	"context"
	"testing"

	"github.com/cristalhq/jwt/v4"
	"github.com/stretchr/testify/suite"

	"github.com/TalhaJubaerPrantor/neoblood-backend/authorization"
	"github.com/TalhaJubaerPrantor/neoblood-backend/domain"
	"github.com/TalhaJubaerPrantor/neoblood-backend/errors"
	"github.com/TalhaJubaerPrantor/neoblood-backend/store"
)

type AuthServiceSuite struct {
	suite.Suite
	store   *store.UserInMemoryStore
	service *AuthService
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.store = store.NewUserInMemoryStore()
	s.service = NewAuthService(s.store, []byte("test-secret"), testTracer(), testLogger(), testClock)
}

func (s *AuthServiceSuite) TestRegister() {
	ctx := context.Background()

	s.Run("defaults are applied", func() {
		user, err := s.service.Register(ctx, &domain.User{
			Name:       "Rahim",
			Email:      "rahim@example.com",
			Password:   "secret",
			Phone:      "01712345678",
			BloodGroup: domain.OPositive,
		})
		s.Require().NoError(err)
		s.False(user.ID.IsZero())
		s.Equal(domain.Available, user.Availability)
		s.Equal("user", user.Role)
		s.True(user.IsActive)
		s.Equal(0, user.TotalDonations)
		s.NotNil(user.BloodRequests)
		s.NotNil(user.ConnectionRequests)
		s.NotNil(user.AcceptedConnections)
	})

	s.Run("duplicate email", func() {
		_, err := s.service.Register(ctx, &domain.User{
			Name:       "Other",
			Email:      "rahim@example.com",
			Password:   "secret",
			BloodGroup: domain.APositive,
		})
		s.Require().Error(err)
		s.Equal(errors.KindConflict, errors.KindOf(err))
		s.Equal(errors.EmailAlreadyExist, errors.As(err).Message)
	})
}

func (s *AuthServiceSuite) TestRegisterValidation() {
	ctx := context.Background()

	s.Run("invalid email", func() {
		_, err := s.service.Register(ctx, &domain.User{
			Name:       "Rahim",
			Email:      "not-an-email",
			Password:   "secret",
			BloodGroup: domain.OPositive,
		})
		s.Require().Error(err)
		s.Equal(errors.KindValidation, errors.KindOf(err))
	})

	s.Run("invalid blood group", func() {
		_, err := s.service.Register(ctx, &domain.User{
			Name:       "Rahim",
			Email:      "rahim@example.com",
			Password:   "secret",
			BloodGroup: "C+",
		})
		s.Require().Error(err)
		s.Equal(errors.KindValidation, errors.KindOf(err))
	})

	s.Run("invalid phone", func() {
		_, err := s.service.Register(ctx, &domain.User{
			Name:       "Rahim",
			Email:      "rahim@example.com",
			Password:   "secret",
			Phone:      "12345",
			BloodGroup: domain.OPositive,
		})
		s.Require().Error(err)
		s.Equal(errors.KindValidation, errors.KindOf(err))
	})
}

func (s *AuthServiceSuite) TestLogin() {
	ctx := context.Background()

	_, err := s.service.Register(ctx, &domain.User{
		Name:       "Rahim",
		Email:      "rahim@example.com",
		Password:   "secret",
		BloodGroup: domain.OPositive,
	})
	s.Require().NoError(err)

	s.Run("valid credentials return a token", func() {
		user, token, err := s.service.Login(ctx, domain.Credentials{
			Email:    "rahim@example.com",
			Password: "secret",
		})
		s.Require().NoError(err)
		s.Equal("rahim@example.com", user.Email)
		s.NotEmpty(token)

		// The token verifies against the configured key.
		verifier, err := jwt.NewVerifierHS(jwt.HS256, []byte("test-secret"))
		s.Require().NoError(err)
		parsed, err := jwt.Parse([]byte(token), verifier)
		s.Require().NoError(err)
		claims, err := authorization.GetClaims(parsed)
		s.Require().NoError(err)
		s.Equal(user.ID, claims.UserID)
		s.Equal("rahim@example.com", claims.Email)
	})

	s.Run("wrong password", func() {
		_, _, err := s.service.Login(ctx, domain.Credentials{
			Email:    "rahim@example.com",
			Password: "wrong",
		})
		s.Require().Error(err)
		s.Equal(errors.KindValidation, errors.KindOf(err))
		s.Equal(errors.InvalidCredentials, errors.As(err).Message)
	})

	s.Run("unknown email", func() {
		_, _, err := s.service.Login(ctx, domain.Credentials{
			Email:    "ghost@example.com",
			Password: "secret",
		})
		s.Require().Error(err)
		s.Equal(errors.KindValidation, errors.KindOf(err))
		s.Equal(errors.InvalidCredentials, errors.As(err).Message)
	})
}
