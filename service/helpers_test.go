package application

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/trace"

	"github.com/TalhaJubaerPrantor/neoblood-backend/domain"
	"github.com/TalhaJubaerPrantor/neoblood-backend/store"
)

var testTime = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testTime }

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testTracer() trace.Tracer {
	return trace.NewNoopTracerProvider().Tracer("test")
}

// staleUserStore serves one user from a fixed snapshot while all writes and
// every other read go to the live store, reproducing a read that raced a
// concurrent commit.
type staleUserStore struct {
	*store.UserInMemoryStore
	staleID primitive.ObjectID
	stale   *domain.User
}

func (s *staleUserStore) Get(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	if id == s.staleID {
		return s.stale, nil
	}
	return s.UserInMemoryStore.Get(ctx, id)
}

func seedUser(userStore *store.UserInMemoryStore, user *domain.User) *domain.User {
	if user.Availability == "" {
		user.Availability = domain.Available
	}
	user.IsActive = true
	if user.BloodRequests == nil {
		user.BloodRequests = map[string]domain.BloodRequest{}
	}
	if user.ConnectionRequests == nil {
		user.ConnectionRequests = map[string]domain.ConnectionRequest{}
	}
	if user.AcceptedConnections == nil {
		user.AcceptedConnections = map[string]domain.AcceptedConnection{}
	}
	if user.DonationHistory == nil {
		user.DonationHistory = []domain.DonationRecord{}
	}
	if user.Circle == nil {
		user.Circle = []domain.CircleEntry{}
	}
	user.CreatedAt = testTime
	user.UpdatedAt = testTime

	saved, err := userStore.Register(context.Background(), user)
	if err != nil {
		panic(err)
	}
	return saved
}

func openRequest(at time.Time) domain.BloodRequest {
	return domain.BloodRequest{
		ID:         primitive.NewObjectID(),
		BloodGroup: domain.OPositive,
		Date:       "2024-05-20",
		Time:       "10:00",
		Phone:      "01712345678",
		District:   "Dhaka",
		Thana:      "Dhanmondi",
		Location:   "Dhaka Medical College",
		CreatedAt:  at,
	}
}

func pendingConnection(requester *domain.User, request domain.BloodRequest, at time.Time) domain.ConnectionRequest {
	return domain.ConnectionRequest{
		ID:             primitive.NewObjectID(),
		RequesterID:    requester.ID,
		RequesterName:  requester.Name,
		RequesterPhone: requester.Phone,
		RequestID:      request.ID,
		BloodGroup:     request.BloodGroup,
		Date:           request.Date,
		Time:           request.Time,
		Location:       request.Location,
		District:       request.District,
		Thana:          request.Thana,
		Phone:          request.Phone,
		Status:         domain.Pending,
		CreatedAt:      at,
	}
}
