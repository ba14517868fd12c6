package store

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/TalhaJubaerPrantor/neoblood-backend/domain"
	"github.com/TalhaJubaerPrantor/neoblood-backend/errors"
)

// UserInMemoryStore mirrors the Mongo store for tests and local runs. Reads
// hand out deep copies and writes swap whole documents under one lock, which
// reproduces the per-document atomicity the service relies on.
type UserInMemoryStore struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]*domain.User
}

func NewUserInMemoryStore() *UserInMemoryStore {
	return &UserInMemoryStore{
		users: map[primitive.ObjectID]*domain.User{},
	}
}

func (store *UserInMemoryStore) Get(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	user, ok := store.users[id]
	if !ok {
		return nil, errors.NotFound(errors.UserNotFound)
	}
	return clone(user)
}

func (store *UserInMemoryStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return store.findOne(func(user *domain.User) bool {
		return user.Email == email
	})
}

func (store *UserInMemoryStore) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return store.findOne(func(user *domain.User) bool {
		return user.Phone == phone
	})
}

func (store *UserInMemoryStore) GetAll(ctx context.Context) ([]*domain.User, error) {
	return store.find(func(user *domain.User) bool {
		return true
	})
}

func (store *UserInMemoryStore) GetDonors(ctx context.Context, filter domain.DonorFilter) ([]*domain.User, error) {
	donors, err := store.find(func(user *domain.User) bool {
		if user.BloodGroup != filter.BloodGroup || user.Availability == domain.Unavailable || !user.IsActive {
			return false
		}
		if filter.District != "" && user.District != filter.District {
			return false
		}
		if filter.Thana != "" && user.Thana != filter.Thana {
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sortByExperience(donors)
	return donors, nil
}

func (store *UserInMemoryStore) GetWithOpenRequests(ctx context.Context) ([]*domain.User, error) {
	return store.find(func(user *domain.User) bool {
		return len(user.BloodRequests) > 0
	})
}

func (store *UserInMemoryStore) GetWithLocation(ctx context.Context, group domain.BloodGroup) ([]*domain.User, error) {
	users, err := store.find(func(user *domain.User) bool {
		if user.LocationGeo == nil || user.LocationGeo.Latitude == nil || user.LocationGeo.Longitude == nil {
			return false
		}
		if !user.IsActive || user.Availability == domain.Unavailable {
			return false
		}
		return group == "" || user.BloodGroup == group
	})
	if err != nil {
		return nil, err
	}
	sortByExperience(users)
	return users, nil
}

func (store *UserInMemoryStore) Register(ctx context.Context, user *domain.User) (*domain.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	user.ID = primitive.NewObjectID()
	stored, err := clone(user)
	if err != nil {
		return nil, err
	}
	store.users[user.ID] = stored
	return user, nil
}

func (store *UserInMemoryStore) Save(ctx context.Context, user *domain.User) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, ok := store.users[user.ID]; !ok {
		return errors.NotFound(errors.UserNotFound)
	}
	return store.replace(user)
}

func (store *UserInMemoryStore) SaveIfConnectionPending(ctx context.Context, user *domain.User, connectionID primitive.ObjectID) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	stored, ok := store.users[user.ID]
	if !ok {
		return errors.NotFound(errors.UserNotFound)
	}
	request, ok := stored.ConnectionRequestByID(connectionID)
	if !ok || request.Status != domain.Pending {
		return errors.Conflict(errors.ConnectionRequestNotFound)
	}
	return store.replace(user)
}

func (store *UserInMemoryStore) SaveIfRequestOpen(ctx context.Context, user *domain.User, requestID primitive.ObjectID) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	stored, ok := store.users[user.ID]
	if !ok {
		return errors.NotFound(errors.UserNotFound)
	}
	request, ok := stored.BloodRequestByID(requestID)
	if !ok || request.IsAccepted {
		return errors.Conflict(errors.AcceptedBySomeoneElse)
	}
	return store.replace(user)
}

func (store *UserInMemoryStore) replace(user *domain.User) error {
	stored, err := clone(user)
	if err != nil {
		return err
	}
	store.users[user.ID] = stored
	return nil
}

func (store *UserInMemoryStore) findOne(match func(*domain.User) bool) (*domain.User, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	for _, user := range store.users {
		if match(user) {
			return clone(user)
		}
	}
	return nil, errors.NotFound(errors.UserNotFound)
}

func (store *UserInMemoryStore) find(match func(*domain.User) bool) ([]*domain.User, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	var users []*domain.User
	for _, user := range store.users {
		if !match(user) {
			continue
		}
		copied, err := clone(user)
		if err != nil {
			return nil, err
		}
		users = append(users, copied)
	}
	return users, nil
}

func sortByExperience(users []*domain.User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].TotalDonations != users[j].TotalDonations {
			return users[i].TotalDonations > users[j].TotalDonations
		}
		return users[i].Points > users[j].Points
	})
}

// clone round-trips through bson so stored documents and handed-out copies
// never share nested collections.
func clone(user *domain.User) (*domain.User, error) {
	raw, err := bson.Marshal(user)
	if err != nil {
		return nil, errors.Storage(err)
	}
	var copied domain.User
	if err := bson.Unmarshal(raw, &copied); err != nil {
		return nil, errors.Storage(err)
	}
	return &copied, nil
}
