package domain

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DonorFilter struct {
	BloodGroup BloodGroup
	District   string
	Thana      string
}

type RequestFilter struct {
	BloodGroup BloodGroup
	District   string
	Thana      string
}

func (filter RequestFilter) IsEmpty() bool {
	return filter.BloodGroup == "" && filter.District == "" && filter.Thana == ""
}

// UserStore persists whole User documents. Every read returns an independent
// copy and every save replaces the document as one atomic unit, so nested
// sub-collections are never partially written. The two conditional saves give
// compare-and-swap semantics for the acceptance paths.
type UserStore interface {
	Get(ctx context.Context, id primitive.ObjectID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByPhone(ctx context.Context, phone string) (*User, error)
	GetAll(ctx context.Context) ([]*User, error)
	GetDonors(ctx context.Context, filter DonorFilter) ([]*User, error)
	GetWithOpenRequests(ctx context.Context) ([]*User, error)
	GetWithLocation(ctx context.Context, group BloodGroup) ([]*User, error)
	Register(ctx context.Context, user *User) (*User, error)
	Save(ctx context.Context, user *User) error
	// SaveIfConnectionPending replaces the document only while the given
	// connection request is still pending in storage; fails with Conflict
	// otherwise.
	SaveIfConnectionPending(ctx context.Context, user *User, connectionID primitive.ObjectID) error
	// SaveIfRequestOpen replaces the document only while the given blood
	// request is still unaccepted in storage; fails with Conflict otherwise.
	SaveIfRequestOpen(ctx context.Context, user *User, requestID primitive.ObjectID) error
}

// FeedCache caches the unfiltered open-request feed. A nil cache is valid;
// callers fall back to the store.
type FeedCache interface {
	GetOpenRequests(ctx context.Context) ([]OpenBloodRequest, error)
	SetOpenRequests(ctx context.Context, requests []OpenBloodRequest) error
	Invalidate(ctx context.Context) error
}
