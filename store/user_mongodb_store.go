package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TalhaJubaerPrantor/neoblood-backend/domain"
	"github.com/TalhaJubaerPrantor/neoblood-backend/errors"
)

const (
	DATABASE   = "blooddonation"
	COLLECTION = "users"
)

type UserMongoDBStore struct {
	users  *mongo.Collection
	tracer trace.Tracer
}

func NewUserMongoDBStore(client *mongo.Client, tracer trace.Tracer) domain.UserStore {
	users := client.Database(DATABASE).Collection(COLLECTION)
	return &UserMongoDBStore{
		users:  users,
		tracer: tracer,
	}
}

func (store *UserMongoDBStore) Get(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	ctx, span := store.tracer.Start(ctx, "UserStore.Get")
	defer span.End()

	filter := bson.M{"_id": id}
	return store.filterOne(ctx, filter)
}

func (store *UserMongoDBStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := store.tracer.Start(ctx, "UserStore.GetByEmail")
	defer span.End()

	filter := bson.M{"email": email}
	return store.filterOne(ctx, filter)
}

func (store *UserMongoDBStore) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	ctx, span := store.tracer.Start(ctx, "UserStore.GetByPhone")
	defer span.End()

	filter := bson.M{"phone": phone}
	return store.filterOne(ctx, filter)
}

func (store *UserMongoDBStore) GetAll(ctx context.Context) ([]*domain.User, error) {
	ctx, span := store.tracer.Start(ctx, "UserStore.GetAll")
	defer span.End()

	filter := bson.D{{}}
	return store.filter(ctx, filter, nil)
}

func (store *UserMongoDBStore) GetDonors(ctx context.Context, donorFilter domain.DonorFilter) ([]*domain.User, error) {
	ctx, span := store.tracer.Start(ctx, "UserStore.GetDonors")
	defer span.End()

	filter := bson.M{
		"bloodGroup":   donorFilter.BloodGroup,
		"availability": bson.M{"$ne": domain.Unavailable},
		"isActive":     true,
	}
	if donorFilter.District != "" {
		filter["district"] = donorFilter.District
	}
	if donorFilter.Thana != "" {
		filter["thana"] = donorFilter.Thana
	}

	opts := options.Find().SetSort(bson.D{{Key: "totalDonations", Value: -1}, {Key: "points", Value: -1}})
	return store.filter(ctx, filter, opts)
}

func (store *UserMongoDBStore) GetWithOpenRequests(ctx context.Context) ([]*domain.User, error) {
	ctx, span := store.tracer.Start(ctx, "UserStore.GetWithOpenRequests")
	defer span.End()

	filter := bson.M{"bloodRequests": bson.M{"$exists": true, "$ne": bson.M{}}}
	return store.filter(ctx, filter, nil)
}

func (store *UserMongoDBStore) GetWithLocation(ctx context.Context, group domain.BloodGroup) ([]*domain.User, error) {
	ctx, span := store.tracer.Start(ctx, "UserStore.GetWithLocation")
	defer span.End()

	filter := bson.M{
		"locationGeo.latitude":  bson.M{"$exists": true, "$ne": nil},
		"locationGeo.longitude": bson.M{"$exists": true, "$ne": nil},
		"isActive":              bson.M{"$ne": false},
		"availability":          bson.M{"$ne": domain.Unavailable},
	}
	if group != "" {
		filter["bloodGroup"] = group
	}

	opts := options.Find().SetSort(bson.D{{Key: "totalDonations", Value: -1}, {Key: "points", Value: -1}})
	return store.filter(ctx, filter, opts)
}

func (store *UserMongoDBStore) Register(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, span := store.tracer.Start(ctx, "UserStore.Register")
	defer span.End()

	user.ID = primitive.NewObjectID()
	result, err := store.users.InsertOne(ctx, user)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Storage(err)
	}
	user.ID = result.InsertedID.(primitive.ObjectID)
	return user, nil
}

func (store *UserMongoDBStore) Save(ctx context.Context, user *domain.User) error {
	ctx, span := store.tracer.Start(ctx, "UserStore.Save")
	defer span.End()

	filter := bson.M{"_id": user.ID}
	result, err := store.users.ReplaceOne(ctx, filter, user)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return errors.Storage(err)
	}
	if result.MatchedCount == 0 {
		return errors.NotFound(errors.UserNotFound)
	}
	return nil
}

func (store *UserMongoDBStore) SaveIfConnectionPending(ctx context.Context, user *domain.User, connectionID primitive.ObjectID) error {
	ctx, span := store.tracer.Start(ctx, "UserStore.SaveIfConnectionPending")
	defer span.End()

	filter := bson.M{
		"_id": user.ID,
		fmt.Sprintf("connectionRequests.%s.status", connectionID.Hex()): domain.Pending,
	}
	result, err := store.users.ReplaceOne(ctx, filter, user)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return errors.Storage(err)
	}
	if result.MatchedCount == 0 {
		span.SetStatus(codes.Error, "connection request no longer pending")
		return errors.Conflict(errors.ConnectionRequestNotFound)
	}
	return nil
}

func (store *UserMongoDBStore) SaveIfRequestOpen(ctx context.Context, user *domain.User, requestID primitive.ObjectID) error {
	ctx, span := store.tracer.Start(ctx, "UserStore.SaveIfRequestOpen")
	defer span.End()

	filter := bson.M{
		"_id": user.ID,
		fmt.Sprintf("bloodRequests.%s.isAccepted", requestID.Hex()): false,
	}
	result, err := store.users.ReplaceOne(ctx, filter, user)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return errors.Storage(err)
	}
	if result.MatchedCount == 0 {
		span.SetStatus(codes.Error, "blood request no longer open")
		return errors.Conflict(errors.AcceptedBySomeoneElse)
	}
	return nil
}

func (store *UserMongoDBStore) filter(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]*domain.User, error) {
	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = store.users.Find(ctx, filter, opts)
	} else {
		cursor, err = store.users.Find(ctx, filter)
	}
	if err != nil {
		return nil, errors.Storage(err)
	}
	defer cursor.Close(ctx)
	return decode(ctx, cursor)
}

func (store *UserMongoDBStore) filterOne(ctx context.Context, filter interface{}) (*domain.User, error) {
	var user domain.User
	err := store.users.FindOne(ctx, filter).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, errors.NotFound(errors.UserNotFound)
	}
	if err != nil {
		return nil, errors.Storage(err)
	}
	return &user, nil
}

func decode(ctx context.Context, cursor *mongo.Cursor) (users []*domain.User, err error) {
	for cursor.Next(ctx) {
		var user domain.User
		err = cursor.Decode(&user)
		if err != nil {
			return nil, errors.Storage(err)
		}
		users = append(users, &user)
	}
	if err = cursor.Err(); err != nil {
		return nil, errors.Storage(err)
	}
	return users, nil
}
