package application

import (
	"context"
	"sort"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TalhaJubaerPrantor/neoblood-backend/domain"
	"github.com/TalhaJubaerPrantor/neoblood-backend/errors"
)

// UserService is the directory: profile reads, phone lookup, geo location
// updates and donor discovery.
type UserService struct {
	store       domain.UserStore
	eligibility *EligibilityService
	tracer      trace.Tracer
	logger      *logrus.Logger
	now         func() time.Time
}

func NewUserService(store domain.UserStore, eligibility *EligibilityService, tracer trace.Tracer, logger *logrus.Logger, now func() time.Time) *UserService {
	return &UserService{
		store:       store,
		eligibility: eligibility,
		tracer:      tracer,
		logger:      logger,
		now:         now,
	}
}

func (service *UserService) Get(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	ctx, span := service.tracer.Start(ctx, "UserService.Get")
	defer span.End()

	return service.store.Get(ctx, id)
}

func (service *UserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := service.tracer.Start(ctx, "UserService.GetByEmail")
	defer span.End()

	return service.store.GetByEmail(ctx, email)
}

func (service *UserService) SearchByPhone(ctx context.Context, phone string) (*domain.User, error) {
	ctx, span := service.tracer.Start(ctx, "UserService.SearchByPhone")
	defer span.End()

	if phone == "" {
		return nil, errors.Validation("Phone number is required")
	}
	if !domain.IsValidPhone(phone) {
		return nil, errors.Validation(errors.InvalidPhoneFormat)
	}

	user, err := service.store.GetByPhone(ctx, phone)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.KindOf(err) == errors.KindNotFound {
			return nil, errors.NotFound(errors.PhoneNotFound)
		}
		return nil, err
	}
	return user, nil
}

// UpdateLocation patches the geo location sub-document from a partial
// payload; absent fields keep their stored values.
func (service *UserService) UpdateLocation(ctx context.Context, userID primitive.ObjectID, patch map[string]interface{}) (*domain.User, error) {
	ctx, span := service.tracer.Start(ctx, "UserService.UpdateLocation")
	defer span.End()

	user, err := service.store.Get(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if user.LocationGeo == nil {
		user.LocationGeo = &domain.GeoLocation{}
	}
	if err := mapstructure.Decode(patch, user.LocationGeo); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Validation("Invalid locationGeo payload")
	}
	user.UpdatedAt = service.now()

	if err := service.store.Save(ctx, user); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return user, nil
}

// DonationHistory resolves each record's recipient through the directory at
// read time; missing recipients degrade to a nil card instead of failing the
// listing.
func (service *UserService) DonationHistory(ctx context.Context, userID primitive.ObjectID) ([]domain.DonationHistoryView, *domain.User, error) {
	ctx, span := service.tracer.Start(ctx, "UserService.DonationHistory")
	defer span.End()

	user, err := service.store.Get(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	history := make([]domain.DonationHistoryView, 0, len(user.DonationHistory))
	for _, record := range user.DonationHistory {
		view := domain.DonationHistoryView{DonationRecord: record}
		if !record.RecipientID.IsZero() {
			recipient, err := service.store.Get(ctx, record.RecipientID)
			if err == nil {
				view.Recipient = &domain.ContactCard{
					Name:       recipient.Name,
					Phone:      recipient.Phone,
					Email:      recipient.Email,
					BloodGroup: recipient.BloodGroup,
					Location:   recipient.Location,
				}
			} else if errors.KindOf(err) != errors.KindNotFound {
				span.SetStatus(codes.Error, err.Error())
				return nil, nil, err
			}
		}
		history = append(history, view)
	}

	sort.Slice(history, func(i, j int) bool {
		return history[i].Date > history[j].Date
	})
	return history, user, nil
}

// AvailableDonors lists donors matching the blood group (district and thana
// optional) who are available and currently eligible, most experienced first.
func (service *UserService) AvailableDonors(ctx context.Context, filter domain.DonorFilter) ([]*domain.User, error) {
	ctx, span := service.tracer.Start(ctx, "UserService.AvailableDonors")
	defer span.End()

	if !filter.BloodGroup.IsValid() {
		return nil, errors.Validation("Blood group is required")
	}

	donors, err := service.store.GetDonors(ctx, filter)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := service.now()
	eligible := make([]*domain.User, 0, len(donors))
	for _, donor := range donors {
		if donor.EligibilityDate != nil && donor.EligibilityDate.After(now) {
			continue
		}
		eligible = append(eligible, donor)
	}
	return eligible, nil
}

func (service *UserService) UsersWithLocation(ctx context.Context, group domain.BloodGroup) ([]*domain.User, error) {
	ctx, span := service.tracer.Start(ctx, "UserService.UsersWithLocation")
	defer span.End()

	users, err := service.store.GetWithLocation(ctx, group)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := service.now()
	eligible := make([]*domain.User, 0, len(users))
	for _, user := range users {
		if user.EligibilityDate != nil && user.EligibilityDate.After(now) {
			continue
		}
		eligible = append(eligible, user)
	}
	return eligible, nil
}
