package application

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TalhaJubaerPrantor/neoblood-backend/domain"
	"github.com/TalhaJubaerPrantor/neoblood-backend/errors"
)

const (
	moderatedMatchPoints   = 50
	directMatchPoints      = 10
	donationCooldownMonths = 4
)

// MatchService finalizes donor-recipient matches. Accept is the moderated
// path through a connection request; AcceptDirect is the legacy quick-accept
// that skips the mediator and the eligibility rules. Both mutate the donor's
// and the requester's documents sequentially: per-document writes are atomic,
// the pair is not.
type MatchService struct {
	store       domain.UserStore
	eligibility *EligibilityService
	cache       domain.FeedCache
	cb          *gobreaker.CircuitBreaker
	tracer      trace.Tracer
	logger      *logrus.Logger
	now         func() time.Time
}

type DonorSummary struct {
	Name            string              `json:"name"`
	TotalDonations  int                 `json:"totalDonations"`
	Points          int                 `json:"points"`
	Availability    domain.Availability `json:"availability"`
	EligibilityDate *time.Time          `json:"eligibilityDate,omitempty"`
}

type MatchResult struct {
	BloodRequest      domain.BloodRequest       `json:"bloodRequest"`
	ConnectionRequest *domain.ConnectionRequest `json:"connectionRequest,omitempty"`
	Donor             DonorSummary              `json:"donor"`
}

func NewMatchService(store domain.UserStore, eligibility *EligibilityService, cache domain.FeedCache, tracer trace.Tracer, logger *logrus.Logger, now func() time.Time) *MatchService {
	return &MatchService{
		store:       store,
		eligibility: eligibility,
		cache:       cache,
		cb:          CircuitBreaker("matchFeedCache", logger),
		tracer:      tracer,
		logger:      logger,
		now:         now,
	}
}

// Accept runs the five ordered precondition checks and only then mutates
// anything. The requester document is committed first, conditional on the
// blood request still being open in storage — that write is the arbiter of
// the first-acceptance-wins rule, so a donor losing the race is never
// credited. The donor document follows, conditional on the connection request
// still being pending. A failure of that second write leaves the request
// accepted without the donor's stats; the asymmetry is logged for manual
// reconciliation rather than papered over with a coordinator.
func (service *MatchService) Accept(ctx context.Context, donorID, connectionID primitive.ObjectID) (*MatchResult, error) {
	ctx, span := service.tracer.Start(ctx, "MatchService.Accept")
	defer span.End()

	donor, err := service.store.Get(ctx, donorID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	status, err := service.eligibility.Evaluate(ctx, donor)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !status.IsEligible {
		return nil, errors.Ineligible(status.DaysRemaining, fmt.Sprintf(
			"You are not eligible to donate yet. You can donate again in %d day(s) (after %s).",
			status.DaysRemaining, status.EligibilityDate.Format("2006-01-02")))
	}

	connection, ok := donor.ConnectionRequestByID(connectionID)
	if !ok {
		return nil, errors.NotFound(errors.ConnectionRequestNotFound)
	}
	if connection.Status != domain.Pending {
		return nil, errors.Conflictf("This request has already been %s", connection.Status)
	}

	requester, err := service.store.Get(ctx, connection.RequesterID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.KindOf(err) == errors.KindNotFound {
			return nil, errors.NotFound(errors.RequesterNotFound)
		}
		return nil, err
	}

	request, ok := requester.BloodRequestByID(connection.RequestID)
	if !ok {
		return nil, errors.NotFound(errors.BloodRequestNotFound)
	}
	if request.IsAccepted {
		// First acceptance wins; this one lost the race.
		return nil, errors.Conflict(errors.AcceptedBySomeoneElse)
	}

	now := service.now()

	request.IsAccepted = true
	request.AcceptedBy = &donorID
	request.AcceptedByName = donor.Name
	requester.PutBloodRequest(request)

	connection.Status = domain.Accepted
	donor.PutConnectionRequest(connection)

	donor.DonationHistory = append(donor.DonationHistory, domain.DonationRecord{
		ID:          primitive.NewObjectID(),
		Name:        requester.Name,
		BloodGroup:  connection.BloodGroup,
		Date:        connection.Date,
		Location:    connection.Location,
		RecipientID: connection.RequesterID,
	})
	donor.TotalDonations++
	donor.Points += moderatedMatchPoints
	donor.LastDonation = connection.Date
	eligibleAgain := now.AddDate(0, donationCooldownMonths, 0)
	donor.EligibilityDate = &eligibleAgain
	donor.Availability = domain.Unavailable

	donor.AddAcceptedConnection(domain.AcceptedConnection{
		ID:                  primitive.NewObjectID(),
		UserID:              connection.RequesterID,
		Name:                requester.Name,
		Phone:               requester.Phone,
		BloodGroup:          requester.BloodGroup,
		ConnectionRequestID: connectionID,
		BloodRequestID:      connection.RequestID,
		AcceptedAt:          now,
	})
	requester.AddAcceptedConnection(domain.AcceptedConnection{
		ID:                  primitive.NewObjectID(),
		UserID:              donorID,
		Name:                donor.Name,
		Phone:               donor.Phone,
		BloodGroup:          donor.BloodGroup,
		ConnectionRequestID: connectionID,
		BloodRequestID:      connection.RequestID,
		AcceptedAt:          now,
	})

	donor.UpdatedAt = now
	requester.UpdatedAt = now

	if err := service.store.SaveIfRequestOpen(ctx, requester, connection.RequestID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := service.store.SaveIfConnectionPending(ctx, donor, connectionID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		service.logger.WithFields(logrus.Fields{
			"donorId":     donorID.Hex(),
			"requesterId": requester.ID.Hex(),
			"requestId":   connection.RequestID.Hex(),
		}).Error("request accepted but donor write failed, manual reconciliation required")
		return nil, err
	}

	service.invalidateFeed(ctx)

	return &MatchResult{
		BloodRequest:      request,
		ConnectionRequest: &connection,
		Donor:             summarize(donor),
	}, nil
}

// AcceptDirect marks a blood request accepted without a connection request.
// It awards fewer points and leaves eligibility and availability alone.
func (service *MatchService) AcceptDirect(ctx context.Context, requesterID, requestID, donorID primitive.ObjectID) (*MatchResult, error) {
	ctx, span := service.tracer.Start(ctx, "MatchService.AcceptDirect")
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

	now := service.now()

	request.IsAccepted = true
	request.AcceptedBy = &donorID
	request.AcceptedByName = donor.Name
	requester.PutBloodRequest(request)
	requester.UpdatedAt = now

	donor.DonationHistory = append(donor.DonationHistory, domain.DonationRecord{
		ID:          primitive.NewObjectID(),
		Name:        requester.Name,
		BloodGroup:  request.BloodGroup,
		Date:        request.Date,
		Location:    request.Location,
		RecipientID: requesterID,
	})
	donor.TotalDonations++
	donor.Points += directMatchPoints
	donor.LastDonation = request.Date
	donor.UpdatedAt = now

	if err := service.store.SaveIfRequestOpen(ctx, requester, requestID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := service.store.Save(ctx, donor); err != nil {
		span.SetStatus(codes.Error, err.Error())
		service.logger.WithFields(logrus.Fields{
			"donorId":     donorID.Hex(),
			"requesterId": requesterID.Hex(),
			"requestId":   requestID.Hex(),
		}).Error("request accepted but donor stats write failed, manual reconciliation required")
		return nil, err
	}

	service.invalidateFeed(ctx)

	return &MatchResult{
		BloodRequest: request,
		Donor:        summarize(donor),
	}, nil
}

func (service *MatchService) invalidateFeed(ctx context.Context) {
	if service.cache == nil {
		return
	}
	_, err := service.cb.Execute(func() (interface{}, error) {
		return nil, service.cache.Invalidate(ctx)
	})
	if err != nil {
		service.logger.WithError(err).Warn("could not invalidate open-request feed cache")
	}
}

func summarize(donor *domain.User) DonorSummary {
	return DonorSummary{
		Name:            donor.Name,
		TotalDonations:  donor.TotalDonations,
		Points:          donor.Points,
		Availability:    donor.Availability,
		EligibilityDate: donor.EligibilityDate,
	}
}
