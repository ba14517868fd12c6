package domain

import (
	"encoding/json"
	"io"
	"regexp"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BloodGroup string

const (
	APositive  BloodGroup = "A+"
	ANegative  BloodGroup = "A-"
	BPositive  BloodGroup = "B+"
	BNegative  BloodGroup = "B-"
	ABPositive BloodGroup = "AB+"
	ABNegative BloodGroup = "AB-"
	OPositive  BloodGroup = "O+"
	ONegative  BloodGroup = "O-"
)

func (group BloodGroup) IsValid() bool {
	switch group {
	case APositive, ANegative, BPositive, BNegative, ABPositive, ABNegative, OPositive, ONegative:
		return true
	}
	return false
}

type Availability string

const (
	Available   Availability = "Available"
	Unavailable Availability = "Unavailable"
)

type ConnectionStatus string

const (
	Pending  ConnectionStatus = "pending"
	Accepted ConnectionStatus = "accepted"
	Rejected ConnectionStatus = "rejected"
)

type GeoLocation struct {
	Latitude  *float64 `bson:"latitude,omitempty" json:"latitude,omitempty" mapstructure:"latitude"`
	Longitude *float64 `bson:"longitude,omitempty" json:"longitude,omitempty" mapstructure:"longitude"`
	Name      string   `bson:"name,omitempty" json:"name,omitempty" mapstructure:"name"`
	IsEnabled bool     `bson:"isEnabled" json:"isEnabled" mapstructure:"isEnabled"`
}

type DonationRecord struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	BloodGroup  BloodGroup         `bson:"bloodGroup" json:"bloodGroup"`
	Date        string             `bson:"date" json:"date"`
	Location    string             `bson:"location" json:"location"`
	RecipientID primitive.ObjectID `bson:"recipientId,omitempty" json:"recipientId,omitempty"`
}

type BloodRequest struct {
	ID             primitive.ObjectID  `bson:"_id" json:"id"`
	BloodGroup     BloodGroup          `bson:"bloodGroup" json:"bloodGroup"`
	Date           string              `bson:"date" json:"date"`
	Time           string              `bson:"time" json:"time"`
	Phone          string              `bson:"phone" json:"phone"`
	District       string              `bson:"district" json:"district"`
	Thana          string              `bson:"thana" json:"thana"`
	Location       string              `bson:"location" json:"location"`
	IsAccepted     bool                `bson:"isAccepted" json:"isAccepted"`
	AcceptedBy     *primitive.ObjectID `bson:"acceptedBy,omitempty" json:"acceptedBy,omitempty"`
	AcceptedByName string              `bson:"acceptedByName,omitempty" json:"acceptedByName,omitempty"`
	CreatedAt      time.Time           `bson:"createdAt" json:"createdAt"`
}

type ConnectionRequest struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	RequesterID    primitive.ObjectID `bson:"requesterId" json:"requesterId"`
	RequesterName  string             `bson:"requesterName" json:"requesterName"`
	RequesterPhone string             `bson:"requesterPhone,omitempty" json:"requesterPhone,omitempty"`
	RequestID      primitive.ObjectID `bson:"requestId" json:"requestId"`
	BloodGroup     BloodGroup         `bson:"bloodGroup" json:"bloodGroup"`
	Date           string             `bson:"date" json:"date"`
	Time           string             `bson:"time" json:"time"`
	Location       string             `bson:"location" json:"location"`
	District       string             `bson:"district" json:"district"`
	Thana          string             `bson:"thana" json:"thana"`
	Phone          string             `bson:"phone" json:"phone"`
	Status         ConnectionStatus   `bson:"status" json:"status"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}

type AcceptedConnection struct {
	ID                  primitive.ObjectID `bson:"_id" json:"id"`
	UserID              primitive.ObjectID `bson:"userId" json:"userId"`
	Name                string             `bson:"name" json:"name"`
	Phone               string             `bson:"phone,omitempty" json:"phone,omitempty"`
	BloodGroup          BloodGroup         `bson:"bloodGroup,omitempty" json:"bloodGroup,omitempty"`
	ConnectionRequestID primitive.ObjectID `bson:"connectionRequestId" json:"connectionRequestId"`
	BloodRequestID      primitive.ObjectID `bson:"bloodRequestId" json:"bloodRequestId"`
	AcceptedAt          time.Time          `bson:"acceptedAt" json:"acceptedAt"`
}

type CircleEntry struct {
	UserID         primitive.ObjectID `bson:"userId" json:"userId"`
	Name           string             `bson:"name" json:"name"`
	Phone          string             `bson:"phone" json:"phone"`
	BloodGroup     BloodGroup         `bson:"bloodGroup" json:"bloodGroup"`
	Location       string             `bson:"location,omitempty" json:"location,omitempty"`
	LastDonation   string             `bson:"lastDonation,omitempty" json:"lastDonation,omitempty"`
	TotalDonations int                `bson:"totalDonations" json:"totalDonations"`
	AddedAt        time.Time          `bson:"addedAt" json:"addedAt"`
}

// User is the aggregate document. The request, connection and accepted
// connection sub-collections are keyed by their hex ObjectID so lookups by id
// stay O(1); listing order is restored by sorting on createdAt.
type User struct {
	ID                  primitive.ObjectID            `bson:"_id" json:"id"`
	Name                string                        `bson:"name" json:"name" validate:"required"`
	Email               string                        `bson:"email" json:"email" validate:"required,email"`
	Password            string                        `bson:"password" json:"password,omitempty" validate:"required"`
	Phone               string                        `bson:"phone,omitempty" json:"phone,omitempty" validate:"omitempty,bdphone"`
	Age                 int                           `bson:"age,omitempty" json:"age,omitempty"`
	Weight              int                           `bson:"weight,omitempty" json:"weight,omitempty"`
	Address             string                        `bson:"address,omitempty" json:"address,omitempty"`
	District            string                        `bson:"district,omitempty" json:"district,omitempty"`
	Thana               string                        `bson:"thana,omitempty" json:"thana,omitempty"`
	Location            string                        `bson:"location,omitempty" json:"location,omitempty"`
	LocationGeo         *GeoLocation                  `bson:"locationGeo,omitempty" json:"locationGeo,omitempty"`
	BloodGroup          BloodGroup                    `bson:"bloodGroup" json:"bloodGroup" validate:"required,bloodgroup"`
	Availability        Availability                  `bson:"availability" json:"availability"`
	HealthStatus        string                        `bson:"healthStatus,omitempty" json:"healthStatus,omitempty"`
	LastDonation        string                        `bson:"lastDonation,omitempty" json:"lastDonation,omitempty"`
	EligibilityDate     *time.Time                    `bson:"eligibilityDate,omitempty" json:"eligibilityDate,omitempty"`
	TotalDonations      int                           `bson:"totalDonations" json:"totalDonations"`
	Points              int                           `bson:"points" json:"points"`
	DonationHistory     []DonationRecord              `bson:"donationHistory" json:"donationHistory"`
	BloodRequests       map[string]BloodRequest       `bson:"bloodRequests" json:"bloodRequests"`
	ConnectionRequests  map[string]ConnectionRequest  `bson:"connectionRequests" json:"connectionRequests"`
	AcceptedConnections map[string]AcceptedConnection `bson:"acceptedConnections" json:"acceptedConnections"`
	Circle              []CircleEntry                 `bson:"circle" json:"circle"`
	Role                string                        `bson:"role" json:"role"`
	IsActive            bool                          `bson:"isActive" json:"isActive"`
	CreatedAt           time.Time                     `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time                     `bson:"updatedAt" json:"updatedAt"`
}

func (user *User) BloodRequestByID(id primitive.ObjectID) (BloodRequest, bool) {
	request, ok := user.BloodRequests[id.Hex()]
	return request, ok
}

func (user *User) PutBloodRequest(request BloodRequest) {
	if user.BloodRequests == nil {
		user.BloodRequests = map[string]BloodRequest{}
	}
	user.BloodRequests[request.ID.Hex()] = request
}

func (user *User) RemoveBloodRequest(id primitive.ObjectID) {
	delete(user.BloodRequests, id.Hex())
}

func (user *User) ConnectionRequestByID(id primitive.ObjectID) (ConnectionRequest, bool) {
	request, ok := user.ConnectionRequests[id.Hex()]
	return request, ok
}

func (user *User) PutConnectionRequest(request ConnectionRequest) {
	if user.ConnectionRequests == nil {
		user.ConnectionRequests = map[string]ConnectionRequest{}
	}
	user.ConnectionRequests[request.ID.Hex()] = request
}

// HasPendingConnectionFrom reports whether a pending connection request for
// the same (requester, blood request) pair is already parked on this user.
func (user *User) HasPendingConnectionFrom(requesterID, requestID primitive.ObjectID) bool {
	for _, request := range user.ConnectionRequests {
		if request.RequesterID == requesterID && request.RequestID == requestID && request.Status == Pending {
			return true
		}
	}
	return false
}

// AddAcceptedConnection appends the entry unless one for the same
// (counterpart user, blood request) pair already exists. Returns false when
// the entry was already present.
func (user *User) AddAcceptedConnection(connection AcceptedConnection) bool {
	for _, existing := range user.AcceptedConnections {
		if existing.UserID == connection.UserID && existing.BloodRequestID == connection.BloodRequestID {
			return false
		}
	}
	if user.AcceptedConnections == nil {
		user.AcceptedConnections = map[string]AcceptedConnection{}
	}
	user.AcceptedConnections[connection.ID.Hex()] = connection
	return true
}

func (user *User) InCircle(counterpartID primitive.ObjectID) bool {
	for _, entry := range user.Circle {
		if entry.UserID == counterpartID {
			return true
		}
	}
	return false
}

func (user *User) RemoveFromCircle(counterpartID primitive.ObjectID) bool {
	for i, entry := range user.Circle {
		if entry.UserID == counterpartID {
			user.Circle = append(user.Circle[:i], user.Circle[i+1:]...)
			return true
		}
	}
	return false
}

func (user *User) BloodRequestsNewestFirst() []BloodRequest {
	requests := make([]BloodRequest, 0, len(user.BloodRequests))
	for _, request := range user.BloodRequests {
		requests = append(requests, request)
	}
	sort.Slice(requests, func(i, j int) bool {
		if requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].ID.Hex() > requests[j].ID.Hex()
		}
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests
}

// ConnectionRequestsNewestFirst lists connection requests, optionally
// filtered by status ("" keeps everything), newest first.
func (user *User) ConnectionRequestsNewestFirst(status ConnectionStatus) []ConnectionRequest {
	requests := make([]ConnectionRequest, 0, len(user.ConnectionRequests))
	for _, request := range user.ConnectionRequests {
		if status != "" && request.Status != status {
			continue
		}
		requests = append(requests, request)
	}
	sort.Slice(requests, func(i, j int) bool {
		if requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].ID.Hex() > requests[j].ID.Hex()
		}
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests
}

var bdPhoneRegex = regexp.MustCompile(`^01[3-9]\d{8}$`)

func IsValidPhone(phone string) bool {
	return bdPhoneRegex.MatchString(phone)
}

func (user *User) Validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("bloodgroup", bloodGroupField)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("bdphone", bdPhoneField)
	if err != nil {
		return err
	}

	return validate.Struct(user)
}

func bloodGroupField(fl validator.FieldLevel) bool {
	return BloodGroup(fl.Field().String()).IsValid()
}

func bdPhoneField(fl validator.FieldLevel) bool {
	return IsValidPhone(fl.Field().String())
}

func (user *User) FromJSON(reader io.Reader) error {
	d := json.NewDecoder(reader)
	return d.Decode(user)
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Claims struct {
	UserID    primitive.ObjectID `json:"user_id"`
	Email     string             `json:"email"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// OpenBloodRequest is the flattened feed entry served to donors browsing
// open requests across all users.
type OpenBloodRequest struct {
	ID                  primitive.ObjectID `bson:"_id" json:"id"`
	RequesterID         primitive.ObjectID `bson:"requesterId" json:"requesterId"`
	RequesterName       string             `bson:"requesterName" json:"requesterName"`
	RequesterPhone      string             `bson:"requesterPhone,omitempty" json:"requesterPhone,omitempty"`
	RequesterEmail      string             `bson:"requesterEmail,omitempty" json:"requesterEmail,omitempty"`
	RequesterBloodGroup BloodGroup         `bson:"requesterBloodGroup,omitempty" json:"requesterBloodGroup,omitempty"`
	RequesterLocation   string             `bson:"requesterLocation,omitempty" json:"requesterLocation,omitempty"`
	BloodGroup          BloodGroup         `bson:"bloodGroup" json:"bloodGroup"`
	Date                string             `bson:"date" json:"date"`
	Time                string             `bson:"time" json:"time"`
	Phone               string             `bson:"phone" json:"phone"`
	District            string             `bson:"district" json:"district"`
	Thana               string             `bson:"thana" json:"thana"`
	Location            string             `bson:"location" json:"location"`
	IsAccepted          bool               `bson:"isAccepted" json:"isAccepted"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
}

type ContactCard struct {
	Name       string     `json:"name"`
	Phone      string     `json:"phone,omitempty"`
	Email      string     `json:"email,omitempty"`
	BloodGroup BloodGroup `json:"bloodGroup,omitempty"`
	Location   string     `json:"location,omitempty"`
}

// DonationHistoryView is a DonationRecord with the recipient resolved through
// the directory at read time.
type DonationHistoryView struct {
	DonationRecord
	Recipient *ContactCard `json:"recipient"`
}

// EligibilityStatus is the evaluator's answer. DaysRemaining is zero when the
// donor is eligible.
type EligibilityStatus struct {
	IsEligible      bool         `json:"isEligible"`
	DaysRemaining   int          `json:"daysRemaining"`
	Availability    Availability `json:"availability"`
	EligibilityDate *time.Time   `json:"eligibilityDate,omitempty"`
	LastDonation    string       `json:"lastDonation,omitempty"`
}
