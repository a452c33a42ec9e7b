package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification errors
var (
	ErrWebhookNotConfigured = errors.New("webhook url is not configured")
)

// Notification channels and delivery statuses
const (
	ChannelWebhook = "webhook"

	DeliveryStatusSent   = "sent"
	DeliveryStatusFailed = "failed"
)

// Preferences holds a user's notification preferences, one record per user
type Preferences struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"userId"`
	Email       string             `bson:"email,omitempty"`
	WebhookURL  string             `bson:"webhookUrl,omitempty"`
	OnArrival   bool               `bson:"onArrival"`
	OnDelay     bool               `bson:"onDelay"`
	OnStored    bool               `bson:"onStored"`
	OnCancelled bool               `bson:"onCancelled"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

// DefaultPreferences returns the preferences applied to users who have
// never saved their own: every shipment event opted in, no endpoints set
func DefaultPreferences(userID string) *Preferences {
	return &Preferences{
		UserID:      userID,
		OnArrival:   true,
		OnDelay:     true,
		OnStored:    true,
		OnCancelled: true,
		UpdatedAt:   time.Now().UTC(),
	}
}

// WantsEvent reports whether the user opted in to the given event type
func (p *Preferences) WantsEvent(eventType string) bool {
	switch eventType {
	case "imports.shipment.arrived":
		return p.OnArrival
	case "imports.shipment.delayed":
		return p.OnDelay
	case "imports.shipment.stored":
		return p.OnStored
	case "imports.shipment.cancelled":
		return p.OnCancelled
	default:
		return false
	}
}

// Delivery records one notification dispatch attempt, successful or not
type Delivery struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	DeliveryID string             `bson:"deliveryId"`
	UserID     string             `bson:"userId"`
	EventType  string             `bson:"eventType"`
	Subject    string             `bson:"subject"`
	Message    string             `bson:"message"`
	Channel    string             `bson:"channel"`
	Status     string             `bson:"status"`
	Error      string             `bson:"error,omitempty"`
	SentAt     time.Time          `bson:"sentAt"`

	// Domain events (not persisted)
	DomainEvents []DomainEvent `bson:"-"`
}

// NewDelivery records the outcome of a dispatch attempt. A non-empty
// failureReason marks the delivery as failed.
func NewDelivery(userID, eventType, subject, message, failureReason string) *Delivery {
	now := time.Now().UTC()
	status := DeliveryStatusSent
	if failureReason != "" {
		status = DeliveryStatusFailed
	}

	delivery := &Delivery{
		DeliveryID:   uuid.New().String(),
		UserID:       userID,
		EventType:    eventType,
		Subject:      subject,
		Message:      message,
		Channel:      ChannelWebhook,
		Status:       status,
		Error:        failureReason,
		SentAt:       now,
		DomainEvents: []DomainEvent{},
	}

	delivery.AddDomainEvent(NotificationDispatchedEvent{
		DeliveryID:   delivery.DeliveryID,
		UserID:       userID,
		TriggeredBy:  eventType,
		Channel:      delivery.Channel,
		Status:       status,
		DispatchedAt: now,
	})

	return delivery
}

// AddDomainEvent adds a domain event to the delivery record
func (d *Delivery) AddDomainEvent(event DomainEvent) {
	d.DomainEvents = append(d.DomainEvents, event)
}

// GetDomainEvents returns the accumulated domain events
func (d *Delivery) GetDomainEvents() []DomainEvent {
	return d.DomainEvents
}

// ClearDomainEvents clears the accumulated domain events
func (d *Delivery) ClearDomainEvents() {
	d.DomainEvents = []DomainEvent{}
}
