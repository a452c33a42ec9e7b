package application

import (
	"context"
	"fmt"
	"time"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/cloudevents"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/errors"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/logging"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/resilience"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/domain"
)

// Notification is the JSON payload pushed to a user's webhook
type Notification struct {
	Subject     string    `json:"subject"`
	Message     string    `json:"message"`
	EventType   string    `json:"eventType"`
	ShipmentRef string    `json:"shipmentRef,omitempty"`
	SentAt      time.Time `json:"sentAt"`
}

// Notifier pushes notifications to a webhook endpoint
type Notifier interface {
	Send(ctx context.Context, webhookURL string, notification Notification) error
}

// NotificationApplicationService handles preferences and dispatching
type NotificationApplicationService struct {
	prefsRepo    domain.PreferencesRepository
	deliveryRepo domain.DeliveryRepository
	notifier     Notifier
	logger       *logging.Logger
}

// NewNotificationApplicationService creates a new NotificationApplicationService
func NewNotificationApplicationService(
	prefsRepo domain.PreferencesRepository,
	deliveryRepo domain.DeliveryRepository,
	notifier Notifier,
	logger *logging.Logger,
) *NotificationApplicationService {
	return &NotificationApplicationService{
		prefsRepo:    prefsRepo,
		deliveryRepo: deliveryRepo,
		notifier:     notifier,
		logger:       logger,
	}
}

// GetPreferences returns the user's preferences, falling back to defaults
// when the user never saved any
func (s *NotificationApplicationService) GetPreferences(ctx context.Context, query GetPreferencesQuery) (*PreferencesDTO, error) {
	prefs, err := s.prefsRepo.FindByUserID(ctx, query.UserID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load preferences", "userId", query.UserID)
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	if prefs == nil {
		prefs = domain.DefaultPreferences(query.UserID)
	}
	return ToPreferencesDTO(prefs), nil
}

// SavePreferences upserts the user's notification preferences
func (s *NotificationApplicationService) SavePreferences(ctx context.Context, cmd SavePreferencesCommand) (*PreferencesDTO, error) {
	prefs := &domain.Preferences{
		UserID:      cmd.UserID,
		Email:       cmd.Email,
		WebhookURL:  cmd.WebhookURL,
		OnArrival:   cmd.OnArrival,
		OnDelay:     cmd.OnDelay,
		OnStored:    cmd.OnStored,
		OnCancelled: cmd.OnCancelled,
		UpdatedAt:   time.Now().UTC(),
	}

	if err := s.prefsRepo.Upsert(ctx, prefs); err != nil {
		s.logger.WithError(err).Error("Failed to save preferences", "userId", cmd.UserID)
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}

	s.logger.Info("Saved notification preferences", "userId", cmd.UserID)
	return ToPreferencesDTO(prefs), nil
}

// SendTestNotification pushes a canned notification through the notifier
// synchronously and records the delivery
func (s *NotificationApplicationService) SendTestNotification(ctx context.Context, cmd TestNotificationCommand) (*DeliveryDTO, error) {
	prefs, err := s.prefsRepo.FindByUserID(ctx, cmd.UserID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load preferences", "userId", cmd.UserID)
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	if prefs == nil || prefs.WebhookURL == "" {
		return nil, errors.ErrValidation(domain.ErrWebhookNotConfigured.Error())
	}

	notification := Notification{
		Subject:   "Test notification",
		Message:   fmt.Sprintf("Import schedule notifications are configured correctly for %s", cmd.UserID),
		EventType: "imports.notification.test",
		SentAt:    time.Now().UTC(),
	}

	start := time.Now()
	sendErr := s.notifier.Send(ctx, prefs.WebhookURL, notification)
	s.logger.NotificationDispatch(ctx, domain.ChannelWebhook, notification.EventType, cmd.UserID, sendErr == nil, time.Since(start))

	delivery := domain.NewDelivery(cmd.UserID, notification.EventType, notification.Subject, notification.Message, failureReason(sendErr))
	if err := s.deliveryRepo.Save(ctx, delivery); err != nil {
		s.logger.WithError(err).Error("Failed to record delivery", "userId", cmd.UserID)
	}

	if sendErr != nil {
		if errors.Is(sendErr, resilience.ErrCircuitOpen) {
			return nil, errors.ErrServiceUnavailable("notifier")
		}
		return nil, errors.ErrBadGateway(fmt.Sprintf("notifier failed: %v", sendErr))
	}

	return ToDeliveryDTO(delivery), nil
}

// HandleShipmentEvent dispatches a consumed shipment event to every user
// who opted in, recording a delivery either way. Dispatch failures are
// logged and recorded, never returned; a preference lookup failure is
// returned so the consumer can retry.
func (s *NotificationApplicationService) HandleShipmentEvent(ctx context.Context, event *cloudevents.CloudEvent) error {
	subscribers, err := s.prefsRepo.FindSubscribers(ctx, event.Type)
	if err != nil {
		s.logger.WithError(err).Error("Failed to find subscribers", "eventType", event.Type)
		return fmt.Errorf("failed to find subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		return nil
	}

	subject, message, shipmentRef := notificationContent(event)

	for _, prefs := range subscribers {
		s.dispatch(ctx, prefs, event.Type, subject, message, shipmentRef)
	}

	return nil
}

func (s *NotificationApplicationService) dispatch(ctx context.Context, prefs *domain.Preferences, eventType, subject, message, shipmentRef string) {
	var sendErr error
	if prefs.WebhookURL == "" {
		sendErr = domain.ErrWebhookNotConfigured
	} else {
		notification := Notification{
			Subject:     subject,
			Message:     message,
			EventType:   eventType,
			ShipmentRef: shipmentRef,
			SentAt:      time.Now().UTC(),
		}
		start := time.Now()
		sendErr = s.notifier.Send(ctx, prefs.WebhookURL, notification)
		s.logger.NotificationDispatch(ctx, domain.ChannelWebhook, eventType, prefs.UserID, sendErr == nil, time.Since(start))
	}

	delivery := domain.NewDelivery(prefs.UserID, eventType, subject, message, failureReason(sendErr))
	if err := s.deliveryRepo.Save(ctx, delivery); err != nil {
		s.logger.WithError(err).Error("Failed to record delivery", "userId", prefs.UserID, "eventType", eventType)
	}
}

// notificationContent builds the subject and message for a shipment event
func notificationContent(event *cloudevents.CloudEvent) (subject, message, shipmentRef string) {
	var data cloudevents.ShipmentEventData
	_ = event.DecodeData(&data)

	shipmentRef = data.ShipmentID
	if shipmentRef == "" {
		shipmentRef = event.ShipmentRef
	}
	warehouse := data.ReceivingWarehouse
	if warehouse == "" {
		warehouse = event.WarehouseID
	}

	switch event.Type {
	case cloudevents.ShipmentArrived:
		return "Shipment arrived", fmt.Sprintf("Shipment %s arrived at %s", shipmentRef, warehouse), shipmentRef
	case cloudevents.ShipmentDelayed:
		message = fmt.Sprintf("Shipment %s has been flagged as delayed", shipmentRef)
		if data.Note != "" {
			message += ": " + data.Note
		}
		return "Shipment delayed", message, shipmentRef
	case cloudevents.ShipmentStored:
		return "Shipment stored", fmt.Sprintf("Shipment %s has been put away at %s", shipmentRef, warehouse), shipmentRef
	case cloudevents.ShipmentCancelled:
		return "Shipment cancelled", fmt.Sprintf("Shipment %s was cancelled", shipmentRef), shipmentRef
	default:
		return "Shipment update", fmt.Sprintf("Shipment %s: %s", shipmentRef, event.Type), shipmentRef
	}
}

func failureReason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
