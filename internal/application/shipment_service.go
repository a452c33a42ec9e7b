package application

import (
	"context"
	"fmt"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/errors"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/logging"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/domain"
)

// ShipmentApplicationService handles shipment lifecycle use cases
type ShipmentApplicationService struct {
	repo   domain.ShipmentRepository
	logger *logging.Logger
}

// NewShipmentApplicationService creates a new ShipmentApplicationService
func NewShipmentApplicationService(repo domain.ShipmentRepository, logger *logging.Logger) *ShipmentApplicationService {
	return &ShipmentApplicationService{
		repo:   repo,
		logger: logger,
	}
}

// CreateShipment registers a new import shipment
func (s *ShipmentApplicationService) CreateShipment(ctx context.Context, cmd CreateShipmentCommand) (*ShipmentDTO, error) {
	shipment, err := domain.NewShipment(cmd.ShipmentID, domain.ShipmentStatus(cmd.InitialStatus), cmd.details())
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.repo.Save(ctx, shipment); err != nil {
		s.logger.WithError(err).Error("Failed to create shipment", "shipmentId", shipment.ShipmentID)
		return nil, fmt.Errorf("failed to create shipment: %w", err)
	}

	// Events are saved to outbox by repository in transaction

	s.logger.Event(ctx, "shipment.created", map[string]any{
		"shipmentId": shipment.ShipmentID,
		"supplier":   shipment.Supplier,
		"warehouse":  shipment.ReceivingWarehouse,
	})

	return ToShipmentDTO(shipment), nil
}

// GetShipment retrieves a shipment by its business key
func (s *ShipmentApplicationService) GetShipment(ctx context.Context, query GetShipmentQuery) (*ShipmentDTO, error) {
	shipment, err := s.loadShipment(ctx, query.ShipmentID)
	if err != nil {
		return nil, err
	}
	return ToShipmentDTO(shipment), nil
}

// AmendShipment updates the editable fields of a shipment
func (s *ShipmentApplicationService) AmendShipment(ctx context.Context, cmd AmendShipmentCommand) (*ShipmentDTO, error) {
	shipment, err := s.loadShipment(ctx, cmd.ShipmentID)
	if err != nil {
		return nil, err
	}

	if err := shipment.AmendDetails(cmd.details()); err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.repo.Save(ctx, shipment); err != nil {
		s.logger.WithError(err).Error("Failed to save shipment", "shipmentId", cmd.ShipmentID)
		return nil, fmt.Errorf("failed to save shipment: %w", err)
	}

	// Events are saved to outbox by repository in transaction

	s.logger.Info("Amended shipment", "shipmentId", cmd.ShipmentID)
	return ToShipmentDTO(shipment), nil
}

// ChangeShipmentStatus transitions a shipment through the status machine
func (s *ShipmentApplicationService) ChangeShipmentStatus(ctx context.Context, cmd ChangeStatusCommand) (*ShipmentDTO, error) {
	shipment, err := s.loadShipment(ctx, cmd.ShipmentID)
	if err != nil {
		return nil, err
	}

	if err := shipment.ChangeStatus(domain.ShipmentStatus(cmd.Status), cmd.Note); err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.repo.Save(ctx, shipment); err != nil {
		s.logger.WithError(err).Error("Failed to save shipment", "shipmentId", cmd.ShipmentID)
		return nil, fmt.Errorf("failed to save shipment: %w", err)
	}

	// Events are saved to outbox by repository in transaction

	s.logger.Event(ctx, "shipment.status_changed", map[string]any{
		"shipmentId": cmd.ShipmentID,
		"status":     cmd.Status,
	})

	return ToShipmentDTO(shipment), nil
}

// ArchiveShipment soft-hides a shipment from default lists
func (s *ShipmentApplicationService) ArchiveShipment(ctx context.Context, cmd ArchiveShipmentCommand) (*ShipmentDTO, error) {
	shipment, err := s.loadShipment(ctx, cmd.ShipmentID)
	if err != nil {
		return nil, err
	}

	if err := shipment.Archive(); err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.repo.Save(ctx, shipment); err != nil {
		s.logger.WithError(err).Error("Failed to save shipment", "shipmentId", cmd.ShipmentID)
		return nil, fmt.Errorf("failed to save shipment: %w", err)
	}

	s.logger.Info("Archived shipment", "shipmentId", cmd.ShipmentID)
	return ToShipmentDTO(shipment), nil
}

// RestoreShipment brings an archived shipment back
func (s *ShipmentApplicationService) RestoreShipment(ctx context.Context, cmd RestoreShipmentCommand) (*ShipmentDTO, error) {
	shipment, err := s.loadShipment(ctx, cmd.ShipmentID)
	if err != nil {
		return nil, err
	}

	if err := shipment.Restore(); err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.repo.Save(ctx, shipment); err != nil {
		s.logger.WithError(err).Error("Failed to save shipment", "shipmentId", cmd.ShipmentID)
		return nil, fmt.Errorf("failed to save shipment: %w", err)
	}

	s.logger.Info("Restored shipment", "shipmentId", cmd.ShipmentID)
	return ToShipmentDTO(shipment), nil
}

// DeleteShipment removes a shipment permanently
func (s *ShipmentApplicationService) DeleteShipment(ctx context.Context, cmd DeleteShipmentCommand) error {
	if err := s.repo.Delete(ctx, cmd.ShipmentID); err != nil {
		if errors.Is(err, domain.ErrShipmentNotFound) {
			return errors.ErrNotFoundWithID("shipment", cmd.ShipmentID)
		}
		s.logger.WithError(err).Error("Failed to delete shipment", "shipmentId", cmd.ShipmentID)
		return fmt.Errorf("failed to delete shipment: %w", err)
	}

	s.logger.Info("Deleted shipment", "shipmentId", cmd.ShipmentID)
	return nil
}

// BulkArchive archives a batch of shipments, tallying per-item outcomes
func (s *ShipmentApplicationService) BulkArchive(ctx context.Context, cmd BulkArchiveCommand) (*BulkResult, error) {
	result := &BulkResult{Failures: []BulkFailure{}}

	for _, shipmentID := range cmd.ShipmentIDs {
		if _, err := s.ArchiveShipment(ctx, ArchiveShipmentCommand{ShipmentID: shipmentID}); err != nil {
			result.FailCount++
			result.Failures = append(result.Failures, BulkFailure{
				ShipmentID: shipmentID,
				Error:      failureMessage(err),
			})
			continue
		}
		result.SuccessCount++
	}

	s.logger.Info("Bulk archive finished", "succeeded", result.SuccessCount, "failed", result.FailCount)
	return result, nil
}

// BulkChangeStatus transitions a batch of shipments, tallying per-item outcomes.
// The target status is validated up front; per-item transition failures tally.
func (s *ShipmentApplicationService) BulkChangeStatus(ctx context.Context, cmd BulkChangeStatusCommand) (*BulkResult, error) {
	if !domain.ShipmentStatus(cmd.Status).IsValid() {
		return nil, errors.ErrValidation(fmt.Sprintf("invalid shipment status: %s", cmd.Status))
	}

	result := &BulkResult{Failures: []BulkFailure{}}

	for _, shipmentID := range cmd.ShipmentIDs {
		_, err := s.ChangeShipmentStatus(ctx, ChangeStatusCommand{
			ShipmentID: shipmentID,
			Status:     cmd.Status,
			Note:       cmd.Note,
		})
		if err != nil {
			result.FailCount++
			result.Failures = append(result.Failures, BulkFailure{
				ShipmentID: shipmentID,
				Error:      failureMessage(err),
			})
			continue
		}
		result.SuccessCount++
	}

	s.logger.Info("Bulk status change finished", "status", cmd.Status, "succeeded", result.SuccessCount, "failed", result.FailCount)
	return result, nil
}

func (s *ShipmentApplicationService) loadShipment(ctx context.Context, shipmentID string) (*domain.Shipment, error) {
	shipment, err := s.repo.FindByID(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, domain.ErrShipmentNotFound) {
			return nil, errors.ErrNotFoundWithID("shipment", shipmentID)
		}
		s.logger.WithError(err).Error("Failed to load shipment", "shipmentId", shipmentID)
		return nil, fmt.Errorf("failed to load shipment: %w", err)
	}
	if shipment == nil {
		return nil, errors.ErrNotFoundWithID("shipment", shipmentID)
	}
	return shipment, nil
}

func failureMessage(err error) string {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
