package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

// ContactService handles contact book operations
type ContactService struct {
	contactRepo ports.ContactRepository
	logger      *logger.Logger
}

// NewContactService creates a new contact service
func NewContactService(contactRepo ports.ContactRepository, logger *logger.Logger) *ContactService {
	return &ContactService{
		contactRepo: contactRepo,
		logger:      logger.WithComponent("contacts"),
	}
}

// CreateContact validates the channel value and stores a new contact
func (s *ContactService) CreateContact(ctx context.Context, userID uuid.UUID, req ports.CreateContactRequest) (*entities.Contact, error) {
	value, err := entities.NormalizeChannelValue(req.ChannelType, req.ChannelValue)
	if err != nil {
		return nil, err
	}

	contact := &entities.Contact{
		UserID:       userID,
		Name:         strings.TrimSpace(req.Name),
		ChannelType:  req.ChannelType,
		ChannelValue: value,
		Notes:        req.Notes,
		IsActive:     true,
	}

	if err := s.contactRepo.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	s.logger.LogUserAction(userID.String(), "contact_created", map[string]interface{}{
		"contact_id":   contact.ID,
		"channel_type": contact.ChannelType,
	})

	return contact, nil
}

// GetContact retrieves one of the user's contacts
func (s *ContactService) GetContact(ctx context.Context, userID uuid.UUID, id int64) (*entities.Contact, error) {
	return s.contactRepo.GetByID(ctx, userID, id)
}

// UpdateContact applies a partial update. A new channel type or value is
// revalidated against the resulting pair.
func (s *ContactService) UpdateContact(ctx context.Context, userID uuid.UUID, id int64, req ports.UpdateContactRequest) (*entities.Contact, error) {
	contact, err := s.contactRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		contact.Name = strings.TrimSpace(*req.Name)
	}
	if req.Notes != nil {
		contact.Notes = req.Notes
	}
	if req.IsActive != nil {
		contact.IsActive = *req.IsActive
	}

	if req.ChannelType != nil || req.ChannelValue != nil {
		channelType := contact.ChannelType
		if req.ChannelType != nil {
			channelType = *req.ChannelType
		}
		channelValue := contact.ChannelValue
		if req.ChannelValue != nil {
			channelValue = *req.ChannelValue
		}

		value, err := entities.NormalizeChannelValue(channelType, channelValue)
		if err != nil {
			return nil, err
		}
		contact.ChannelType = channelType
		contact.ChannelValue = value
	}

	if err := s.contactRepo.Update(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	s.logger.LogUserAction(userID.String(), "contact_updated", map[string]interface{}{"contact_id": id})

	return contact, nil
}

// DeleteContact deactivates a contact; existing task links are kept
func (s *ContactService) DeleteContact(ctx context.Context, userID uuid.UUID, id int64) error {
	if err := s.contactRepo.Delete(ctx, userID, id); err != nil {
		return err
	}

	s.logger.LogUserAction(userID.String(), "contact_deactivated", map[string]interface{}{"contact_id": id})
	return nil
}

// DeleteContactPermanent removes a contact and its task links
func (s *ContactService) DeleteContactPermanent(ctx context.Context, userID uuid.UUID, id int64) error {
	if err := s.contactRepo.DeletePermanent(ctx, userID, id); err != nil {
		return err
	}

	s.logger.LogUserAction(userID.String(), "contact_deleted", map[string]interface{}{"contact_id": id})
	return nil
}

// ListContacts retrieves a page of contacts and the total match count
func (s *ContactService) ListContacts(ctx context.Context, filter ports.ContactFilter) ([]*entities.Contact, int, error) {
	contacts, err := s.contactRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list contacts: %w", err)
	}

	total, err := s.contactRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count contacts: %w", err)
	}

	return contacts, int(total), nil
}

// ContactStats counts active contacts overall and per channel
func (s *ContactService) ContactStats(ctx context.Context, userID uuid.UUID) (*ports.ContactStats, error) {
	active := true
	total, err := s.contactRepo.Count(ctx, ports.ContactFilter{UserID: userID, IsActive: &active})
	if err != nil {
		return nil, fmt.Errorf("failed to count contacts: %w", err)
	}

	byChannel, err := s.contactRepo.CountByChannel(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count contacts by channel: %w", err)
	}

	return &ports.ContactStats{TotalContacts: total, ByChannel: byChannel}, nil
}
