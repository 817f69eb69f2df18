package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

func TestCreateContactNormalizesValue(t *testing.T) {
	repo := NewMockContactRepository()
	svc := NewContactService(repo, logger.NewNop())
	userID := uuid.New()

	contact, err := svc.CreateContact(context.Background(), userID, ports.CreateContactRequest{
		Name:         "  Ana  ",
		ChannelType:  entities.ChannelEmail,
		ChannelValue: "Ana@Example.COM",
	})
	if err != nil {
		t.Fatalf("CreateContact() error = %v", err)
	}
	if contact.Name != "Ana" || contact.ChannelValue != "ana@example.com" || !contact.IsActive {
		t.Errorf("contact = %+v", contact)
	}

	_, err = svc.CreateContact(context.Background(), userID, ports.CreateContactRequest{
		Name:         "Bad",
		ChannelType:  entities.ChannelTelegram,
		ChannelValue: "no-at-sign",
	})
	if !errors.Is(err, entities.ErrInvalidChannelVal) {
		t.Errorf("invalid telegram error = %v", err)
	}
}

func TestUpdateContactRevalidatesChannel(t *testing.T) {
	userID := uuid.New()
	repo := NewMockContactRepository(&entities.Contact{
		ID: 7, UserID: userID, Name: "Ana", ChannelType: entities.ChannelEmail, ChannelValue: "ana@example.com", IsActive: true,
	})
	svc := NewContactService(repo, logger.NewNop())
	ctx := context.Background()

	whatsapp := entities.ChannelWhatsApp
	if _, err := svc.UpdateContact(ctx, userID, 7, ports.UpdateContactRequest{ChannelType: &whatsapp}); !errors.Is(err, entities.ErrInvalidChannelVal) {
		t.Errorf("switching channel without a valid value error = %v", err)
	}

	value := "+52 155 1234 5678"
	updated, err := svc.UpdateContact(ctx, userID, 7, ports.UpdateContactRequest{ChannelType: &whatsapp, ChannelValue: &value})
	if err != nil {
		t.Fatalf("UpdateContact() error = %v", err)
	}
	if updated.ChannelType != entities.ChannelWhatsApp {
		t.Errorf("ChannelType = %s", updated.ChannelType)
	}

	if _, err := svc.UpdateContact(ctx, uuid.New(), 7, ports.UpdateContactRequest{}); !errors.Is(err, entities.ErrContactNotFound) {
		t.Errorf("UpdateContact(stranger) error = %v", err)
	}
}

func TestContactStats(t *testing.T) {
	userID := uuid.New()
	repo := NewMockContactRepository(
		&entities.Contact{ID: 1, UserID: userID, ChannelType: entities.ChannelEmail, IsActive: true},
		&entities.Contact{ID: 2, UserID: userID, ChannelType: entities.ChannelEmail, IsActive: true},
		&entities.Contact{ID: 3, UserID: userID, ChannelType: entities.ChannelTelegram, IsActive: false},
		&entities.Contact{ID: 4, UserID: uuid.New(), ChannelType: entities.ChannelWhatsApp, IsActive: true},
	)
	svc := NewContactService(repo, logger.NewNop())

	stats, err := svc.ContactStats(context.Background(), userID)
	if err != nil {
		t.Fatalf("ContactStats() error = %v", err)
	}
	if stats.TotalContacts != 2 {
		t.Errorf("TotalContacts = %d, want 2", stats.TotalContacts)
	}
	if stats.ByChannel[entities.ChannelEmail] != 2 || stats.ByChannel[entities.ChannelTelegram] != 0 || stats.ByChannel[entities.ChannelWhatsApp] != 0 {
		t.Errorf("ByChannel = %v", stats.ByChannel)
	}
}

func TestDeleteContactSoftThenPermanent(t *testing.T) {
	userID := uuid.New()
	repo := NewMockContactRepository(&entities.Contact{ID: 1, UserID: userID, IsActive: true})
	svc := NewContactService(repo, logger.NewNop())
	ctx := context.Background()

	if err := svc.DeleteContact(ctx, userID, 1); err != nil {
		t.Fatalf("DeleteContact() error = %v", err)
	}
	c, err := svc.GetContact(ctx, userID, 1)
	if err != nil || c.IsActive {
		t.Fatalf("after soft delete: %+v, %v", c, err)
	}

	if err := svc.DeleteContactPermanent(ctx, userID, 1); err != nil {
		t.Fatalf("DeleteContactPermanent() error = %v", err)
	}
	if _, err := svc.GetContact(ctx, userID, 1); !errors.Is(err, entities.ErrContactNotFound) {
		t.Errorf("GetContact() after permanent delete error = %v", err)
	}
}
