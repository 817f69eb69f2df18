package store

import (
	"context"
	"fmt"
	"net/url"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

// ContactQuery mirrors the /contacts list filters. Only active contacts are
// listed unless IncludeInactive is set.
type ContactQuery struct {
	Page
	ChannelType     *entities.ChannelType
	IncludeInactive bool
}

func (q ContactQuery) values() url.Values {
	v := url.Values{}
	q.Page.apply(v)
	if !q.IncludeInactive {
		v.Set("is_active", "true")
	}
	if q.ChannelType != nil {
		v.Set("channel_type", string(*q.ChannelType))
	}
	return v
}

// ContactStore caches the contact list. Every mutation refetches the list
// with the query of the last Fetch.
type ContactStore struct {
	status

	client Client
	logger *logger.Logger

	contacts []entities.Contact
	selected *entities.Contact
	total    int
	query    ContactQuery
}

func NewContactStore(client Client, appLogger *logger.Logger) *ContactStore {
	return &ContactStore{client: client, logger: appLogger.WithComponent("contact-store")}
}

func (s *ContactStore) Contacts() []entities.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Contact(nil), s.contacts...)
}

func (s *ContactStore) Selected() *entities.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

func (s *ContactStore) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// Find looks a contact up in the cached list
func (s *ContactStore) Find(id int64) (*entities.Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.contacts {
		if s.contacts[i].ID == id {
			c := s.contacts[i]
			return &c, true
		}
	}
	return nil, false
}

// Fetch replaces the cached list and remembers q for later refetches
func (s *ContactStore) Fetch(ctx context.Context, q ContactQuery) error {
	s.mu.Lock()
	s.query = q
	s.mu.Unlock()
	return s.fetchList(ctx, "/contacts", q.values())
}

func (s *ContactStore) Search(ctx context.Context, text string, q ContactQuery) error {
	v := q.values()
	v.Set("q", text)
	return s.fetchList(ctx, "/contacts/search", v)
}

func (s *ContactStore) fetchList(ctx context.Context, path string, query url.Values) error {
	s.begin()

	var contacts []entities.Contact
	resp, err := s.client.Get(ctx, path, query, &contacts)
	if err != nil {
		return s.end(err)
	}

	total := resp.Total()
	if total < 0 {
		total = len(contacts)
	}

	s.mu.Lock()
	s.contacts = contacts
	s.total = total
	s.mu.Unlock()
	return s.end(nil)
}

func (s *ContactStore) FetchOne(ctx context.Context, id int64) (*entities.Contact, error) {
	s.begin()

	var contact entities.Contact
	if _, err := s.client.Get(ctx, contactPath(id), nil, &contact); err != nil {
		return nil, s.end(err)
	}

	s.mu.Lock()
	s.selected = &contact
	s.mu.Unlock()
	return &contact, s.end(nil)
}

// Stats returns the per-channel contact counts
func (s *ContactStore) Stats(ctx context.Context) (*ports.ContactStats, error) {
	s.begin()

	var stats ports.ContactStats
	if _, err := s.client.Get(ctx, "/contacts/stats/count", nil, &stats); err != nil {
		return nil, s.end(err)
	}
	return &stats, s.end(nil)
}

func (s *ContactStore) Create(ctx context.Context, req ports.CreateContactRequest) (*entities.Contact, error) {
	var contact entities.Contact
	err := s.mutateAndRefetch(ctx, func() error {
		_, err := s.client.Post(ctx, "/contacts", req, &contact)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("Contact created", "contact_id", contact.ID, "channel", contact.ChannelType)
	return &contact, nil
}

func (s *ContactStore) Update(ctx context.Context, id int64, req ports.UpdateContactRequest) (*entities.Contact, error) {
	var contact entities.Contact
	err := s.mutateAndRefetch(ctx, func() error {
		_, err := s.client.Put(ctx, contactPath(id), req, &contact)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// Delete deactivates the contact on the server
func (s *ContactStore) Delete(ctx context.Context, id int64) error {
	return s.deleteAndRefetch(ctx, id, contactPath(id))
}

// DeletePermanent removes the contact and its task links
func (s *ContactStore) DeletePermanent(ctx context.Context, id int64) error {
	return s.deleteAndRefetch(ctx, id, contactPath(id)+"/permanent")
}

func (s *ContactStore) mutateAndRefetch(ctx context.Context, call func() error) error {
	s.begin()
	if err := call(); err != nil {
		return s.end(err)
	}
	s.end(nil)

	return s.fetchList(ctx, "/contacts", s.lastQuery())
}

// deleteAndRefetch drops id from the cache once the server accepts the
// delete. The deleted contact stays out of the list even when the refetch
// includes inactive contacts, and a failed refetch does not undo the delete.
func (s *ContactStore) deleteAndRefetch(ctx context.Context, id int64, path string) error {
	s.begin()
	if _, err := s.client.Delete(ctx, path, nil, nil); err != nil {
		return s.end(err)
	}
	s.forget(id)
	s.end(nil)

	if err := s.fetchList(ctx, "/contacts", s.lastQuery()); err != nil {
		s.logger.Warnw("Contact list refresh failed after delete", "contact_id", id, "error", err)
		return nil
	}
	s.forget(id)
	return nil
}

// forget removes id from the cached list and the selection
func (s *ContactStore) forget(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.contacts[:0]
	for _, c := range s.contacts {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if removed := len(s.contacts) - len(kept); removed > 0 && s.total >= removed {
		s.total -= removed
	}
	s.contacts = kept
	if s.selected != nil && s.selected.ID == id {
		s.selected = nil
	}
}

func (s *ContactStore) lastQuery() url.Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query.values()
}

func contactPath(id int64) string {
	return fmt.Sprintf("/contacts/%d", id)
}
