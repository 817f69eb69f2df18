package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/ports"
)

const contactColumns = `id, user_id, name, channel_type, channel_value, notes, is_active, created_at, updated_at`

// ContactRepositoryImpl implements the ContactRepository interface
type ContactRepositoryImpl struct {
	db *sqlx.DB
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *sqlx.DB) ports.ContactRepository {
	return &ContactRepositoryImpl{db: db}
}

func (r *ContactRepositoryImpl) Create(ctx context.Context, contact *entities.Contact) error {
	query := `
		INSERT INTO contacts (user_id, name, channel_type, channel_value, notes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		contact.UserID, contact.Name, contact.ChannelType,
		contact.ChannelValue, contact.Notes, contact.IsActive,
	).Scan(&contact.ID, &contact.CreatedAt, &contact.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create contact: %w", err)
	}

	return nil
}

func (r *ContactRepositoryImpl) GetByID(ctx context.Context, userID uuid.UUID, id int64) (*entities.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND user_id = $2`

	var contact entities.Contact
	if err := r.db.GetContext(ctx, &contact, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrContactNotFound
		}
		return nil, fmt.Errorf("get contact by id: %w", err)
	}

	return &contact, nil
}

func (r *ContactRepositoryImpl) Update(ctx context.Context, contact *entities.Contact) error {
	query := `
		UPDATE contacts
		SET name = $3, channel_type = $4, channel_value = $5, notes = $6,
			is_active = $7, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		contact.ID, contact.UserID, contact.Name, contact.ChannelType,
		contact.ChannelValue, contact.Notes, contact.IsActive,
	).Scan(&contact.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.ErrContactNotFound
		}
		return fmt.Errorf("update contact: %w", err)
	}

	return nil
}

// Delete deactivates the contact
func (r *ContactRepositoryImpl) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	query := `
		UPDATE contacts SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2`

	return r.execOne(ctx, "delete contact", query, id, userID)
}

// DeletePermanent removes the row and its task links
func (r *ContactRepositoryImpl) DeletePermanent(ctx context.Context, userID uuid.UUID, id int64) error {
	query := `DELETE FROM contacts WHERE id = $1 AND user_id = $2`

	return r.execOne(ctx, "hard delete contact", query, id, userID)
}

func (r *ContactRepositoryImpl) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrContactNotFound
	}

	return nil
}

func (r *ContactRepositoryImpl) List(ctx context.Context, filter ports.ContactFilter) ([]*entities.Contact, error) {
	conds := contactConditions(filter)
	paging, args := conds.page(filter.Limit, filter.Offset)

	query := fmt.Sprintf(`SELECT %s FROM contacts %s ORDER BY name %s`,
		contactColumns, conds.where(), paging)

	contacts := []*entities.Contact{}
	if err := r.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	return contacts, nil
}

func (r *ContactRepositoryImpl) Count(ctx context.Context, filter ports.ContactFilter) (int64, error) {
	conds := contactConditions(filter)
	query := `SELECT COUNT(*) FROM contacts ` + conds.where()

	var count int64
	if err := r.db.GetContext(ctx, &count, query, conds.args...); err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}

	return count, nil
}

// GetActiveByIDs returns the subset of ids that are active contacts of userID
func (r *ContactRepositoryImpl) GetActiveByIDs(ctx context.Context, userID uuid.UUID, ids []int64) ([]entities.Contact, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE user_id = $1 AND is_active = TRUE AND id = ANY($2)
		ORDER BY name`

	contacts := []entities.Contact{}
	if err := r.db.SelectContext(ctx, &contacts, query, userID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("get contacts by ids: %w", err)
	}

	return contacts, nil
}

// CountByChannel counts active contacts per channel, zero-filled
func (r *ContactRepositoryImpl) CountByChannel(ctx context.Context, userID uuid.UUID) (map[entities.ChannelType]int64, error) {
	query := `
		SELECT channel_type, COUNT(*) AS count
		FROM contacts
		WHERE user_id = $1 AND is_active = TRUE
		GROUP BY channel_type`

	var rows []struct {
		ChannelType entities.ChannelType `db:"channel_type"`
		Count       int64                `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("count contacts by channel: %w", err)
	}

	counts := map[entities.ChannelType]int64{
		entities.ChannelWhatsApp: 0,
		entities.ChannelEmail:    0,
		entities.ChannelTelegram: 0,
	}
	for _, row := range rows {
		counts[row.ChannelType] = row.Count
	}

	return counts, nil
}

func contactConditions(filter ports.ContactFilter) *conditions {
	conds := &conditions{}
	conds.add("user_id = $%d", filter.UserID)
	if filter.IsActive != nil {
		conds.add("is_active = $%d", *filter.IsActive)
	}
	if filter.ChannelType != nil {
		conds.add("channel_type = $%d", *filter.ChannelType)
	}
	if filter.Search != nil && *filter.Search != "" {
		conds.add("(name ILIKE $%[1]d OR channel_value ILIKE $%[1]d)", likePattern(*filter.Search))
	}
	return conds
}
