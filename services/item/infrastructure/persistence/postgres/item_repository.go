package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ghuser/lostfound/pkg/database"
	"github.com/ghuser/lostfound/pkg/events"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	domainevents "github.com/ghuser/lostfound/services/item/domain/events"
	"github.com/ghuser/lostfound/services/item/domain/models"
	"github.com/ghuser/lostfound/services/item/infrastructure/persistence/postgres/db"
)

// RecordRepository implements repositories.RecordStore against PostgreSQL.
type RecordRepository struct {
	db  *database.Database
	bus *events.EventBus
}

// NewRecordRepository returns a RecordRepository backed by the given connection pool
// and event bus. The bus is used to publish ItemCreatedEvents after a successful write.
func NewRecordRepository(database *database.Database, bus *events.EventBus) *RecordRepository {
	return &RecordRepository{db: database, bus: bus}
}

// Write persists a new record, its owner's child-index row and an
// ItemCreatedEvent within the same transaction.
// Returns ErrItemAlreadyExists on unique constraint violations.
func (r *RecordRepository) Write(ctx context.Context, rec *models.Record) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		q := db.New(tx)
		if err := q.InsertItem(ctx, db.InsertItemParams{
			ID:             rec.ItemID,
			Name:           rec.Name,
			Details:        rec.Details,
			Category:       rec.Category,
			Subcategory:    rec.Subcategory,
			CreatedBy:      rec.CreatedBy,
			DateOfCreation: rec.DateOfCreation,
			Latitude:       rec.Latitude,
			Longitude:      rec.Longitude,
		}); err != nil {
			if isUniqueViolation(err) {
				return itemdomain.ErrItemAlreadyExists
			}
			return fmt.Errorf("insert item: %w", err)
		}

		if err := q.InsertUserItem(ctx, db.InsertUserItemParams{
			UserID: rec.CreatedBy,
			ItemID: rec.ItemID,
		}); err != nil {
			return fmt.Errorf("insert user item: %w", err)
		}

		if r.bus != nil {
			if err := r.publishCreated(ctx, tx, rec); err != nil {
				return fmt.Errorf("publish item created: %w", err)
			}
		}
		return nil
	})
}

// ReadOnce retrieves a record by item ID. Returns ErrItemNotFound if not found.
func (r *RecordRepository) ReadOnce(ctx context.Context, itemID string) (*models.Record, error) {
	q := db.New(r.db.DB())
	row, err := q.GetItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, itemdomain.ErrItemNotFound
		}
		return nil, fmt.Errorf("query item: %w", err)
	}
	return rowToRecord(row), nil
}

// ReadChildIndex lists the IDs of the items ownerID created, newest first.
func (r *RecordRepository) ReadChildIndex(ctx context.Context, ownerID string) ([]string, error) {
	q := db.New(r.db.DB())
	ids, err := q.ListItemIDsByUser(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query user items: %w", err)
	}
	return ids, nil
}

// Exists reports whether a record with the given ID exists.
func (r *RecordRepository) Exists(ctx context.Context, itemID string) (bool, error) {
	q := db.New(r.db.DB())
	exists, err := q.ItemExists(ctx, itemID)
	if err != nil {
		return false, fmt.Errorf("check item exists: %w", err)
	}
	return exists, nil
}

func (r *RecordRepository) publishCreated(ctx context.Context, tx *sql.Tx, rec *models.Record) error {
	event := domainevents.ItemCreatedEvent{
		EventID:    uuid.New(),
		Version:    1,
		ItemID:     rec.ItemID,
		OwnerID:    rec.CreatedBy,
		Name:       rec.Name,
		Category:   rec.Category,
		Latitude:   rec.Latitude,
		Longitude:  rec.Longitude,
		OccurredAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_id", event.EventID.String())
	msg.Metadata.Set("event_version", "1")
	return r.bus.PublishTx(ctx, tx, domainevents.TopicItemCreated, msg)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// rowToRecord maps a db.ItemItem to a domain models.Record.
func rowToRecord(row db.ItemItem) *models.Record {
	return &models.Record{
		ItemID:         row.ID,
		Name:           row.Name,
		Details:        row.Details,
		Category:       row.Category,
		Subcategory:    row.Subcategory,
		CreatedBy:      row.CreatedBy,
		DateOfCreation: row.DateOfCreation,
		Latitude:       row.Latitude,
		Longitude:      row.Longitude,
	}
}
