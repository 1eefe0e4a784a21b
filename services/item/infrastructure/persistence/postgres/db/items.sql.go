package db

import (
	"context"
)

const getItemByID = `-- name: GetItemByID :one
SELECT id, name, details, category, subcategory, created_by, date_of_creation, latitude, longitude, inserted_at
FROM item.items
WHERE id = $1
`

func (q *Queries) GetItemByID(ctx context.Context, id string) (ItemItem, error) {
	row := q.db.QueryRowContext(ctx, getItemByID, id)
	var i ItemItem
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Details,
		&i.Category,
		&i.Subcategory,
		&i.CreatedBy,
		&i.DateOfCreation,
		&i.Latitude,
		&i.Longitude,
		&i.InsertedAt,
	)
	return i, err
}

const insertItem = `-- name: InsertItem :exec
INSERT INTO item.items (
    id, name, details, category, subcategory, created_by, date_of_creation, latitude, longitude
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9
)
`

type InsertItemParams struct {
	ID             string
	Name           string
	Details        string
	Category       string
	Subcategory    string
	CreatedBy      string
	DateOfCreation string
	Latitude       float64
	Longitude      float64
}

func (q *Queries) InsertItem(ctx context.Context, arg InsertItemParams) error {
	_, err := q.db.ExecContext(ctx, insertItem,
		arg.ID,
		arg.Name,
		arg.Details,
		arg.Category,
		arg.Subcategory,
		arg.CreatedBy,
		arg.DateOfCreation,
		arg.Latitude,
		arg.Longitude,
	)
	return err
}

const insertUserItem = `-- name: InsertUserItem :exec
INSERT INTO item.user_items (user_id, item_id) VALUES ($1, $2)
`

type InsertUserItemParams struct {
	UserID string
	ItemID string
}

func (q *Queries) InsertUserItem(ctx context.Context, arg InsertUserItemParams) error {
	_, err := q.db.ExecContext(ctx, insertUserItem, arg.UserID, arg.ItemID)
	return err
}

const itemExists = `-- name: ItemExists :one
SELECT EXISTS (SELECT 1 FROM item.items WHERE id = $1)
`

func (q *Queries) ItemExists(ctx context.Context, id string) (bool, error) {
	row := q.db.QueryRowContext(ctx, itemExists, id)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const listItemIDsByUser = `-- name: ListItemIDsByUser :many
SELECT item_id
FROM item.user_items
WHERE user_id = $1
ORDER BY inserted_at DESC, item_id DESC
`

func (q *Queries) ListItemIDsByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listItemIDsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var item_id string
		if err := rows.Scan(&item_id); err != nil {
			return nil, err
		}
		items = append(items, item_id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
