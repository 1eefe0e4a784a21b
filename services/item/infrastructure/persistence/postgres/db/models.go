package db

import (
	"time"
)

type ItemItem struct {
	ID             string
	Name           string
	Details        string
	Category       string
	Subcategory    string
	CreatedBy      string
	DateOfCreation string
	Latitude       float64
	Longitude      float64
	InsertedAt     time.Time
}

type ItemUserItem struct {
	UserID     string
	ItemID     string
	InsertedAt time.Time
}
