package models

import "time"

// Department groups users and assets for reporting.
type Department struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Location is a physical site where assets live or are stored.
type Location struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   *string   `db:"address" json:"address,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StorageBin is a shelf or cabinet inside a location for stored assets.
type StorageBin struct {
	ID         string    `db:"id" json:"id"`
	LocationID string    `db:"location_id" json:"location_id"`
	Code       string    `db:"code" json:"code"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
