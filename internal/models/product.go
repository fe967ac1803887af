package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Product est l'entrée catalogue, source de vérité des prix au checkout.
type Product struct {
	ProductID   gocql.UUID `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	Currency    string     `json:"currency"`
	Category    string     `json:"category"`
	Stock       int        `json:"stock"`
	ImageURL    string     `json:"image_url"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
