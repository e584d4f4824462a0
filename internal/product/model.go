package product

import "time"

type Product struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description,omitempty"`
	Price         float64   `json:"price"`
	Stock         int       `json:"stock"`
	PriceApproved bool      `json:"price_approved"`
	Visible       bool      `json:"visible"`
	CategoryID    *uint     `json:"category_id,omitempty"`
	CategoryName  *string   `json:"category_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type ListOptions struct {
	// OnlyStorefront hides invisible and price-unapproved products; set
	// for customer-facing listings.
	OnlyStorefront bool
	CategoryID     *uint
	Limit          int32
	Offset         int32
}

type CreateParams struct {
	Name        string
	Description *string
	Price       float64
	Stock       int
	CategoryID  *uint
}

type UpdateParams struct {
	Name        *string
	Description *string
	Stock       *int
	Visible     *bool
	CategoryID  *uint
}
