package order

import "time"

type Order struct {
	ID              uint        `json:"id"`
	UserID          uint        `json:"user_id"`
	TotalAmount     float64     `json:"total_amount"`
	Status          Status      `json:"status"`
	DeliveryAddress string      `json:"delivery_address"`
	AdminNote       *string     `json:"admin_note,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	DeliveredAt     *time.Time  `json:"delivered_at,omitempty"`
	StockRestoredAt *time.Time  `json:"stock_restored_at,omitempty"`
	Items           []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	ID          uint    `json:"id"`
	OrderID     uint    `json:"order_id"`
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

type Filter struct {
	UserID *uint
	Status *Status
}
