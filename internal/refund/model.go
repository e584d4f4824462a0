package refund

import "time"

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

type Request struct {
	ID          uint          `json:"id"`
	OrderID     uint          `json:"order_id"`
	UserID      uint          `json:"user_id"`
	Reason      string        `json:"reason"`
	Status      RequestStatus `json:"status"`
	AdminNote   *string       `json:"admin_note,omitempty"`
	RequestedAt time.Time     `json:"requested_at"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
}
