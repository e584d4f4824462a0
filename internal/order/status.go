package order

type Status string

const (
	StatusProcessing      Status = "processing"
	StatusInTransit       Status = "in-transit"
	StatusDelivered       Status = "delivered"
	StatusCancelled       Status = "cancelled"
	StatusRefundRequested Status = "refund-requested"
	StatusRefundApproved  Status = "refund-approved"
	StatusRefundDenied    Status = "refund-denied"

	// StatusRefunded appears on rows written before the refund workflow was
	// split into requested/approved. It is terminal and stock-restoring.
	StatusRefunded Status = "refunded"
)

// transitions is the closed set of legal status moves.
var transitions = map[Status][]Status{
	StatusProcessing:      {StatusInTransit, StatusDelivered, StatusCancelled, StatusRefundRequested},
	StatusInTransit:       {StatusDelivered},
	StatusDelivered:       {StatusRefundRequested},
	StatusRefundRequested: {StatusRefundApproved, StatusRefundDenied},
}

func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusProcessing, StatusInTransit, StatusDelivered, StatusCancelled,
		StatusRefundRequested, StatusRefundApproved, StatusRefundDenied, StatusRefunded:
		return true
	}
	return false
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RestoresStock reports whether entering the status must give item
// quantities back to product stock.
func (s Status) RestoresStock() bool {
	switch s {
	case StatusCancelled, StatusRefundApproved, StatusRefunded:
		return true
	}
	return false
}

// Terminal reports whether no further transition leaves the status.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}
