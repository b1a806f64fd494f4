package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusReceived       OrderStatus = "RECEIVED"
	OrderStatusPreparing      OrderStatus = "PREPARING"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
)

// statusFlow is the fixed lifecycle order. An order only ever moves to the
// entry immediately after its current one.
var statusFlow = []OrderStatus{
	OrderStatusReceived,
	OrderStatusPreparing,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

// Index returns the position of s in the lifecycle, or -1 for unknown values.
func (s OrderStatus) Index() int {
	for i, st := range statusFlow {
		if st == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) Valid() bool {
	return s.Index() >= 0
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered
}

// Next returns the stage after s. ok is false for terminal or unknown statuses.
func (s OrderStatus) Next() (next OrderStatus, ok bool) {
	idx := s.Index()
	if idx < 0 || idx+1 >= len(statusFlow) {
		return "", false
	}
	return statusFlow[idx+1], true
}

// CanTransitionTo reports whether to is exactly one stage after s.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	from, target := s.Index(), to.Index()
	return from >= 0 && target >= 0 && target == from+1
}

func ParseOrderStatus(v string) (OrderStatus, error) {
	s := OrderStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown order status %q", v)
	}
	return s, nil
}

// NonTerminalStatuses lists every status an order can still leave.
func NonTerminalStatuses() []OrderStatus {
	return append([]OrderStatus(nil), statusFlow[:len(statusFlow)-1]...)
}

// OrderLine is a priced line owned by its order. UnitPrice, Name and ImageURL
// are snapshots taken from the catalog at creation time.
type OrderLine struct {
	ID         string `json:"id"`
	MenuItemID string `json:"menu_item_id"`
	Name       string `json:"name"`
	ImageURL   string `json:"image_url"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"unit_price"`
}

func (l OrderLine) Subtotal() int64 {
	return int64(l.Quantity) * l.UnitPrice
}

type Customer struct {
	Name    string `json:"customer_name"`
	Address string `json:"customer_address"`
	Phone   string `json:"customer_phone"`
	Email   string `json:"customer_email"`
}

// Order amounts are in cents.
type Order struct {
	ID             string `json:"id"`
	IdempotencyKey string `json:"-"`
	Customer
	Status      OrderStatus `json:"status"`
	TotalAmount int64       `json:"total_amount"`
	Items       []OrderLine `json:"items"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Clone returns a deep copy so callers sharing one outcome never alias Items.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]OrderLine(nil), o.Items...)
	return &c
}

// SumLines computes the order total from its lines.
func SumLines(lines []OrderLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}
