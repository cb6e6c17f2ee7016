package domain

import "time"

// SyncState tracks whether a locally created order has been acknowledged by
// the server.
type SyncState string

const (
	SyncPending SyncState = "pending"
	SyncSynced  SyncState = "synced"
	SyncFailed  SyncState = "failed"
)

// Delivery status constants.
const (
	StatusPending   = "Pending"
	StatusPickedUp  = "Picked Up"
	StatusInTransit = "In Transit"
	StatusDelivered = "Delivered"
	StatusCancelled = "Cancelled"
)

// Payment method constants.
const (
	PaymentCOD    = "COD"
	PaymentOnline = "Online"
)

// Payment status constants.
const (
	PaymentStatusPending = "Pending"
	PaymentStatusPaid    = "Paid"
	PaymentStatusFailed  = "Failed"
)

// Order is a shipment order. LocalID is generated on-device at creation and
// never changes; ServerID is assigned at most once, when the server accepts
// the order. An order is synced exactly when ServerID is set.
type Order struct {
	LocalID          string    `json:"local_id"`
	ServerID         string    `json:"server_id,omitempty"`
	Code             string    `json:"code"`
	SenderName       string    `json:"sender_name,omitempty"`
	SenderAddress    string    `json:"sender_address,omitempty"`
	SenderContact    string    `json:"sender_contact,omitempty"`
	RecipientName    string    `json:"recipient_name"`
	RecipientAddress string    `json:"recipient_address"`
	RecipientContact string    `json:"recipient_contact"`
	PaymentMethod    string    `json:"payment_method"`
	PaymentStatus    string    `json:"payment_status"`
	Status           string    `json:"status"`
	SyncState        SyncState `json:"sync_state"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Identity returns the key used to deduplicate an order across the local and
// server views: the server id once one exists, the local id otherwise.
func (o Order) Identity() string {
	if o.ServerID != "" {
		return o.ServerID
	}
	return o.LocalID
}

// Synced reports whether the server has acknowledged this order.
func (o Order) Synced() bool {
	return o.SyncState == SyncSynced
}

// Draft holds the user-supplied fields of a new shipment before it is
// accepted into the store.
type Draft struct {
	SenderName       string `json:"sender_name" validate:"omitempty,max=120"`
	SenderAddress    string `json:"sender_address" validate:"omitempty,max=250"`
	SenderContact    string `json:"sender_contact" validate:"omitempty,max=32"`
	RecipientName    string `json:"recipient_name" validate:"required,max=120"`
	RecipientAddress string `json:"recipient_address" validate:"required,max=250"`
	RecipientContact string `json:"recipient_contact" validate:"required,max=32"`
	PaymentMethod    string `json:"payment_method" validate:"required,oneof=COD Online"`
	PaymentStatus    string `json:"payment_status" validate:"required,oneof=Pending Paid Failed"`
}

// Location is a geographic point reported by a location source.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}
