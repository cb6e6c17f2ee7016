package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/PrabinKa/ShipMate/internal/domain"
)

// flexTime decodes the timestamp formats the backend emits: unix
// milliseconds as a JSON number, unix milliseconds as a digit string, or an
// RFC3339 string. It encodes as unix milliseconds.
type flexTime struct {
	time.Time
}

func (t flexTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			t.Time = parsed
			return nil
		}
		millis, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("unsupported timestamp %q", s)
		}
		t.Time = time.UnixMilli(millis).UTC()
		return nil
	}

	millis, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		var f float64
		if ferr := json.Unmarshal(data, &f); ferr != nil {
			return fmt.Errorf("unsupported timestamp %s", data)
		}
		millis = int64(f)
	}
	t.Time = time.UnixMilli(millis).UTC()
	return nil
}

// flexString decodes a JSON string or number into a string, covering
// backends that send numeric ids.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// serverOrder is the backend's order representation.
type serverOrder struct {
	ID               flexString `json:"id,omitempty"`
	MongoID          flexString `json:"_id,omitempty"`
	OrderCode        string     `json:"orderCode"`
	SenderName       string     `json:"senderName,omitempty"`
	SenderAddress    string     `json:"senderAddress,omitempty"`
	SenderContact    string     `json:"senderContact,omitempty"`
	RecipientName    string     `json:"recipientName"`
	RecipientAddress string     `json:"recipientAddress"`
	RecipientContact string     `json:"recipientContact"`
	PaymentMethod    string     `json:"paymentMethod"`
	PaymentStatus    string     `json:"paymentStatus"`
	Status           string     `json:"status"`
	CreatedAt        flexTime   `json:"createdAt"`
	UpdatedAt        flexTime   `json:"updatedAt,omitempty"`
}

func (o serverOrder) serverID() string {
	if o.ID != "" {
		return string(o.ID)
	}
	return string(o.MongoID)
}

func (o serverOrder) toDomain() domain.Order {
	out := domain.Order{
		ServerID:         o.serverID(),
		Code:             o.OrderCode,
		SenderName:       o.SenderName,
		SenderAddress:    o.SenderAddress,
		SenderContact:    o.SenderContact,
		RecipientName:    o.RecipientName,
		RecipientAddress: o.RecipientAddress,
		RecipientContact: o.RecipientContact,
		PaymentMethod:    o.PaymentMethod,
		PaymentStatus:    o.PaymentStatus,
		Status:           o.Status,
		SyncState:        domain.SyncSynced,
		CreatedAt:        o.CreatedAt.Time,
		UpdatedAt:        o.UpdatedAt.Time,
	}
	if out.Status == "" {
		out.Status = domain.StatusPending
	}
	if out.PaymentStatus == "" {
		out.PaymentStatus = domain.PaymentStatusPending
	}
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = out.CreatedAt
	}
	return out
}

func fromDomain(o domain.Order) serverOrder {
	return serverOrder{
		OrderCode:        o.Code,
		SenderName:       o.SenderName,
		SenderAddress:    o.SenderAddress,
		SenderContact:    o.SenderContact,
		RecipientName:    o.RecipientName,
		RecipientAddress: o.RecipientAddress,
		RecipientContact: o.RecipientContact,
		PaymentMethod:    o.PaymentMethod,
		PaymentStatus:    o.PaymentStatus,
		Status:           o.Status,
		CreatedAt:        flexTime{o.CreatedAt},
		UpdatedAt:        flexTime{o.UpdatedAt},
	}
}
