package contract

import (
	"strings"
)

type Status string

const (
	StatusOpen     Status = "Open"
	StatusReleased Status = "Released"
	StatusClosed   Status = "Closed"
	StatusArchived Status = "Archived"
)

// Statuses lists every purchase order status in lifecycle order.
var Statuses = []Status{StatusOpen, StatusReleased, StatusClosed, StatusArchived}

// ParseStatus accepts any casing of a known status. Empty input yields Open.
func ParseStatus(raw string) (Status, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return StatusOpen, nil
	}
	for _, s := range Statuses {
		if strings.EqualFold(trimmed, string(s)) {
			return s, nil
		}
	}
	return "", ErrInvalidStatus
}

// OrDefault treats an absent status as Open for display.
func (s Status) OrDefault() Status {
	if strings.TrimSpace(string(s)) == "" {
		return StatusOpen
	}
	return s
}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

type Vendor struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// VendorFields is the mutable part of a Vendor sent on create/update.
type VendorFields struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

type PurchaseOrder struct {
	ID       int64   `json:"id"`
	PONumber int     `json:"po"`
	Amount   float64 `json:"amount"`
	Vendor   string  `json:"vendor"`
	Status   Status  `json:"status"`
}

// OrderFields is the payload for create and revise. Revise replaces all four
// fields as a unit.
type OrderFields struct {
	PONumber int     `json:"po"`
	Amount   float64 `json:"amount"`
	Vendor   string  `json:"vendor"`
	Status   Status  `json:"status"`
}

/* ------------------------------- Chat ------------------------------- */

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

type ChatMessage struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

func UserMessage(text string) ChatMessage {
	return ChatMessage{Role: RoleUser, Text: text}
}

func BotMessage(text string) ChatMessage {
	return ChatMessage{Role: RoleBot, Text: text}
}

/* ------------------------------ Intents ----------------------------- */

type IntentKind string

const (
	IntentGreeting      IntentKind = "greeting"
	IntentCreateOrder   IntentKind = "create_order"
	IntentDeleteOrder   IntentKind = "delete_order"
	IntentInformational IntentKind = "informational"
)

// Intent is a tagged variant. Only the fields belonging to Kind are meaningful:
// CreateOrder uses the three optional pointers, DeleteOrder uses PONumber.
type Intent struct {
	Kind       IntentKind `json:"kind"`
	PONumber   *int       `json:"po_number,omitempty"`
	Amount     *float64   `json:"amount,omitempty"`
	VendorName *string    `json:"vendor_name,omitempty"`
}

func Greeting() Intent {
	return Intent{Kind: IntentGreeting}
}

func Informational() Intent {
	return Intent{Kind: IntentInformational}
}

func DeleteOrder(poNumber int) Intent {
	return Intent{Kind: IntentDeleteOrder, PONumber: &poNumber}
}

// HasDetail reports whether a create intent carries at least one extracted field.
func (i Intent) HasDetail() bool {
	return i.PONumber != nil || i.Amount != nil || i.VendorName != nil
}

// OrderFields builds the create payload, defaulting missing fields to zero
// values and forcing status Open.
func (i Intent) OrderFields() OrderFields {
	fields := OrderFields{Status: StatusOpen}
	if i.PONumber != nil {
		fields.PONumber = *i.PONumber
	}
	if i.Amount != nil {
		fields.Amount = *i.Amount
	}
	if i.VendorName != nil {
		fields.Vendor = *i.VendorName
	}
	return fields
}

/* --------------------------- Dispatch output -------------------------- */

// CacheDelta describes how the local cache changes after a successful store call.
type CacheDelta struct {
	PrependOrder  *PurchaseOrder `json:"prepend_order,omitempty"`
	RemoveOrderID *int64         `json:"remove_order_id,omitempty"`
}

func (d CacheDelta) Empty() bool {
	return d.PrependOrder == nil && d.RemoveOrderID == nil
}

type DispatchResult struct {
	Reply      ChatMessage `json:"reply"`
	Delta      CacheDelta  `json:"delta"`
	RemoteCall bool        `json:"remote_call"`
}
