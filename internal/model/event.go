package model

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// uidDomain is appended to every event UID.
const uidDomain = "deliverycal"

// EventKey is the identity of a delivery event. Two records with the same
// key in consecutive runs are the same calendar event.
type EventKey struct {
	Retailer Retailer `json:"retailer"`
	OrderID  string   `json:"orderId"`
	ItemName string   `json:"itemName"`
}

// String returns a stable textual form of the key.
func (k EventKey) String() string {
	return string(k.Retailer) + "/" + k.OrderID + "/" + k.ItemName
}

// Less orders keys by retailer, order id and item name.
func (k EventKey) Less(o EventKey) bool {
	if k.Retailer != o.Retailer {
		return k.Retailer < o.Retailer
	}
	if k.OrderID != o.OrderID {
		return k.OrderID < o.OrderID
	}
	return k.ItemName < o.ItemName
}

// UID returns the calendar UID for the key. The same key always yields the
// same UID, so calendar clients update events in place across runs.
func (k EventKey) UID() string {
	h := sha3.New256()
	// NUL separators keep ("a", "bc") and ("ab", "c") apart.
	h.Write([]byte(strings.Join([]string{string(k.Retailer), k.OrderID, k.ItemName}, "\x00")))
	return hex.EncodeToString(h.Sum(nil)[:16]) + "@" + uidDomain
}

// DeliveryEvent is a reconciled delivery ready for the calendar.
type DeliveryEvent struct {
	Retailer    Retailer       `json:"retailer"`
	OrderID     string         `json:"orderId"`
	ItemName    string         `json:"itemName"`
	Window      DeliveryWindow `json:"window"`
	OrderURL    string         `json:"orderUrl,omitempty"`
	RawDateText string         `json:"rawDateText"`
}

// Key returns the identity of the event.
func (e DeliveryEvent) Key() EventKey {
	return EventKey{Retailer: e.Retailer, OrderID: e.OrderID, ItemName: e.ItemName}
}

// Summary returns the calendar title: the item name, or "<Retailer> order"
// when the item has no name.
func (e DeliveryEvent) Summary() string {
	if name := strings.TrimSpace(e.ItemName); name != "" {
		return name
	}
	return e.Retailer.DisplayName() + " order"
}

// Equal reports whether two events carry identical content.
func (e DeliveryEvent) Equal(o DeliveryEvent) bool {
	return e.Key() == o.Key() &&
		e.OrderURL == o.OrderURL &&
		e.RawDateText == o.RawDateText &&
		e.Window.Equal(o.Window)
}

// ParseFailure records a record whose delivery text could not be normalized.
// The raw text is kept verbatim so the operator can diagnose it.
type ParseFailure struct {
	Retailer Retailer `json:"retailer"`
	OrderID  string   `json:"orderId"`
	ItemName string   `json:"itemName,omitempty"`
	RawText  string   `json:"rawText"`
	Reason   string   `json:"reason"`
}
