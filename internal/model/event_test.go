package model

import (
	"strings"
	"testing"
)

func TestEventKeyUID(t *testing.T) {
	t.Parallel()

	k := EventKey{Retailer: RetailerAmazon, OrderID: "403-1234567-1234567", ItemName: "USB-C cable"}

	t.Run("stable", func(t *testing.T) {
		t.Parallel()
		if k.UID() != k.UID() {
			t.Error("UID() is not deterministic")
		}
		if !strings.HasSuffix(k.UID(), "@deliverycal") {
			t.Errorf("UID() = %q, want @deliverycal suffix", k.UID())
		}
	})

	t.Run("distinct fields do not collide", func(t *testing.T) {
		t.Parallel()
		a := EventKey{Retailer: RetailerIKEA, OrderID: "a", ItemName: "bc"}
		b := EventKey{Retailer: RetailerIKEA, OrderID: "ab", ItemName: "c"}
		if a.UID() == b.UID() {
			t.Error("expected different UIDs")
		}
	})

	t.Run("retailer is part of identity", func(t *testing.T) {
		t.Parallel()
		other := k
		other.Retailer = RetailerIKEA
		if k.UID() == other.UID() {
			t.Error("expected different UIDs for different retailers")
		}
	})
}

func TestEventKeyLess(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		a, b EventKey
		want bool
	}{
		{"retailer first", EventKey{Retailer: RetailerAmazon, OrderID: "z"}, EventKey{Retailer: RetailerIKEA, OrderID: "a"}, true},
		{"then order", EventKey{Retailer: RetailerIKEA, OrderID: "1"}, EventKey{Retailer: RetailerIKEA, OrderID: "2"}, true},
		{"then item", EventKey{Retailer: RetailerIKEA, OrderID: "1", ItemName: "b"}, EventKey{Retailer: RetailerIKEA, OrderID: "1", ItemName: "a"}, false},
		{"equal", EventKey{Retailer: RetailerIKEA}, EventKey{Retailer: RetailerIKEA}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.a.Less(tc.b); got != tc.want {
				t.Errorf("Less() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDeliveryEventSummary(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		event DeliveryEvent
		want  string
	}{
		{"item name", DeliveryEvent{Retailer: RetailerAmazon, ItemName: "Kindle"}, "Kindle"},
		{"amazon fallback", DeliveryEvent{Retailer: RetailerAmazon, ItemName: "  "}, "Amazon order"},
		{"ikea fallback", DeliveryEvent{Retailer: RetailerIKEA}, "IKEA order"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.event.Summary(); got != tc.want {
				t.Errorf("Summary() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRawOrderRecordKey(t *testing.T) {
	t.Parallel()

	r := RawOrderRecord{Retailer: RetailerIKEA, OrderID: "1234567890", ItemName: "BILLY", RawDateText: "15/12/2024"}
	e := DeliveryEvent{Retailer: RetailerIKEA, OrderID: "1234567890", ItemName: "BILLY"}
	if r.Key() != e.Key() {
		t.Errorf("record key %v differs from event key %v", r.Key(), e.Key())
	}
}
