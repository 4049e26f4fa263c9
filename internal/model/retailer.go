package model

// Retailer identifies a supported online store.
type Retailer string

const (
	// RetailerAmazon is Amazon (amazon.in by default).
	RetailerAmazon Retailer = "amazon"
	// RetailerIKEA is IKEA (ikea.com/in by default).
	RetailerIKEA Retailer = "ikea"
)

// DisplayName returns the human readable retailer name used in calendar
// summaries and reports.
func (r Retailer) DisplayName() string {
	switch r {
	case RetailerAmazon:
		return "Amazon"
	case RetailerIKEA:
		return "IKEA"
	default:
		return string(r)
	}
}

// String implements fmt.Stringer.
func (r Retailer) String() string {
	return string(r)
}

// RawOrderRecord is the extracted, unparsed form of one order item.
// Records are immutable values produced by a retailer session and
// consumed by the reconciler within the same run.
type RawOrderRecord struct {
	// Retailer that produced the record.
	Retailer Retailer `json:"retailer"`

	// OrderID is unique within the retailer.
	OrderID string `json:"orderId"`

	// ItemName is the product title. It may be empty when the page shows
	// no title for the item.
	ItemName string `json:"itemName"`

	// RawDateText is the delivery text exactly as shown on the page,
	// for example "Arriving 12-15 March".
	RawDateText string `json:"rawDateText"`

	// OrderURL points at the order details page. Optional.
	OrderURL string `json:"orderUrl,omitempty"`
}

// Key returns the identity of the event this record would produce.
func (r RawOrderRecord) Key() EventKey {
	return EventKey{Retailer: r.Retailer, OrderID: r.OrderID, ItemName: r.ItemName}
}
