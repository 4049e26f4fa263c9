package pipeline

import (
	"github.com/nao1215/deliverycal/internal/browser"
	"github.com/nao1215/deliverycal/internal/model"
	"github.com/nao1215/deliverycal/internal/retailer"
)

// SessionFactory creates a retailer session driving b.
type SessionFactory func(b browser.Browser) retailer.Session

// Source is one retailer of a run.
type Source struct {
	// Retailer names the source in summaries before a session exists.
	Retailer model.Retailer

	// Open creates the session once a browser is available.
	Open SessionFactory
}
