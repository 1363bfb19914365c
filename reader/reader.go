package reader

import (
	"context"
	"sort"

	"fundingflow/config"
	"fundingflow/models"
)

// PaginationMode describes how a venue's history endpoint signals exhaustion.
type PaginationMode int

const (
	// CursorAdvance walks the window until the cursor passes the end bound;
	// the API keeps returning pages as long as data exists.
	CursorAdvance PaginationMode = iota
	// FullPageTerminated stops as soon as a page comes back shorter than the
	// requested limit.
	FullPageTerminated
)

func (m PaginationMode) String() string {
	switch m {
	case CursorAdvance:
		return "cursor_advance"
	case FullPageTerminated:
		return "full_page_terminated"
	default:
		return "unknown"
	}
}

// FundingSource is the page-fetch capability the Retriever drives to
// exhaustion. A page covers [startMs, endMs] capped at limit records; records
// may arrive unsorted or overlapping across pages.
type FundingSource interface {
	Venue() string
	Symbol() string
	PaginationMode() PaginationMode
	FetchFundingPage(ctx context.Context, startMs, endMs int64, limit int) ([]models.FundingRecord, error)
}

// Venue is the full capability surface a venue adapter satisfies. Historical
// retrieval is implemented by every adapter; the trading capabilities are
// declared so a future execution layer has a stable surface, and currently
// report models.ErrNotSupported.
type Venue interface {
	FundingSource

	FetchKlines(ctx context.Context, interval string, startMs, endMs int64, limit int) ([]models.Kline, error)

	PlaceOrder(ctx context.Context, req models.OrderRequest) (models.Order, error)
	Position(ctx context.Context, symbol string) (models.Position, error)
	ClosePosition(ctx context.Context, symbol string) (models.Order, error)
}

// Constructor builds a venue adapter bound to one trading symbol.
type Constructor func(cfg *config.Config, symbol string) (Venue, error)

var registry = map[string]Constructor{}

// Register makes a venue adapter available under the given name. Adapters
// register themselves from their package init.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// New constructs the adapter registered under name. An unknown venue fails
// fast before any network activity.
func New(name string, cfg *config.Config, symbol string) (Venue, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, &models.InvalidParameterError{Param: "venue", Reason: "unsupported venue " + name}
	}
	return ctor(cfg, symbol)
}

// Venues lists the registered venue names in stable order.
func Venues() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
