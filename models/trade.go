package models

// Kline is one OHLCV candle from a venue's price history.
type Kline struct {
	Venue       string  `json:"venue"`
	Symbol      string  `json:"symbol"`
	TimestampMs int64   `json:"timestamp_ms"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
}

// OrderRequest describes an order to be placed through a venue's trading
// capability. Venues without trading support reject it with ErrNotSupported.
type OrderRequest struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Type     string  `json:"type"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price,omitempty"`
	Leverage float64 `json:"leverage,omitempty"`
}

// Order is the venue's acknowledgement of a placed order.
type Order struct {
	ID       string  `json:"id"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Type     string  `json:"type"`
	Status   string  `json:"status"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

// Position is a venue-reported open position.
type Position struct {
	Symbol        string  `json:"symbol"`
	Size          float64 `json:"size"`
	EntryPrice    float64 `json:"entry_price"`
	UnrealizedPnl float64 `json:"unrealized_pnl"`
	Leverage      float64 `json:"leverage"`
}
