package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/papertrade/market"
)

// BinanceTickerURL is the public all-market 24h ticker stream.
const BinanceTickerURL = "wss://stream.binance.com:9443/ws/!ticker@arr"

// Binance streams the all-market ticker array over a websocket.
type Binance struct {
	URL    string
	Header http.Header
	Dialer *websocket.Dialer
}

// NewBinance returns a source for url. An empty url means BinanceTickerURL.
func NewBinance(url string, handshake time.Duration) *Binance {
	if url == "" {
		url = BinanceTickerURL
	}
	d := *websocket.DefaultDialer
	if handshake > 0 {
		d.HandshakeTimeout = handshake
	}
	return &Binance{URL: url, Dialer: &d}
}

func (b *Binance) Name() string { return "binance" }

// Open dials the stream.
func (b *Binance) Open(ctx context.Context) (Session, error) {
	dialer := b.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, b.URL, b.Header)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
			_ = resp.Body.Close()
			return nil, fmt.Errorf("binance: dial http %d: %w (body=%q)", resp.StatusCode, err, trimForErr(string(body)))
		}
		return nil, fmt.Errorf("binance: dial: %w", err)
	}
	return &binanceSession{conn: conn}, nil
}

type binanceSession struct {
	conn *websocket.Conn
	once sync.Once
	err  error
}

func (s *binanceSession) Next(ctx context.Context) ([]market.Quote, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("binance: read: %w", err)
		}
		if kind != websocket.TextMessage {
			continue
		}

		quotes, err := DecodeTickers(data)
		if err != nil {
			return nil, err
		}
		if !anyValid(quotes) {
			continue
		}
		return quotes, nil
	}
}

func (s *binanceSession) Close() error {
	s.once.Do(func() {
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		s.err = s.conn.Close()
	})
	return s.err
}

// binanceTicker is one entry of the !ticker@arr payload. Binance reuses
// letters in both cases for different fields and encoding/json falls
// back to case-insensitive matching, so both halves of each pair we
// touch are declared.
type binanceTicker struct {
	EventType     string `json:"e"`
	EventTime     int64  `json:"E"`
	Symbol        string `json:"s"`
	PriceChange   string `json:"p"`
	ChangePercent string `json:"P"`
	LastPrice     string `json:"c"`
	CloseTime     int64  `json:"C"`
}

// DecodeTickers parses one ticker array message. Every entry is kept in
// message order so a cap counts what Binance sent; one with a missing
// symbol or an unparsable price comes back with a zero price and fails
// Quote.Valid. A malformed message is an error.
func DecodeTickers(data []byte) ([]market.Quote, error) {
	var raw []binanceTicker
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("binance: bad json: %w (msg=%q)", err, trimForErr(string(data)))
	}

	quotes := make([]market.Quote, 0, len(raw))
	for _, t := range raw {
		sym := strings.TrimSpace(t.Symbol)
		price, err := decimal.NewFromString(t.LastPrice)
		if err != nil || !price.IsPositive() {
			price = decimal.Zero
		}
		change, err := decimal.NewFromString(t.ChangePercent)
		if err != nil {
			change = decimal.Zero
		}

		q := market.Quote{Symbol: sym, Price: price, ChangePercent: change}
		if t.EventTime > 0 {
			q.Time = time.UnixMilli(t.EventTime)
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func anyValid(quotes []market.Quote) bool {
	for _, q := range quotes {
		if q.Valid() {
			return true
		}
	}
	return false
}

func trimForErr(s string) string {
	const n = 200
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
