// Package exchange adapts a spot-exchange REST API to both the
// usecase.ExchangeClient (immediate market order) and usecase.QuoteAcceptClient
// (request/accept/poll) ports the rebalancer depends on (spec §6). HMAC
// request signing is stdlib crypto/hmac: no example in the pack ships a
// concrete exchange SDK to ground a third-party signer on (see DESIGN.md).
package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/v4vapp/bridge/internal/usecase"
)

// Adapter implements both usecase.ExchangeClient and usecase.QuoteAcceptClient.
type Adapter struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Config configures an Adapter.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
	Logger    zerolog.Logger
}

// NewAdapter creates a new exchange Adapter.
func NewAdapter(cfg Config) *Adapter {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Adapter{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}
}

func (a *Adapter) sign(params url.Values) string {
	mac := hmac.New(sha256.New, []byte(a.apiSecret))
	mac.Write([]byte(params.Encode()))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *Adapter) doSigned(ctx context.Context, method, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("signature", a.sign(params))

	var body *bytes.Reader
	fullURL := a.baseURL + path
	if method == http.MethodGet {
		fullURL += "?" + params.Encode()
		body = bytes.NewReader(nil)
	} else {
		body = bytes.NewReader([]byte(params.Encode()))
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("X-API-KEY", a.apiKey)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("exchange %s %s: server error %d", method, path, resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("exchange %s %s: client error %d", method, path, resp.StatusCode))
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 20 * time.Second
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

type orderResponse struct {
	ExecutedQty      string `json:"executedQty"`
	CummulativeQuote string `json:"cummulativeQuoteQty"`
	Fills            []struct {
		Price string `json:"price"`
		Qty   string `json:"qty"`
		Fee   string `json:"commission"`
	} `json:"fills"`
}

func (r *orderResponse) toFill() (*usecase.ExchangeFill, error) {
	filledQty, err := decimal.NewFromString(orDefault(r.ExecutedQty, "0"))
	if err != nil {
		return nil, err
	}
	quoteReceived, err := decimal.NewFromString(orDefault(r.CummulativeQuote, "0"))
	if err != nil {
		return nil, err
	}

	fee := decimal.Zero
	for _, f := range r.Fills {
		d, err := decimal.NewFromString(orDefault(f.Fee, "0"))
		if err == nil {
			fee = fee.Add(d)
		}
	}

	avgPrice := decimal.Zero
	if !filledQty.IsZero() {
		avgPrice = quoteReceived.Div(filledQty)
	}

	return &usecase.ExchangeFill{
		FilledQty:     filledQty,
		QuoteReceived: quoteReceived,
		AvgPrice:      avgPrice,
		Fee:           fee,
	}, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// MarketSell executes an immediate market sell of qty base units.
func (a *Adapter) MarketSell(ctx context.Context, pair string, qty decimal.Decimal, clientID string) (*usecase.ExchangeFill, error) {
	params := url.Values{
		"symbol":           {pair},
		"side":             {"SELL"},
		"type":             {"MARKET"},
		"quantity":         {qty.String()},
		"newClientOrderId": {clientID},
	}
	var resp orderResponse
	if err := a.doSigned(ctx, http.MethodPost, "/api/v3/order", params, &resp); err != nil {
		return nil, err
	}
	return resp.toFill()
}

// MarketBuy executes an immediate market buy spending quoteQty quote units.
func (a *Adapter) MarketBuy(ctx context.Context, pair string, quoteQty decimal.Decimal, clientID string) (*usecase.ExchangeFill, error) {
	params := url.Values{
		"symbol":           {pair},
		"side":             {"BUY"},
		"type":             {"MARKET"},
		"quoteOrderQty":    {quoteQty.String()},
		"newClientOrderId": {clientID},
	}
	var resp orderResponse
	if err := a.doSigned(ctx, http.MethodPost, "/api/v3/order", params, &resp); err != nil {
		return nil, err
	}
	return resp.toFill()
}

// GetBalance returns the free balance of one asset.
func (a *Adapter) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	var resp struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := a.doSigned(ctx, http.MethodGet, "/api/v3/account", nil, &resp); err != nil {
		return decimal.Zero, err
	}
	for _, b := range resp.Balances {
		if b.Asset == asset {
			return decimal.NewFromString(b.Free)
		}
	}
	return decimal.Zero, nil
}

// GetMinOrderRequirements returns the exchange's LOT_SIZE/MIN_NOTIONAL
// filters for a trading pair (spec §4.8 rebalance thresholds).
func (a *Adapter) GetMinOrderRequirements(ctx context.Context, pair string) (decimal.Decimal, decimal.Decimal, error) {
	var resp struct {
		Symbols []struct {
			Symbol  string `json:"symbol"`
			Filters []struct {
				FilterType  string `json:"filterType"`
				MinQty      string `json:"minQty"`
				MinNotional string `json:"minNotional"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	if err := a.doSigned(ctx, http.MethodGet, "/api/v3/exchangeInfo", url.Values{"symbol": {pair}}, &resp); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	minQty, minNotional := decimal.Zero, decimal.Zero
	for _, s := range resp.Symbols {
		if s.Symbol != pair {
			continue
		}
		for _, f := range s.Filters {
			switch f.FilterType {
			case "LOT_SIZE":
				minQty, _ = decimal.NewFromString(f.MinQty)
			case "MIN_NOTIONAL", "NOTIONAL":
				minNotional, _ = decimal.NewFromString(f.MinNotional)
			}
		}
	}
	return minQty, minNotional, nil
}

// GetPrice returns the current mid/last price for a pair.
func (a *Adapter) GetPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	var resp struct {
		Price string `json:"price"`
	}
	if err := a.doSigned(ctx, http.MethodGet, "/api/v3/ticker/price", url.Values{"symbol": {pair}}, &resp); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(resp.Price)
}

// RequestQuote requests a firm, time-limited quote from exchanges offering
// the request/accept/poll protocol instead of plain market orders.
func (a *Adapter) RequestQuote(ctx context.Context, pair string, qty decimal.Decimal, side string) (string, decimal.Decimal, time.Time, error) {
	var resp struct {
		QuoteID   string `json:"quoteId"`
		Rate      string `json:"rate"`
		ExpiresIn int64  `json:"validTimeMs"`
	}
	params := url.Values{"symbol": {pair}, "baseQty": {qty.String()}, "side": {side}}
	if err := a.doSigned(ctx, http.MethodPost, "/api/v3/otc/quote", params, &resp); err != nil {
		return "", decimal.Zero, time.Time{}, err
	}
	rate, err := decimal.NewFromString(resp.Rate)
	if err != nil {
		return "", decimal.Zero, time.Time{}, err
	}
	return resp.QuoteID, rate, time.Now().Add(time.Duration(resp.ExpiresIn) * time.Millisecond), nil
}

// AcceptQuote commits to a previously requested quote.
func (a *Adapter) AcceptQuote(ctx context.Context, quoteID string) error {
	var resp struct {
		OrderID string `json:"orderId"`
	}
	return a.doSigned(ctx, http.MethodPost, "/api/v3/otc/quote/accept", url.Values{"quoteId": {quoteID}}, &resp)
}

// PollStatus checks whether an accepted quote has settled.
func (a *Adapter) PollStatus(ctx context.Context, quoteID string) (*usecase.ExchangeFill, bool, error) {
	var resp struct {
		Status string `json:"status"`
		orderResponse
	}
	if err := a.doSigned(ctx, http.MethodGet, "/api/v3/otc/quote/status", url.Values{"quoteId": {quoteID}}, &resp); err != nil {
		return nil, false, err
	}
	if resp.Status != "FILLED" {
		return nil, false, nil
	}
	fill, err := resp.orderResponse.toFill()
	if err != nil {
		return nil, false, err
	}
	return fill, true, nil
}
