package broker

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "mexc-trader/internal/errors"
	"mexc-trader/internal/models"
)

// Side codes used by the MEXC futures order API.
const (
	mexcOpenLong   = 1
	mexcOpenShort  = 2
	mexcCloseLong  = 3
	mexcCloseShort = 4
)

// orderBookDepth is the fixed depth over which bid/ask notional is summed.
const orderBookDepth = 40

// MEXCConfig holds configuration for the MEXC futures client.
type MEXCConfig struct {
	BaseURL        string
	Symbol         string
	CandleInterval string
	APIKey         string
	APISecret      string
	HTTPClient     *http.Client
}

// MEXCBroker implements the Broker interface against the MEXC contract API.
// Market data endpoints are public; order endpoints require credentials.
type MEXCBroker struct {
	baseURL        string
	symbol         string
	candleInterval string
	apiKey         string
	apiSecret      string
	http           *http.Client
}

// NewMEXCBroker creates a new MEXC futures broker.
func NewMEXCBroker(cfg MEXCConfig) *MEXCBroker {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://contract.mexc.com/api"
	}
	interval := cfg.CandleInterval
	if interval == "" {
		interval = "Min1"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &MEXCBroker{
		baseURL:        strings.TrimRight(baseURL, "/"),
		symbol:         cfg.Symbol,
		candleInterval: interval,
		apiKey:         cfg.APIKey,
		apiSecret:      cfg.APISecret,
		http:           httpClient,
	}
}

// flexFloat decodes JSON numbers that may arrive quoted or bare.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// FetchPrice returns the contract fair price for the configured symbol.
func (b *MEXCBroker) FetchPrice(ctx context.Context) (float64, error) {
	var resp struct {
		Data []struct {
			FairPrice flexFloat `json:"fairPrice"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/v1/contract/ticker?symbol=%s", b.symbol)
	if err := b.getJSON(ctx, path, &resp); err != nil {
		return 0, err
	}
	if len(resp.Data) == 0 {
		return 0, fmt.Errorf("ticker returned no data for %s", b.symbol)
	}
	return float64(resp.Data[0].FairPrice), nil
}

// FetchOrderBook returns the bid/ask notional summed over the fixed depth.
func (b *MEXCBroker) FetchOrderBook(ctx context.Context) (models.OrderBookSnapshot, error) {
	var resp struct {
		Data struct {
			Bids [][]flexFloat `json:"bids"`
			Asks [][]flexFloat `json:"asks"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/v1/contract/depth?symbol=%s&limit=%d", b.symbol, orderBookDepth)
	if err := b.getJSON(ctx, path, &resp); err != nil {
		return models.OrderBookSnapshot{}, err
	}
	return models.OrderBookSnapshot{
		BidNotional: sumNotional(resp.Data.Bids),
		AskNotional: sumNotional(resp.Data.Asks),
	}, nil
}

func sumNotional(levels [][]flexFloat) float64 {
	var total float64
	for _, level := range levels {
		if len(level) < 2 {
			continue
		}
		total += float64(level[0]) * float64(level[1])
	}
	return total
}

// FetchCandles returns the most recent candles, oldest first.
func (b *MEXCBroker) FetchCandles(ctx context.Context, count int) ([]models.Candle, error) {
	var resp struct {
		Data [][]flexFloat `json:"data"`
	}
	path := fmt.Sprintf("/v1/contract/kline?symbol=%s&interval=%s&limit=%d", b.symbol, b.candleInterval, count)
	if err := b.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	candles := make([]models.Candle, 0, len(resp.Data))
	for _, row := range resp.Data {
		if len(row) < 6 {
			continue
		}
		candles = append(candles, models.Candle{
			Timestamp: candleTime(int64(row[0])),
			Open:      float64(row[1]),
			High:      float64(row[2]),
			Low:       float64(row[3]),
			Close:     float64(row[4]),
			Volume:    float64(row[5]),
		})
	}
	return candles, nil
}

// candleTime normalizes kline timestamps, which arrive in seconds or
// milliseconds depending on the endpoint version.
func candleTime(ts int64) time.Time {
	if ts > 1e12 {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}

// PlaceEntryOrder submits a signed market order opening a position.
func (b *MEXCBroker) PlaceEntryOrder(ctx context.Context, side models.OrderSide, quantity float64, leverage int, stopPrice, targetPrice float64) (*OrderResult, error) {
	sideCode := mexcOpenLong
	if side == models.OrderSideSell {
		sideCode = mexcOpenShort
	}
	params := map[string]string{
		"client_order_id":   fmt.Sprintf("mexc-trader-%d", time.Now().UnixMilli()),
		"symbol":            b.symbol,
		"price":             "0",
		"vol":               formatQuantity(quantity),
		"leverage":          strconv.Itoa(leverage),
		"side":              strconv.Itoa(sideCode),
		"type":              "1", // market order
		"open_type":         "1", // isolated margin
		"stop_loss_price":   formatPrice(stopPrice),
		"take_profit_price": formatPrice(targetPrice),
	}
	return b.submitOrder(ctx, params)
}

// PlaceExitOrder submits a signed market order closing a position. The side
// is the closing order's side: SELL closes a long, BUY closes a short.
func (b *MEXCBroker) PlaceExitOrder(ctx context.Context, side models.OrderSide, quantity float64) (*OrderResult, error) {
	sideCode := mexcCloseLong
	if side == models.OrderSideBuy {
		sideCode = mexcCloseShort
	}
	params := map[string]string{
		"client_order_id": fmt.Sprintf("mexc-trader-%d", time.Now().UnixMilli()),
		"symbol":          b.symbol,
		"price":           "0",
		"vol":             formatQuantity(quantity),
		"side":            strconv.Itoa(sideCode),
		"type":            "1",
	}
	return b.submitOrder(ctx, params)
}

func (b *MEXCBroker) submitOrder(ctx context.Context, params map[string]string) (*OrderResult, error) {
	var resp struct {
		Success bool      `json:"success"`
		Code    int       `json:"code"`
		Message string    `json:"message"`
		Data    flexFloat `json:"data"`
	}
	if err := b.signedPost(ctx, "/v1/private/order/submit", params, &resp); err != nil {
		return nil, err
	}
	if !resp.Success && resp.Code != 0 {
		return nil, fmt.Errorf("%w [%d]: %s", apperrors.ErrOrderRejected, resp.Code, resp.Message)
	}
	return &OrderResult{
		OrderID: strconv.FormatFloat(float64(resp.Data), 'f', -1, 64),
		Status:  "FILLED",
		Message: resp.Message,
	}, nil
}

// sign builds the sorted query string and its HMAC-SHA256 signature.
func (b *MEXCBroker) sign(params map[string]string) (query, signature string, err error) {
	if b.apiKey == "" || b.apiSecret == "" {
		return "", "", apperrors.ErrMissingCredentials
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	query = strings.Join(pairs, "&")
	mac := hmac.New(sha256.New, []byte(b.apiSecret))
	mac.Write([]byte(query))
	return query, hex.EncodeToString(mac.Sum(nil)), nil
}

func (b *MEXCBroker) signedPost(ctx context.Context, path string, params map[string]string, out interface{}) error {
	signed := make(map[string]string, len(params)+1)
	for k, v := range params {
		signed[k] = v
	}
	signed["req_time"] = strconv.FormatInt(time.Now().UnixMilli(), 10)

	query, signature, err := b.sign(signed)
	if err != nil {
		return err
	}

	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding order payload: %w", err)
	}

	url := fmt.Sprintf("%s%s?%s&sign=%s", b.baseURL, path, query, signature)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", b.apiKey)

	return b.do(req, out)
}

func (b *MEXCBroker) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	return b.do(req, out)
}

func (b *MEXCBroker) do(req *http.Request, out interface{}) error {
	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", req.URL.Path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
	}
	return nil
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', 3, 64)
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
