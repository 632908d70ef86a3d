package broker

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mexc-trader/internal/models"
)

func newTestBroker(t *testing.T, handler http.HandlerFunc) *MEXCBroker {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewMEXCBroker(MEXCConfig{
		BaseURL:   server.URL,
		Symbol:    "SOL_USDT",
		APIKey:    "test-key",
		APISecret: "test-secret",
	})
}

func TestFetchPrice(t *testing.T) {
	b := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.RawQuery, "symbol=SOL_USDT") {
			t.Errorf("missing symbol in query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"data":[{"fairPrice":"142.35"}]}`))
	})

	price, err := b.FetchPrice(context.Background())
	if err != nil {
		t.Fatalf("FetchPrice: %v", err)
	}
	if price != 142.35 {
		t.Errorf("price = %v, want 142.35", price)
	}
}

func TestFetchPriceEmptyData(t *testing.T) {
	b := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})

	if _, err := b.FetchPrice(context.Background()); err == nil {
		t.Fatal("expected error on empty ticker data")
	}
}

func TestFetchOrderBookSumsNotional(t *testing.T) {
	b := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.RawQuery, "limit=40") {
			t.Errorf("expected fixed depth limit, got %s", r.URL.RawQuery)
		}
		// price * size: bids 100*2 + 99*3 = 497, asks 101*1 = 101
		w.Write([]byte(`{"data":{"bids":[[100,2],["99","3"]],"asks":[[101,1]]}}`))
	})

	book, err := b.FetchOrderBook(context.Background())
	if err != nil {
		t.Fatalf("FetchOrderBook: %v", err)
	}
	if book.BidNotional != 497 {
		t.Errorf("bid notional = %v, want 497", book.BidNotional)
	}
	if book.AskNotional != 101 {
		t.Errorf("ask notional = %v, want 101", book.AskNotional)
	}
}

func TestFetchCandles(t *testing.T) {
	b := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			[1717200000,100,101,99,100.5,1200],
			[1717200060000,"100.5","102","100","101.5","1300"]
		]}`))
	})

	candles, err := b.FetchCandles(context.Background(), 120)
	if err != nil {
		t.Fatalf("FetchCandles: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("got %d candles, want 2", len(candles))
	}
	// Second-resolution and millisecond-resolution timestamps normalize to
	// the same minute boundary sequence.
	if !candles[1].Timestamp.Equal(candles[0].Timestamp.Add(time.Minute)) {
		t.Errorf("timestamps not normalized: %v then %v", candles[0].Timestamp, candles[1].Timestamp)
	}
	if candles[1].Close != 101.5 || candles[1].Volume != 1300 {
		t.Errorf("quoted fields not parsed: %+v", candles[1])
	}
}

func TestSignSortsParamsAndMatchesHMAC(t *testing.T) {
	b := NewMEXCBroker(MEXCConfig{Symbol: "SOL_USDT", APIKey: "key", APISecret: "secret"})

	params := map[string]string{
		"vol":    "1.000",
		"symbol": "SOL_USDT",
		"side":   "1",
	}
	query, signature, err := b.sign(params)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if query != "side=1&symbol=SOL_USDT&vol=1.000" {
		t.Errorf("query not sorted: %s", query)
	}

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte(query))
	if signature != hex.EncodeToString(mac.Sum(nil)) {
		t.Error("signature does not match reference HMAC")
	}
}

func TestSignRequiresCredentials(t *testing.T) {
	b := NewMEXCBroker(MEXCConfig{Symbol: "SOL_USDT"})
	if _, _, err := b.sign(map[string]string{"a": "b"}); err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestPlaceEntryOrderSendsSignedRequest(t *testing.T) {
	var gotQuery string
	var gotKey string
	b := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("X-API-KEY")
		w.Write([]byte(`{"success":true,"code":0,"data":123456}`))
	})

	result, err := b.PlaceEntryOrder(context.Background(), models.OrderSideBuy, 1.234, 10, 99.8, 100.4)
	if err != nil {
		t.Fatalf("PlaceEntryOrder: %v", err)
	}
	if result.OrderID != "123456" {
		t.Errorf("order id = %s, want 123456", result.OrderID)
	}
	if gotKey != "test-key" {
		t.Errorf("X-API-KEY = %s, want test-key", gotKey)
	}
	for _, fragment := range []string{"side=1", "vol=1.234", "req_time=", "&sign="} {
		if !strings.Contains(gotQuery, fragment) {
			t.Errorf("query missing %q: %s", fragment, gotQuery)
		}
	}
}

func TestPlaceExitOrderSideCodes(t *testing.T) {
	var gotQuery string
	b := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"success":true,"code":0,"data":1}`))
	})

	// SELL closes a long: side code 3.
	if _, err := b.PlaceExitOrder(context.Background(), models.OrderSideSell, 2); err != nil {
		t.Fatalf("PlaceExitOrder: %v", err)
	}
	if !strings.Contains(gotQuery, "side=3") {
		t.Errorf("expected close-long side code, got %s", gotQuery)
	}

	// BUY closes a short: side code 4.
	if _, err := b.PlaceExitOrder(context.Background(), models.OrderSideBuy, 2); err != nil {
		t.Fatalf("PlaceExitOrder: %v", err)
	}
	if !strings.Contains(gotQuery, "side=4") {
		t.Errorf("expected close-short side code, got %s", gotQuery)
	}
}

func TestSubmitOrderRejection(t *testing.T) {
	b := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"code":602,"message":"insufficient margin"}`))
	})

	if _, err := b.PlaceEntryOrder(context.Background(), models.OrderSideBuy, 1, 10, 99, 101); err == nil {
		t.Fatal("expected rejection error")
	}
}

func TestFormatQuantity(t *testing.T) {
	if got := formatQuantity(1.23456); got != "1.235" {
		t.Errorf("formatQuantity = %s, want 1.235", got)
	}
	if got := formatQuantity(500); got != "500.000" {
		t.Errorf("formatQuantity = %s, want 500.000", got)
	}
}

func TestPaperBrokerFills(t *testing.T) {
	p := NewPaperBroker(nil)

	first, err := p.PlaceEntryOrder(context.Background(), models.OrderSideBuy, 1, 10, 99, 101)
	if err != nil {
		t.Fatalf("paper entry: %v", err)
	}
	second, err := p.PlaceExitOrder(context.Background(), models.OrderSideSell, 1)
	if err != nil {
		t.Fatalf("paper exit: %v", err)
	}
	if first.Status != "FILLED" || second.Status != "FILLED" {
		t.Error("paper orders always fill")
	}
	if first.OrderID == second.OrderID {
		t.Error("paper order ids must be unique")
	}
	if !strings.HasPrefix(first.OrderID, "PAPER_") {
		t.Errorf("unexpected paper id: %s", first.OrderID)
	}

	// Without a data source, market data calls fail rather than fabricate.
	if _, err := p.FetchPrice(context.Background()); err == nil {
		t.Error("expected error without a data source")
	}
}
