package p2p

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p2pquotes/internal/filters"
)

const searchResponseFixture = `{
	"code": "000000",
	"message": "",
	"success": true,
	"total": 2,
	"data": [
		{
			"adv": {
				"advNo": "1130044",
				"price": "1251.50",
				"asset": "USDT",
				"fiatUnit": "ARS",
				"minSingleTransAmount": "5000",
				"maxSingleTransAmount": "250000",
				"tradeMethods": [
					{"identifier": "MercadoPagoNew", "tradeMethodName": "MercadoPago"}
				]
			},
			"advertiser": {
				"nickName": "cryptokiosco",
				"userType": "merchant",
				"monthOrderCount": 312,
				"monthFinishRate": "0.98"
			}
		},
		{
			"adv": {
				"advNo": "1130045",
				"price": "1253.00",
				"asset": "USDT",
				"fiatUnit": "ARS",
				"minSingleTransAmount": "1000",
				"maxSingleTransAmount": "80000",
				"tradeMethods": [
					{"identifier": "BankArgentina", "tradeMethodName": "Bank Transfer"}
				]
			},
			"advertiser": {
				"nickName": "pesohodler",
				"userType": "user",
				"monthOrderCount": 40,
				"monthFinishRate": "0.91"
			}
		}
	]
}`

func TestNewClient(t *testing.T) {
	t.Run("creates client with default configuration", func(t *testing.T) {
		client := NewClient("https://p2p.binance.com")

		assert.NotNil(t, client)
		assert.Equal(t, "https://p2p.binance.com", client.BaseURL())
		assert.Equal(t, 10*time.Second, client.Timeout())
		assert.Equal(t, 0, client.MaxRetries())
	})

	t.Run("applies custom options", func(t *testing.T) {
		client := NewClient("https://p2p.binance.com",
			WithTimeout(3*time.Second),
			WithMaxRetries(2),
			WithRateLimit(100, 10),
			WithFiat("USD"),
			WithRows(20),
		)

		assert.Equal(t, 3*time.Second, client.Timeout())
		assert.Equal(t, 2, client.MaxRetries())
	})
}

func TestClient_Search(t *testing.T) {
	t.Run("parses a search response and preserves upstream order", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/bapi/c2c/v2/friendly/c2c/adv/search", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(searchResponseFixture))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		page, err := client.Search(context.Background(), filters.State{
			Asset: filters.AssetUSDT,
			Side:  filters.SideBuy,
		})

		require.NoError(t, err)
		require.Len(t, page.Offers, 2)
		assert.Equal(t, 2, page.Total)
		assert.False(t, page.IsEmpty())

		first := page.Offers[0]
		assert.Equal(t, "1130044", first.AdvertID)
		assert.Equal(t, "1251.5", first.Price.String())
		assert.Equal(t, "cryptokiosco", first.Advertiser)
		assert.True(t, first.Verified)
		assert.Equal(t, []string{"MercadoPagoNew"}, first.PaymentMethods)

		second := page.Offers[1]
		assert.Equal(t, "pesohodler", second.Advertiser)
		assert.False(t, second.Verified)
	})

	t.Run("sends the filter selection upstream", func(t *testing.T) {
		var got searchRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Write([]byte(`{"code":"000000","success":true,"total":0,"data":[]}`))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		_, err := client.Search(context.Background(), filters.State{
			Asset:         filters.AssetBTC,
			Side:          filters.SideSell,
			PaymentMethod: filters.PaymentMercadoPago,
			VerifiedOnly:  true,
		})

		require.NoError(t, err)
		assert.Equal(t, "BTC", got.Asset)
		assert.Equal(t, "ARS", got.Fiat)
		assert.Equal(t, "SELL", got.TradeType)
		assert.Equal(t, []string{"MercadoPagoNew"}, got.PayTypes)
		require.NotNil(t, got.PublisherType)
		assert.Equal(t, "merchant", *got.PublisherType)
	})

	t.Run("wildcard payment method sends no payment filter", func(t *testing.T) {
		var got searchRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Write([]byte(`{"code":"000000","success":true,"total":0,"data":[]}`))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		_, err := client.Search(context.Background(), filters.State{
			Asset:         filters.AssetUSDT,
			PaymentMethod: filters.PaymentAll,
		})

		require.NoError(t, err)
		assert.Empty(t, got.PayTypes)
		assert.Nil(t, got.PublisherType)
	})

	t.Run("empty result is not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code":"000000","success":true,"total":0,"data":[]}`))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		page, err := client.Search(context.Background(), filters.State{Asset: filters.AssetDAI})

		require.NoError(t, err)
		assert.True(t, page.IsEmpty())
		assert.NotEmpty(t, page.SourceURL)
	})

	t.Run("upstream failure envelope surfaces as an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code":"000002","message":"illegal parameter","success":false,"data":null}`))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		page, err := client.Search(context.Background(), filters.State{Asset: filters.AssetUSDT})

		assert.Error(t, err)
		assert.Nil(t, page)
		assert.Contains(t, err.Error(), "000002")
	})

	t.Run("HTTP error surfaces as an error, never as empty result", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewClient(server.URL)
		page, err := client.Search(context.Background(), filters.State{Asset: filters.AssetUSDT})

		assert.Error(t, err)
		assert.Nil(t, page)
	})

	t.Run("malformed body surfaces as an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code":"000000","success":`))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		_, err := client.Search(context.Background(), filters.State{Asset: filters.AssetUSDT})

		assert.Error(t, err)
	})

	t.Run("cancelled context settles as cancelled, not data", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
			w.Write([]byte(searchResponseFixture))
		}))
		defer server.Close()
		defer close(release)

		client := NewClient(server.URL)
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			_, err := client.Search(ctx, filters.State{Asset: filters.AssetUSDT})
			done <- err
		}()

		cancel()
		err := <-done

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("requires an asset", func(t *testing.T) {
		client := NewClient("http://unused")
		_, err := client.Search(context.Background(), filters.State{})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "asset is required")
	})

	t.Run("does not retry a failed search by default", func(t *testing.T) {
		callCount := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callCount++
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewClient(server.URL)
		_, err := client.Search(context.Background(), filters.State{Asset: filters.AssetUSDT})

		assert.Error(t, err)
		assert.Equal(t, 1, callCount)
	})

	t.Run("retries when configured", func(t *testing.T) {
		callCount := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callCount++
			if callCount < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"code":"000000","success":true,"total":0,"data":[]}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, WithMaxRetries(3))
		_, err := client.Search(context.Background(), filters.State{Asset: filters.AssetUSDT})

		assert.NoError(t, err)
		assert.Equal(t, 3, callCount)
	})
}

func TestClient_TradeURL(t *testing.T) {
	client := NewClient("http://unused")

	t.Run("buy with wildcard payment", func(t *testing.T) {
		url := client.TradeURL(filters.State{Asset: filters.AssetUSDT, Side: filters.SideBuy, PaymentMethod: filters.PaymentAll})
		assert.Equal(t, "https://p2p.binance.com/en/trade/USDT?fiat=ARS", url)
	})

	t.Run("sell with concrete payment", func(t *testing.T) {
		url := client.TradeURL(filters.State{Asset: filters.AssetBTC, Side: filters.SideSell, PaymentMethod: filters.PaymentMercadoPago})
		assert.Equal(t, "https://p2p.binance.com/en/trade/sell/MercadoPagoNew/BTC?fiat=ARS", url)
	})
}
