package p2p

import (
	"github.com/shopspring/decimal"
)

// Offer is a single P2P advertisement as returned by the marketplace.
// The controller passes these through untouched; only the adapters and
// the presentation layer look inside.
type Offer struct {
	AdvertID       string          `json:"advert_id"`
	Price          decimal.Decimal `json:"price"`
	Fiat           string          `json:"fiat"`
	Asset          string          `json:"asset"`
	MinAmount      decimal.Decimal `json:"min_amount"`
	MaxAmount      decimal.Decimal `json:"max_amount"`
	Advertiser     string          `json:"advertiser"`
	Verified       bool            `json:"verified"`
	OrdersMonth    int             `json:"orders_month"`
	FinishRate     decimal.Decimal `json:"finish_rate"`
	PaymentMethods []string        `json:"payment_methods"`
}

// OfferPage is the result of one offer search: the offers in upstream
// order plus a deep link to the equivalent marketplace view.
type OfferPage struct {
	Offers    []Offer `json:"offers"`
	SourceURL string  `json:"source_url"`
	Total     int     `json:"total"`
}

// IsEmpty reports whether the search succeeded but matched nothing
func (p *OfferPage) IsEmpty() bool {
	return p == nil || len(p.Offers) == 0
}

// searchRequest is the upstream C2C advert search body
type searchRequest struct {
	Page          int      `json:"page"`
	Rows          int      `json:"rows"`
	Asset         string   `json:"asset"`
	Fiat          string   `json:"fiat"`
	TradeType     string   `json:"tradeType"`
	PayTypes      []string `json:"payTypes,omitempty"`
	PublisherType *string  `json:"publisherType"`
}

// searchResponse is the upstream C2C advert search envelope
type searchResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Success bool        `json:"success"`
	Total   int         `json:"total"`
	Data    []searchRow `json:"data"`
}

type searchRow struct {
	Adv struct {
		AdvNo                 string `json:"advNo"`
		Price                 string `json:"price"`
		Asset                 string `json:"asset"`
		FiatUnit              string `json:"fiatUnit"`
		MinSingleTransAmount  string `json:"minSingleTransAmount"`
		MaxSingleTransAmount  string `json:"maxSingleTransAmount"`
		TradeMethods          []struct {
			Identifier      string `json:"identifier"`
			TradeMethodName string `json:"tradeMethodName"`
		} `json:"tradeMethods"`
	} `json:"adv"`
	Advertiser struct {
		NickName        string `json:"nickName"`
		UserType        string `json:"userType"`
		MonthOrderCount int    `json:"monthOrderCount"`
		MonthFinishRate string `json:"monthFinishRate"`
	} `json:"advertiser"`
}
