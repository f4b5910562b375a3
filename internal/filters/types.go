package filters

import "fmt"

// Asset is a crypto asset tradable on the P2P marketplace
type Asset string

const (
	AssetUSDT Asset = "USDT"
	AssetDAI  Asset = "DAI"
	AssetBUSD Asset = "BUSD"
	AssetBTC  Asset = "BTC"
	AssetETH  Asset = "ETH"
)

// Side is the trade direction from the user's point of view
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// PaymentMethod identifies an upstream payment rail. PaymentAll is a
// wildcard meaning no payment filter is applied.
type PaymentMethod string

const (
	PaymentAll          PaymentMethod = "all-payments"
	PaymentMercadoPago  PaymentMethod = "MercadoPagoNew"
	PaymentBrubank      PaymentMethod = "BancoBrubankNew"
	PaymentUala         PaymentMethod = "UalaNew"
	PaymentBankTransfer PaymentMethod = "BankArgentina"
	PaymentCash         PaymentMethod = "CashInPerson"
)

// State is the full filter selection driving an offer search.
// An empty Asset means the user has not picked one yet; no search is
// issued in that state.
type State struct {
	Asset         Asset         `json:"currency"`
	Side          Side          `json:"condition"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	VerifiedOnly  bool          `json:"verifiedUser"`
}

// Selected reports whether an asset has been chosen
func (s State) Selected() bool {
	return s.Asset != ""
}

// Normalized returns a copy with unset optional fields replaced by defaults
func (s State) Normalized() State {
	if s.Side == "" {
		s.Side = SideBuy
	}
	if s.PaymentMethod == "" {
		s.PaymentMethod = PaymentAll
	}
	return s
}

var supportedAssets = map[Asset]bool{
	AssetUSDT: true,
	AssetDAI:  true,
	AssetBUSD: true,
	AssetBTC:  true,
	AssetETH:  true,
}

var supportedPayments = map[PaymentMethod]bool{
	PaymentAll:          true,
	PaymentMercadoPago:  true,
	PaymentBrubank:      true,
	PaymentUala:         true,
	PaymentBankTransfer: true,
	PaymentCash:         true,
}

// ParseAsset validates a raw asset value
func ParseAsset(raw string) (Asset, error) {
	a := Asset(raw)
	if !supportedAssets[a] {
		return "", fmt.Errorf("unsupported asset: %q", raw)
	}
	return a, nil
}

// ParseSide validates a raw trade direction
func ParseSide(raw string) (Side, error) {
	s := Side(raw)
	if s != SideBuy && s != SideSell {
		return "", fmt.Errorf("invalid trade side: %q", raw)
	}
	return s, nil
}

// ParsePaymentMethod validates a raw payment method value
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	m := PaymentMethod(raw)
	if !supportedPayments[m] {
		return "", fmt.Errorf("unsupported payment method: %q", raw)
	}
	return m, nil
}

// Validate checks the full selection. An empty asset is allowed only
// as the initial, nothing-selected state.
func (s State) Validate() error {
	if s.Asset != "" {
		if _, err := ParseAsset(string(s.Asset)); err != nil {
			return err
		}
	}
	if s.Side != "" {
		if _, err := ParseSide(string(s.Side)); err != nil {
			return err
		}
	}
	if s.PaymentMethod != "" {
		if _, err := ParsePaymentMethod(string(s.PaymentMethod)); err != nil {
			return err
		}
	}
	return nil
}
