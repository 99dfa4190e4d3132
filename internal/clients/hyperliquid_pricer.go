package clients

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	hyperliquid "github.com/sonirico/go-hyperliquid"

	"github.com/dexterlabs/dexter/internal/domain"
)

// HyperliquidPricer price oracle backed by the Hyperliquid public Info API.
type HyperliquidPricer struct {
	info        *hyperliquid.Info
	accountAddr string
}

// NewHyperliquidPricer creates a new Hyperliquid pricer.
func NewHyperliquidPricer(info *hyperliquid.Info) *HyperliquidPricer {
	return &HyperliquidPricer{info: info}
}

// NewHyperliquidPricerFromKey derives the account address from the hex
// private key and builds the pricer on top of a fresh exchange handle. The
// SDK authenticates with a secp256k1 key even for read paths.
func NewHyperliquidPricerFromKey(privateKeyHex, baseURL string) (*HyperliquidPricer, error) {
	key := privateKeyHex
	if len(key) >= 2 && (key[:2] == "0x" || key[:2] == "0X") {
		key = key[2:]
	}

	privateKey, err := crypto.HexToECDSA(key)
	if err != nil {
		return nil, errors.Wrap(err, "parse hyperliquid key")
	}
	accountAddr := crypto.PubkeyToAddress(privateKey.PublicKey).Hex()

	// Info and SpotMeta are fetched lazily by the SDK
	ex := hyperliquid.NewExchange(
		context.Background(),
		privateKey,
		baseURL,
		nil,
		"",
		accountAddr,
		nil,
	)

	return &HyperliquidPricer{info: ex.Info(), accountAddr: accountAddr}, nil
}

// AccountAddress reports the address derived from the configured key, empty
// when the pricer was built from an existing Info client.
func (p *HyperliquidPricer) AccountAddress() string { return p.accountAddr }

// GetPrice fetches the current mid price for the pair's base asset.
func (p *HyperliquidPricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	if p.info == nil {
		return decimal.Zero, fmt.Errorf("hyperliquid info client is nil")
	}

	mids, err := p.info.AllMids(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	// Hyperliquid mids are keyed by base coin (e.g., "ETH").
	mid, ok := mids[pair.From]
	if !ok || mid == "" {
		return decimal.Zero, fmt.Errorf("hyperliquid API returned empty mid price for %s", pair.From)
	}
	return decimal.NewFromString(mid)
}
