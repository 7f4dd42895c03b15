// Package oracle supplies the price quotes feedd publishes: HTTP adapters
// for upstream price APIs and a median aggregator across them.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Quote captures one exchange-rate observation from an upstream source.
type Quote struct {
	Rate      *big.Rat
	Timestamp time.Time
	Source    string
}

// Source resolves a quote for a currency pair.
type Source interface {
	Name() string
	Fetch(ctx context.Context, base, quote string) (Quote, error)
}

// HTTPDoer abstracts http.Client for ease of testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const defaultCoinGeckoEndpoint = "https://api.coingecko.com/api/v3/simple/price"

// CoinGeckoSource adapts the public CoinGecko simple price API.
type CoinGeckoSource struct {
	name     string
	client   HTTPDoer
	endpoint string
	idMap    map[string]string
}

// NewCoinGeckoSource constructs the adapter. idMap translates on-chain
// token symbols to CoinGecko asset identifiers; unmapped symbols fall back
// to their lowercase form.
func NewCoinGeckoSource(client HTTPDoer, name, endpoint string, idMap map[string]string) *CoinGeckoSource {
	ep := strings.TrimSpace(endpoint)
	if ep == "" {
		ep = defaultCoinGeckoEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	mapped := make(map[string]string, len(idMap))
	for k, v := range idMap {
		mapped[normaliseSymbol(k)] = strings.TrimSpace(v)
	}
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		trimmedName = "coingecko"
	}
	return &CoinGeckoSource{name: trimmedName, client: client, endpoint: ep, idMap: mapped}
}

// Name implements Source.
func (s *CoinGeckoSource) Name() string { return s.name }

func (s *CoinGeckoSource) assetID(symbol string) string {
	if id, ok := s.idMap[normaliseSymbol(symbol)]; ok && id != "" {
		return id
	}
	return strings.ToLower(strings.TrimSpace(symbol))
}

// Fetch resolves the base/quote rate, where base is the priced token and
// quote the fiat currency.
func (s *CoinGeckoSource) Fetch(ctx context.Context, base, quote string) (Quote, error) {
	id := s.assetID(base)
	if id == "" {
		return Quote{}, fmt.Errorf("coingecko: unmapped asset %s", base)
	}
	vsCurrency := strings.ToLower(normaliseSymbol(quote))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	values := url.Values{}
	values.Set("ids", id)
	values.Set("vs_currencies", vsCurrency)
	values.Set("include_last_updated_at", "true")
	req.URL.RawQuery = values.Encode()

	resp, err := s.client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Quote{}, fmt.Errorf("coingecko: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var payload map[string]map[string]json.Number
	if err := decoder.Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("coingecko: decode: %w", err)
	}
	entry, ok := payload[id]
	if !ok {
		return Quote{}, fmt.Errorf("coingecko: quote missing for %s", base)
	}
	raw, ok := entry[vsCurrency]
	if !ok {
		return Quote{}, fmt.Errorf("coingecko: no %s price for %s", quote, base)
	}
	rat, ok := new(big.Rat).SetString(raw.String())
	if !ok || rat.Sign() <= 0 {
		return Quote{}, fmt.Errorf("coingecko: invalid rate %q", raw.String())
	}

	ts := time.Now().UTC()
	if rawTs, ok := entry["last_updated_at"]; ok {
		if parsed, err := strconv.ParseInt(rawTs.String(), 10, 64); err == nil && parsed > 0 {
			ts = time.Unix(parsed, 0).UTC()
		}
	}
	return Quote{Rate: rat, Timestamp: ts, Source: s.name}, nil
}

// StaticSource returns a fixed quote. Used for tests and manual overrides
// during incident response.
type StaticSource struct {
	name string
	rate *big.Rat
}

// NewStaticSource parses the decimal rate once at construction.
func NewStaticSource(name, rate string) (*StaticSource, error) {
	rat, ok := new(big.Rat).SetString(strings.TrimSpace(rate))
	if !ok || rat.Sign() <= 0 {
		return nil, fmt.Errorf("oracle: invalid static rate %q", rate)
	}
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		trimmedName = "static"
	}
	return &StaticSource{name: trimmedName, rate: rat}, nil
}

// Name implements Source.
func (s *StaticSource) Name() string { return s.name }

// Fetch implements Source with a freshly stamped copy of the fixed rate.
func (s *StaticSource) Fetch(ctx context.Context, base, quote string) (Quote, error) {
	_ = ctx
	return Quote{Rate: new(big.Rat).Set(s.rate), Timestamp: time.Now().UTC(), Source: s.name}, nil
}

func normaliseSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
