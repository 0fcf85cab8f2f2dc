// Package stock quotes equities from the Yahoo Finance search and chart
// endpoints. Cryptocurrencies are refused.
package stock

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Himanshu040604/PregelFlow/internal/services"
)

// DefaultBaseURL is the Yahoo Finance query root.
const DefaultBaseURL = "https://query2.finance.yahoo.com"

// StocksOnly is the answer for crypto topics and searches with no equity.
const StocksOnly = "I can only provide the answer for companies stock only"

// GlobalIndices are quoted for the "general" topic.
var GlobalIndices = []string{"^GSPC", "^NSEI", "^FTSE"}

var cryptoTopics = map[string]bool{
	"bitcoin": true, "btc": true, "ethereum": true, "eth": true, "tether": true, "usdt": true,
	"bnb": true, "solana": true, "sol": true, "xrp": true, "usdc": true, "cardano": true, "ada": true,
	"avalanche": true, "avax": true, "dogecoin": true, "doge": true, "tron": true, "trx": true,
	"polkadot": true, "dot": true, "shiba inu": true, "shib": true, "litecoin": true, "ltc": true,
	"bitcoin cash": true, "bch": true, "chainlink": true, "link": true, "cosmos": true, "atom": true,
	"crypto": true, "cryptocurrency": true, "coins": true,
}

// usExchanges win over any other listing returned by a search.
var usExchanges = []string{"NYQ", "NMS", "NAM", "NYS", "NAS"}

var currencySymbols = map[string]string{
	"USD": "$", "INR": "₹", "GBP": "£", "EUR": "€",
	"JPY": "¥", "AUD": "A$", "CAD": "C$", "HKD": "HK$",
	"CNY": "¥", "SGD": "S$", "CHF": "Fr", "RUB": "₽",
	"TRY": "₺", "BRL": "R$", "ZAR": "R", "KRW": "₩",
}

const noValidStock = "NO_VALID_STOCK_FOUND"

const cryptoType = "CRYPTOCURRENCY"

var printer = message.NewPrinter(language.English)

// Source answers stock questions about a topic.
type Source struct {
	BaseURL string
	Client  *http.Client
}

// New returns a Source against the public API.
func New() *Source {
	return &Source{BaseURL: DefaultBaseURL, Client: services.NewHTTPClient()}
}

// Fetch implements collaborator.Collaborator.
func (s *Source) Fetch(ctx context.Context, topic string) string {
	q := strings.ToLower(strings.TrimSpace(topic))
	if cryptoTopics[q] {
		return StocksOnly
	}
	if q == "general" {
		return "Global Overview:\n" + strings.Join(s.quoteAll(ctx, GlobalIndices), "\n")
	}
	return s.Quote(ctx, s.Search(ctx, topic))
}

func (s *Source) client() *http.Client {
	if s.Client == nil {
		return services.NewHTTPClient()
	}
	return s.Client
}

func (s *Source) quoteAll(ctx context.Context, tickers []string) []string {
	out := make([]string, len(tickers))
	var g errgroup.Group
	for i, t := range tickers {
		g.Go(func() error {
			out[i] = s.Quote(ctx, t)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		Exchange  string `json:"exchange"`
		QuoteType string `json:"quoteType"`
	} `json:"quotes"`
}

// Search resolves a free-form query to a ticker. Crypto listings are
// skipped and US listings preferred. If the search itself fails the query is
// used as the ticker.
func (s *Source) Search(ctx context.Context, query string) string {
	params := url.Values{"q": {query}, "quotesCount": {"10"}, "newsCount": {"0"}}
	var body searchResponse
	status, err := services.GetJSON(ctx, s.client(), s.BaseURL, "v1/finance/search", params, &body)
	if err != nil || status != http.StatusOK || len(body.Quotes) == 0 {
		return query
	}

	fallback := ""
	for _, q := range body.Quotes {
		if strings.EqualFold(q.QuoteType, cryptoType) {
			continue
		}
		if slices.Contains(usExchanges, q.Exchange) {
			return q.Symbol
		}
		if fallback == "" {
			fallback = q.Symbol
		}
	}
	if fallback == "" {
		return noValidStock
	}
	return fallback
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				InstrumentType     string  `json:"instrumentType"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"previousClose"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
			} `json:"meta"`
		} `json:"result"`
	} `json:"chart"`
}

// Quote prices one ticker as "TICKER: <symbol><price> (<change>%)".
func (s *Source) Quote(ctx context.Context, ticker string) string {
	if ticker == noValidStock {
		return StocksOnly
	}
	notFound := fmt.Sprintf("Stock '%s' not found.", ticker)

	var body chartResponse
	params := url.Values{"range": {"1d"}, "interval": {"1d"}}
	status, err := services.GetJSON(ctx, s.client(), s.BaseURL, "v8/finance/chart/"+url.PathEscape(ticker), params, &body)
	if err != nil || status != http.StatusOK || len(body.Chart.Result) == 0 {
		return notFound
	}
	meta := body.Chart.Result[0].Meta
	if strings.EqualFold(meta.InstrumentType, cryptoType) {
		return notFound
	}
	prev := meta.PreviousClose
	if prev == 0 {
		prev = meta.ChartPreviousClose
	}
	if meta.RegularMarketPrice == 0 || prev == 0 {
		return notFound
	}

	change := (meta.RegularMarketPrice - prev) / prev * 100
	return printer.Sprintf("%s: %s%.2f (%+.2f%%)",
		strings.ToUpper(ticker), currencySymbol(meta.Currency), meta.RegularMarketPrice, change)
}

func currencySymbol(code string) string {
	if code == "" {
		return "$"
	}
	if sym, ok := currencySymbols[strings.ToUpper(code)]; ok {
		return sym
	}
	return code + " "
}
