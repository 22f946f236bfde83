package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/Roklion/NFT-Extract/src/database"
	"github.com/Roklion/NFT-Extract/src/logger"
)

const defaultCoinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// coinGeckoPriceService implements PriceService against the CoinGecko
// by-date history endpoint. Prices are daily granularity; every lookup in
// the same UTC day hits the cache after the first call. The free API is
// throttled hard, so calls go through stacked per-second and per-minute
// limiters.
type coinGeckoPriceService struct {
	httpClient *http.Client
	cache      *gocache.Cache
	perSecond  *rate.Limiter
	perMinute  *rate.Limiter
	baseURL    string
}

// NewPriceService creates the CoinGecko-backed price service. baseURL is
// overridable for tests; pass "" for the production endpoint.
func NewPriceService(callsPerSecond, callsPerMinute int, baseURL string) PriceService {
	if baseURL == "" {
		baseURL = defaultCoinGeckoBaseURL
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil && logger.L != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}
	return &coinGeckoPriceService{
		httpClient: &http.Client{Jar: jar, Timeout: 20 * time.Second},
		cache:      gocache.New(gocache.NoExpiration, gocache.NoExpiration),
		perSecond:  rate.NewLimiter(rate.Limit(callsPerSecond), 1),
		perMinute:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(callsPerMinute)), 1),
		baseURL:    baseURL,
	}
}

type coinGeckoHistoryResponse struct {
	MarketData struct {
		CurrentPrice map[string]float64 `json:"current_price"`
	} `json:"market_data"`
}

func (s *coinGeckoPriceService) TokenPrice(ctx context.Context, token, fiat string, timestamp int64) (decimal.Decimal, error) {
	date := PriceDateKey(timestamp)
	cacheKey := priceCacheKey(token, fiat, date)
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.(decimal.Decimal), nil
	}
	if database.DB != nil {
		stored, found, err := database.GetPrice(token, fiat, date)
		if err != nil && logger.L != nil {
			logger.L.Warn("Price cache lookup failed", "token", token, "date", date, "error", err)
		}
		if found {
			if price, err := decimal.NewFromString(stored); err == nil {
				s.cache.Set(cacheKey, price, gocache.NoExpiration)
				return price, nil
			}
		}
	}

	if err := s.perSecond.Wait(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("price rate limiter: %w", err)
	}
	if err := s.perMinute.Wait(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("price rate limiter: %w", err)
	}

	reqURL := fmt.Sprintf("%s/coins/%s/history?date=%s&localization=false",
		s.baseURL, url.PathEscape(token), date)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price request for %s on %s failed: %w", token, date, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, fmt.Errorf("price API returned status %d for %s on %s: %s",
			resp.StatusCode, token, date, string(body))
	}

	var history coinGeckoHistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return decimal.Zero, fmt.Errorf("price response decode for %s on %s: %w", token, date, err)
	}

	raw, ok := history.MarketData.CurrentPrice[strings.ToLower(fiat)]
	if !ok {
		return decimal.Zero, fmt.Errorf("no %s price for %s on %s", fiat, token, date)
	}
	price := decimal.NewFromFloat(raw)
	s.cache.Set(cacheKey, price, gocache.NoExpiration)
	if database.DB != nil {
		if err := database.SavePrice(token, fiat, date, price.String()); err != nil && logger.L != nil {
			logger.L.Warn("Price cache save failed", "token", token, "date", date, "error", err)
		}
	}
	if logger.L != nil {
		logger.L.Debug("Fetched historical price", "token", token, "date", date, "price", price)
	}
	return price, nil
}

// PriceDateKey formats a unix timestamp as the dd-mm-yyyy UTC date key the
// history endpoint expects.
func PriceDateKey(timestamp int64) string {
	return time.Unix(timestamp, 0).UTC().Format("02-01-2006")
}

func priceCacheKey(token, fiat, date string) string {
	return strings.ToLower(token) + "|" + strings.ToLower(fiat) + "|" + date
}
