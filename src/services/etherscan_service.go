package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/Roklion/NFT-Extract/src/logger"
	"github.com/Roklion/NFT-Extract/src/models"
)

const defaultEtherscanBaseURL = "https://api.etherscan.io/api"

// etherscanServiceImpl implements ChainService against the Etherscan account
// and contract API modules. It owns its HTTP client and rate limiter; the
// free tier allows 5 calls per second, we stay at 4.
type etherscanServiceImpl struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
}

// NewEtherscanService creates a ChainService for the given API key. baseURL
// is overridable for tests; pass "" for the production endpoint.
func NewEtherscanService(apiKey, baseURL string) ChainService {
	if baseURL == "" {
		baseURL = defaultEtherscanBaseURL
	}
	return &etherscanServiceImpl{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(4), 4),
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

// etherscanEnvelope is the common response wrapper. Result stays raw because
// the API reports errors as a plain string in the same field.
type etherscanEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (s *etherscanServiceImpl) NormalTransactions(ctx context.Context, wallet string) ([]models.EtherscanTransaction, error) {
	var txns []models.EtherscanTransaction
	err := s.fetchAccountList(ctx, "txlist", wallet, &txns)
	return txns, err
}

func (s *etherscanServiceImpl) InternalTransactions(ctx context.Context, wallet string) ([]models.EtherscanTransaction, error) {
	var txns []models.EtherscanTransaction
	err := s.fetchAccountList(ctx, "txlistinternal", wallet, &txns)
	return txns, err
}

func (s *etherscanServiceImpl) ERC20Transfers(ctx context.Context, wallet string) ([]models.TokenTransfer, error) {
	var txns []models.TokenTransfer
	err := s.fetchAccountList(ctx, "tokentx", wallet, &txns)
	return txns, err
}

func (s *etherscanServiceImpl) ERC721Transfers(ctx context.Context, wallet string) ([]models.TokenTransfer, error) {
	var txns []models.TokenTransfer
	err := s.fetchAccountList(ctx, "tokennfttx", wallet, &txns)
	return txns, err
}

func (s *etherscanServiceImpl) ContractABI(ctx context.Context, contractAddress string) (string, error) {
	envelope, err := s.call(ctx, url.Values{
		"module":  {"contract"},
		"action":  {"getabi"},
		"address": {contractAddress},
	})
	if err != nil {
		return "", err
	}
	if envelope.Status != "1" {
		return "", fmt.Errorf("etherscan getabi for %s: %s", contractAddress, envelope.Message)
	}
	var abi string
	if err := json.Unmarshal(envelope.Result, &abi); err != nil {
		return "", fmt.Errorf("etherscan getabi for %s: decode result: %w", contractAddress, err)
	}
	return abi, nil
}

func (s *etherscanServiceImpl) fetchAccountList(ctx context.Context, action, wallet string, out any) error {
	envelope, err := s.call(ctx, url.Values{
		"module":  {"account"},
		"action":  {action},
		"address": {wallet},
		"sort":    {"asc"},
	})
	if err != nil {
		return err
	}
	if envelope.Status != "1" {
		// An empty feed is reported as status 0 rather than an empty list.
		if envelope.Message == "No transactions found" {
			return nil
		}
		return fmt.Errorf("etherscan %s for %s: %s", action, wallet, envelope.Message)
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("etherscan %s for %s: decode result: %w", action, wallet, err)
	}
	return nil
}

func (s *etherscanServiceImpl) call(ctx context.Context, params url.Values) (*etherscanEnvelope, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("etherscan rate limiter: %w", err)
	}

	params.Set("apikey", s.apiKey)
	reqURL := s.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("etherscan request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("etherscan returned status %d: %s", resp.StatusCode, string(body))
	}

	var envelope etherscanEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("etherscan response decode: %w", err)
	}
	if logger.L != nil {
		logger.L.Debug("Etherscan call completed",
			"module", params.Get("module"), "action", params.Get("action"), "status", envelope.Status)
	}
	return &envelope, nil
}
