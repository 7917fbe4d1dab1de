// Package hive adapts the Hive blockchain's condenser/account-history JSON-RPC
// API to the usecase.HiveClient port. Hand-rolled wire encoding of the RPC
// itself is a Non-goal (spec §9); this client wraps a minimal HTTP-JSON round
// trip and normalizes the handful of operation kinds the bridge cares about.
package hive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/v4vapp/bridge/internal/domain"
	"github.com/v4vapp/bridge/internal/usecase"
)

// Client implements usecase.HiveClient against a Hive API node's JSON-RPC
// surface (condenser_api / appbase).
type Client struct {
	nodeURL    string
	httpClient *http.Client
	account    string
	activeKey  string
	logger     zerolog.Logger
}

// ClientConfig configures a Client.
type ClientConfig struct {
	NodeURL   string
	Account   string
	ActiveKey string
	Timeout   time.Duration
	Logger    zerolog.Logger
}

// NewClient creates a new Hive JSON-RPC Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		nodeURL:    cfg.NodeURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		account:    cfg.Account,
		activeKey:  cfg.ActiveKey,
		logger:     cfg.Logger,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return err
	}

	var rpcErr error
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.nodeURL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		var rr rpcResponse
		if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
			return err
		}
		if rr.Error != nil {
			rpcErr = fmt.Errorf("hive rpc %s: %s", method, rr.Error.Message)
			return backoff.Permanent(rpcErr)
		}
		return json.Unmarshal(rr.Result, out)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if rpcErr != nil {
			return rpcErr
		}
		return err
	}
	return nil
}

// HeadBlockHeight returns the node's current irreversible block height.
func (c *Client) HeadBlockHeight(ctx context.Context) (int64, error) {
	var props struct {
		LastIrreversibleBlockNum int64 `json:"last_irreversible_block_num"`
	}
	if err := c.call(ctx, "condenser_api.get_dynamic_global_properties", []any{}, &props); err != nil {
		return 0, err
	}
	return props.LastIrreversibleBlockNum, nil
}

type blockOperation struct {
	Op []json.RawMessage `json:"op"`
}

type blockTransaction struct {
	TransactionID string            `json:"transaction_id"`
	Operations    []blockOperation  `json:"operations"`
}

type blockResult struct {
	Timestamp    string              `json:"timestamp"`
	Transactions []blockTransaction  `json:"transactions"`
}

// GetBlock fetches and normalizes one block's operations.
func (c *Client) GetBlock(ctx context.Context, height int64) (*usecase.HiveBlock, error) {
	var block blockResult
	if err := c.call(ctx, "condenser_api.get_block", []any{height}, &block); err != nil {
		return nil, err
	}

	ts, err := time.Parse("2006-01-02T15:04:05", block.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}

	hb := &usecase.HiveBlock{Height: height, Timestamp: ts}
	for _, tx := range block.Transactions {
		for idx, op := range tx.Operations {
			normalized, ok := normalizeOp(tx.TransactionID, idx, op)
			if ok {
				hb.Ops = append(hb.Ops, normalized)
			}
		}
	}
	return hb, nil
}

// normalizeOp decodes one raw [opName, opBody] pair into the subset of
// operation kinds the bridge tracks; anything else is dropped.
func normalizeOp(txID string, idx int, raw blockOperation) (usecase.HiveOp, bool) {
	if len(raw.Op) != 2 {
		return usecase.HiveOp{}, false
	}

	var opName string
	if err := json.Unmarshal(raw.Op[0], &opName); err != nil {
		return usecase.HiveOp{}, false
	}
	opBody := raw.Op[1]

	base := usecase.HiveOp{TxID: txID, OpIndex: idx}

	switch opName {
	case "transfer":
		var body struct {
			From   string `json:"from"`
			To     string `json:"to"`
			Amount string `json:"amount"`
			Memo   string `json:"memo"`
		}
		if err := json.Unmarshal(opBody, &body); err != nil {
			return usecase.HiveOp{}, false
		}
		amount, unit := parseAssetAmount(body.Amount)
		base.Kind = domain.SourceHiveTransfer
		base.From = body.From
		base.To = body.To
		base.Memo = body.Memo
		if unit == domain.UnitHBD {
			base.AmountHBD = amount
		} else {
			base.AmountHIVE = amount
		}
		return base, true

	case "custom_json":
		var body struct {
			ID                    string   `json:"id"`
			Json                  string   `json:"json"`
			RequiredAuths         []string `json:"required_auths"`
			RequiredPostingAuths  []string `json:"required_posting_auths"`
		}
		if err := json.Unmarshal(opBody, &body); err != nil {
			return usecase.HiveOp{}, false
		}
		base.Kind = domain.SourceHiveCustomMessage
		base.CustomID = body.ID
		base.CustomJSON = []byte(body.Json)
		if len(body.RequiredAuths) > 0 {
			base.From = body.RequiredAuths[0]
		} else if len(body.RequiredPostingAuths) > 0 {
			base.From = body.RequiredPostingAuths[0]
		}
		return base, true

	case "producer_reward":
		var body struct {
			Producer string `json:"producer"`
			VestingShares string `json:"vesting_shares"`
		}
		if err := json.Unmarshal(opBody, &body); err != nil {
			return usecase.HiveOp{}, false
		}
		base.Kind = domain.SourceHiveWitnessReward
		base.Witness = body.Producer
		return base, true

	case "fill_order":
		base.Kind = domain.SourceHiveLimitOrder
		return base, true
	}

	return usecase.HiveOp{}, false
}

// parseAssetAmount splits a Hive "12.345 HIVE" style string into its
// decimal value and unit.
func parseAssetAmount(asset string) (decimal.Decimal, domain.Unit) {
	var value string
	var symbol string
	for i := len(asset) - 1; i >= 0; i-- {
		if asset[i] == ' ' {
			value = asset[:i]
			symbol = asset[i+1:]
			break
		}
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		d = decimal.Zero
	}
	unit := domain.UnitHIVE
	if symbol == "HBD" {
		unit = domain.UnitHBD
	}
	return d, unit
}

// SendCustomMessage broadcasts a custom_json operation signed by the
// bridge's posting/active key, used by C9's outbound notification channel
// and F1-F4's refund/outbound-transfer paths.
func (c *Client) SendCustomMessage(ctx context.Context, account, id string, payload []byte) (string, error) {
	var result struct {
		ID string `json:"id"`
	}
	params := map[string]any{
		"account": account,
		"id":      id,
		"json":    string(payload),
	}
	if err := c.call(ctx, "condenser_api.broadcast_custom_json", params, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

// SendTransfer broadcasts a transfer operation, used by the F1 refund
// and F2 on-chain delivery paths.
func (c *Client) SendTransfer(ctx context.Context, from, to string, amount decimal.Decimal, unit domain.Unit, memo string) (string, error) {
	symbol := "HIVE"
	if unit == domain.UnitHBD {
		symbol = "HBD"
	}
	var result struct {
		ID string `json:"id"`
	}
	params := map[string]any{
		"from":   from,
		"to":     to,
		"amount": fmt.Sprintf("%s %s", amount.StringFixed(3), symbol),
		"memo":   memo,
	}
	if err := c.call(ctx, "condenser_api.broadcast_transfer", params, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

// GetAccountMetadata loads an account's posting_json_metadata, the vehicle
// for the operator policy blob (spec §4.4).
func (c *Client) GetAccountMetadata(ctx context.Context, account string) (map[string]any, error) {
	var accounts []struct {
		PostingJSONMetadata string `json:"posting_json_metadata"`
	}
	if err := c.call(ctx, "condenser_api.get_accounts", [][]string{{account}}, &accounts); err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return map[string]any{}, nil
	}

	var blob map[string]any
	if err := json.Unmarshal([]byte(accounts[0].PostingJSONMetadata), &blob); err != nil {
		return map[string]any{}, nil
	}
	return blob, nil
}
