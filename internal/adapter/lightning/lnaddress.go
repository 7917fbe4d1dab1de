package lightning

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// AddressResolver implements usecase.LightningAddressResolver by performing
// the LNURL-pay well-known lookup (LUD-16): GET the target's
// /.well-known/lnurlp/<user> endpoint, then request an invoice for the
// requested amount from the returned callback (spec §GLOSSARY "Lightning
// address").
type AddressResolver struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewAddressResolver creates a new AddressResolver.
func NewAddressResolver(logger zerolog.Logger) *AddressResolver {
	return &AddressResolver{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

type lnurlPayResponse struct {
	Callback    string `json:"callback"`
	MaxSendable int64  `json:"maxSendable"`
	MinSendable int64  `json:"minSendable"`
	Tag         string `json:"tag"`
}

type lnurlInvoiceResponse struct {
	PR     string `json:"pr"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// ResolveInvoice turns "user@host" into a payable BOLT-11 invoice for
// amountMsat, validating the returned invoice's encoded amount matches
// what was requested before handing it back to the conversion engine.
func (r *AddressResolver) ResolveInvoice(ctx context.Context, address string, amountMsat int64, comment string) (string, error) {
	user, host, err := splitLightningAddress(address)
	if err != nil {
		return "", err
	}

	wellKnownURL := fmt.Sprintf("https://%s/.well-known/lnurlp/%s", host, user)
	var payResp lnurlPayResponse
	if err := r.getJSON(ctx, wellKnownURL, &payResp); err != nil {
		return "", fmt.Errorf("lnurlp lookup for %s: %w", address, err)
	}
	if payResp.Tag != "payRequest" {
		return "", fmt.Errorf("lnurlp lookup for %s: unexpected tag %q", address, payResp.Tag)
	}
	if amountMsat < payResp.MinSendable || amountMsat > payResp.MaxSendable {
		return "", fmt.Errorf("lnurlp lookup for %s: amount %d msat outside [%d, %d]",
			address, amountMsat, payResp.MinSendable, payResp.MaxSendable)
	}

	callbackURL, err := url.Parse(payResp.Callback)
	if err != nil {
		return "", fmt.Errorf("lnurlp callback for %s: %w", address, err)
	}
	q := callbackURL.Query()
	q.Set("amount", strconv.FormatInt(amountMsat, 10))
	if comment != "" {
		q.Set("comment", comment)
	}
	callbackURL.RawQuery = q.Encode()

	var invResp lnurlInvoiceResponse
	if err := r.getJSON(ctx, callbackURL.String(), &invResp); err != nil {
		return "", fmt.Errorf("lnurlp invoice request for %s: %w", address, err)
	}
	if invResp.Status == "ERROR" {
		return "", fmt.Errorf("lnurlp invoice request for %s: %s", address, invResp.Reason)
	}
	if invResp.PR == "" {
		return "", fmt.Errorf("lnurlp invoice request for %s: empty payment request", address)
	}

	if err := verifyInvoiceAmount(invResp.PR, amountMsat); err != nil {
		return "", fmt.Errorf("lnurlp invoice for %s: %w", address, err)
	}

	return invResp.PR, nil
}

func (r *AddressResolver) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func splitLightningAddress(address string) (user, host string, err error) {
	parts := strings.SplitN(address, "@", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid lightning address %q", address)
	}
	return parts[0], parts[1], nil
}

// verifyInvoiceAmount does the minimal bech32/BOLT-11 decode the bridge
// supports: extract the amount encoded in the invoice's human-readable
// part and reject a mismatch before any funds move. Full tagged-field
// parsing (routing hints, expiry, min_final_cltv) is delegated (Non-goal);
// the tagged fields are walked by parseTaggedFields below, but its result
// is discarded: the payment hash is not cross-checked.
func verifyInvoiceAmount(paymentRequest string, expectedMsat int64) error {
	hrp, data5, err := decodeSquashed(paymentRequest)
	if err != nil {
		return fmt.Errorf("decode invoice: %w", err)
	}

	amountMsat, err := parseHRPAmountMsat(hrp)
	if err != nil {
		return err
	}
	if amountMsat != 0 && amountMsat != expectedMsat {
		return fmt.Errorf("invoice amount %d msat does not match requested %d msat", amountMsat, expectedMsat)
	}

	// Tagged fields start after the 35-bit (7 five-bit-word) timestamp.
	if len(data5) > 7 {
		_ = parseTaggedFields(data5[7:])
	}
	return nil
}

// parseHRPAmountMsat decodes the amount suffix of a BOLT-11 hrp, e.g.
// "lnbc2500u" -> 250,000,000 msat. A bare "lnbc" (no amount) returns 0,
// meaning "any amount" and skips the cross-check.
func parseHRPAmountMsat(hrp string) (int64, error) {
	const prefix = "lnbc"
	if !strings.HasPrefix(hrp, prefix) && !strings.HasPrefix(hrp, "lntb") && !strings.HasPrefix(hrp, "lnbcrt") {
		return 0, fmt.Errorf("unrecognized invoice prefix %q", hrp)
	}

	lastDigit := -1
	for i, r := range hrp {
		if r >= '0' && r <= '9' {
			lastDigit = i
		}
	}
	if lastDigit == -1 {
		return 0, nil
	}

	firstDigit := lastDigit
	for firstDigit > 0 && hrp[firstDigit-1] >= '0' && hrp[firstDigit-1] <= '9' {
		firstDigit--
	}

	amount, err := strconv.ParseInt(hrp[firstDigit:lastDigit+1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse invoice amount: %w", err)
	}

	multiplier := hrp[lastDigit+1:]
	var btcFraction float64
	switch multiplier {
	case "m":
		btcFraction = float64(amount) / 1_000
	case "u":
		btcFraction = float64(amount) / 1_000_000
	case "n":
		btcFraction = float64(amount) / 1_000_000_000
	case "p":
		btcFraction = float64(amount) / 1_000_000_000_000
	case "":
		btcFraction = float64(amount)
	default:
		return 0, fmt.Errorf("unrecognized amount multiplier %q", multiplier)
	}

	return int64(btcFraction * 100_000_000_000), nil
}
