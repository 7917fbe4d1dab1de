package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// RateLimit caps outbound sats per user over a rolling window of Hours.
type RateLimit struct {
	Hours int
	Sats  int64
}

// DynamicFeesRef points at an off-box fee override document.
type DynamicFeesRef struct {
	Account  string
	Permlink string
}

// Policy is the typed, validated form of the live operator policy blob
// (spec §6, §9 "Dynamic-config objects"). The conversion engine consumes
// only this typed form, never the raw blob.
type Policy struct {
	HiveReturnFee        decimal.Decimal
	ConvFeePercent       decimal.Decimal
	ConvFeeSats          int64
	StreamingFeePercent  decimal.Decimal
	MinInvoiceSats       int64
	MaxInvoiceSats       int64
	MaxLNRoutingFeeMsats int64
	GatewayHiveToLN      bool
	GatewayLNToHive      bool
	RateLimits           []RateLimit
	DynamicFees          *DynamicFeesRef
}

// ErrInvalidPolicy wraps a specific field failure when parsing a policy blob.
var ErrInvalidPolicy = errors.New("policy: invalid field")

// ParsePolicy validates a loosely-typed blob (chain account metadata,
// decoded JSON) into a typed Policy. Unknown keys are ignored; recognized
// keys missing from the blob keep Go's zero value (caller applies defaults).
func ParsePolicy(blob map[string]any) (*Policy, error) {
	p := &Policy{}
	var err error

	if v, ok := blob["hive_return_fee"]; ok {
		if p.HiveReturnFee, err = toDecimal(v); err != nil {
			return nil, fmt.Errorf("%w: hive_return_fee: %v", ErrInvalidPolicy, err)
		}
	}
	if v, ok := blob["conv_fee_percent"]; ok {
		if p.ConvFeePercent, err = toDecimal(v); err != nil {
			return nil, fmt.Errorf("%w: conv_fee_percent: %v", ErrInvalidPolicy, err)
		}
	}
	if v, ok := blob["conv_fee_sats"]; ok {
		if p.ConvFeeSats, err = toInt64(v); err != nil {
			return nil, fmt.Errorf("%w: conv_fee_sats: %v", ErrInvalidPolicy, err)
		}
	}
	if v, ok := blob["streaming_fee_percent"]; ok {
		if p.StreamingFeePercent, err = toDecimal(v); err != nil {
			return nil, fmt.Errorf("%w: streaming_fee_percent: %v", ErrInvalidPolicy, err)
		}
	}
	if v, ok := blob["min_invoice_sats"]; ok {
		if p.MinInvoiceSats, err = toInt64(v); err != nil {
			return nil, fmt.Errorf("%w: min_invoice_sats: %v", ErrInvalidPolicy, err)
		}
	}
	if v, ok := blob["max_invoice_sats"]; ok {
		if p.MaxInvoiceSats, err = toInt64(v); err != nil {
			return nil, fmt.Errorf("%w: max_invoice_sats: %v", ErrInvalidPolicy, err)
		}
	}
	if v, ok := blob["max_ln_routing_fee_msats"]; ok {
		if p.MaxLNRoutingFeeMsats, err = toInt64(v); err != nil {
			return nil, fmt.Errorf("%w: max_ln_routing_fee_msats: %v", ErrInvalidPolicy, err)
		}
	}
	if v, ok := blob["gateway_hive_to_ln"]; ok {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: gateway_hive_to_ln: not a bool", ErrInvalidPolicy)
		}
		p.GatewayHiveToLN = b
	}
	if v, ok := blob["gateway_ln_to_hive"]; ok {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: gateway_ln_to_hive: not a bool", ErrInvalidPolicy)
		}
		p.GatewayLNToHive = b
	}
	if v, ok := blob["rate_limits"]; ok {
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: rate_limits: not a list", ErrInvalidPolicy)
		}
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: rate_limits: entry not an object", ErrInvalidPolicy)
			}
			hours, err := toInt64(m["hours"])
			if err != nil {
				return nil, fmt.Errorf("%w: rate_limits.hours: %v", ErrInvalidPolicy, err)
			}
			sats, err := toInt64(m["sats"])
			if err != nil {
				return nil, fmt.Errorf("%w: rate_limits.sats: %v", ErrInvalidPolicy, err)
			}
			p.RateLimits = append(p.RateLimits, RateLimit{Hours: int(hours), Sats: sats})
		}
	}
	if v, ok := blob["dynamic_fees"]; ok {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: dynamic_fees: not an object", ErrInvalidPolicy)
		}
		account, _ := m["account"].(string)
		permlink, _ := m["permlink"].(string)
		p.DynamicFees = &DynamicFeesRef{Account: account, Permlink: permlink}
	}

	return p, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case string:
		return decimal.NewFromString(x)
	case float64:
		return decimal.NewFromFloat(x), nil
	case int64:
		return decimal.NewFromInt(x), nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported type %T", v)
	}
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case float64:
		return int64(x), nil
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return 0, err
		}
		return d.IntPart(), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
