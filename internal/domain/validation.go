package domain

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	ErrAmountTooLarge  = errors.New("amount exceeds maximum allowed")
	ErrAmountTooSmall  = errors.New("amount below minimum allowed")
	ErrInvalidIDFormat = errors.New("invalid ID format")
)

// Validation constants.
const (
	MaxMetadataSize = 10240 // 10KB, mirrors policy-blob and memo size bounds
)

// ValidateAmountSats validates a sats-denominated amount against the live
// policy's min/max invoice bounds (spec §4.5, §8 boundary behaviors).
func ValidateAmountSats(amountSats, minSats, maxSats int64) error {
	if amountSats <= 0 {
		return ErrInvalidAmount
	}
	if amountSats < minSats {
		return fmt.Errorf("%w: minimum is %d sats", ErrAmountTooSmall, minSats)
	}
	if maxSats > 0 && amountSats > maxSats {
		return fmt.Errorf("%w: maximum is %d sats", ErrAmountTooLarge, maxSats)
	}
	return nil
}

// ValidateMetadata validates metadata size.
func ValidateMetadata(metadata map[string]any) error {
	if metadata == nil {
		return nil
	}

	size := 0
	for k, v := range metadata {
		size += len(k)
		size += len(fmt.Sprintf("%v", v))
	}

	if size > MaxMetadataSize {
		return fmt.Errorf("%w: metadata size %d bytes exceeds limit of %d bytes", ErrMetadataTooLarge, size, MaxMetadataSize)
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters.
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
