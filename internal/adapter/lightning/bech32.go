package lightning

import (
	"fmt"
	"strings"
)

// Minimal bech32 decoder, adapted from mit-dci-lit/bech32 and trimmed to
// decode-only: the bridge only ever reads BOLT-11 invoices, never mints
// bech32-encoded addresses, so the segwit/encode helpers are dropped.

const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

var inverseCharset = [256]int8{
	-1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1,
	-1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1,
	-1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1,
	15, -1, 10, 17, 21, 20, 26, 30, 7, 5, -1, -1, -1, -1, -1, -1,
	-1, 29, -1, 24, 13, 25, 9, 8, 23, -1, 18, 22, 31, 27, 19, -1,
	1, 0, 3, 16, 11, 28, 12, 14, 6, 4, 2, -1, -1, -1, -1, -1,
	-1, 29, -1, 24, 13, 25, 9, 8, 23, -1, 18, 22, 31, 27, 19, -1,
	1, 0, 3, 16, 11, 28, 12, 14, 6, 4, 2, -1, -1, -1, -1, -1}

// byteSquasher re-buckets bits between 5-bit ("squashed") and 8-bit widths.
func byteSquasher(input []byte, inputWidth, outputWidth uint32) ([]byte, error) {
	var bitstash, accumulator uint32
	var output []byte
	maxOutputValue := uint32((1 << outputWidth) - 1)
	for i, c := range input {
		if c>>inputWidth != 0 {
			return nil, fmt.Errorf("byte %d (%x) high bits set", i, c)
		}
		accumulator = (accumulator << inputWidth) | uint32(c)
		bitstash += inputWidth
		for bitstash >= outputWidth {
			bitstash -= outputWidth
			output = append(output, byte((accumulator>>bitstash)&maxOutputValue))
		}
	}
	if inputWidth == 8 && outputWidth == 5 {
		if bitstash != 0 {
			output = append(output, byte((accumulator<<(outputWidth-bitstash))&maxOutputValue))
		}
	} else if bitstash >= inputWidth || ((accumulator<<(outputWidth-bitstash))&maxOutputValue) != 0 {
		return nil, fmt.Errorf("invalid padding from %d to %d bits", inputWidth, outputWidth)
	}
	return output, nil
}

func bytes5to8(input []byte) ([]byte, error) {
	return byteSquasher(input, 5, 8)
}

func stringToSquashedBytes(input string) ([]byte, error) {
	b := make([]byte, len(input))
	for i, c := range input {
		if inverseCharset[c] == -1 {
			return nil, fmt.Errorf("contains invalid character %s", string(c))
		}
		b[i] = byte(inverseCharset[c])
	}
	return b, nil
}

func polyMod(values []byte) uint32 {
	gen := []uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i, g := range gen {
			if (top>>uint8(i))&1 == 1 {
				chk ^= g
			}
		}
	}
	return chk
}

func hrpExpand(input string) []byte {
	output := make([]byte, (len(input)*2)+1)
	for i, c := range input {
		output[i] = uint8(c) >> 5
	}
	for i, c := range input {
		output[i+len(input)+1] = uint8(c) & 0x1f
	}
	return output
}

func verifyChecksum(hrp string, data []byte) bool {
	values := append(hrpExpand(hrp), data...)
	return polyMod(values) == 1
}

// decodeSquashed splits a bech32 string into its hrp and 5-bit-squashed
// payload (checksum verified, stripped).
func decodeSquashed(adr string) (string, []byte, error) {
	lowAdr := strings.ToLower(adr)
	highAdr := strings.ToUpper(adr)
	if adr != lowAdr && adr != highAdr {
		return "", nil, fmt.Errorf("mixed case address")
	}
	adr = lowAdr

	splitLoc := strings.LastIndex(adr, "1")
	if splitLoc == -1 {
		return "", nil, fmt.Errorf("1 separator not present in address")
	}
	hrp := adr[0:splitLoc]

	data, err := stringToSquashedBytes(adr[splitLoc+1:])
	if err != nil {
		return hrp, nil, err
	}
	if !verifyChecksum(hrp, data) {
		return hrp, nil, fmt.Errorf("checksum invalid")
	}
	return hrp, data[:len(data)-6], nil
}

// bolt11TaggedField is one 5-bit-tag/length-prefixed data field from the
// invoice's tagged-fields section.
type bolt11TaggedField struct {
	Tag    byte
	Data5  []byte
}

const (
	tagPaymentHash = 1
	tagDescription = 13
)

// parseTaggedFields walks the 5-bit tagged-field section following the
// invoice timestamp, extracting only the fields the bridge needs (payment
// hash, description); everything else (routing hints, expiry, min_final_cltv)
// is a Non-goal, left undecoded.
func parseTaggedFields(data5 []byte) []bolt11TaggedField {
	var fields []bolt11TaggedField
	i := 0
	for i+3 <= len(data5) {
		tag := data5[i]
		length := int(data5[i+1])<<5 | int(data5[i+2])
		i += 3
		if i+length > len(data5) {
			break
		}
		fields = append(fields, bolt11TaggedField{Tag: tag, Data5: data5[i : i+length]})
		i += length
	}
	return fields
}
