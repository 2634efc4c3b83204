package registry

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Raw log arguments arrive as a flat string map: addresses as hex, numerics
// as decimal (or 0x-prefixed hex) strings, booleans as "true"/"false". The
// helpers below normalize each shape and report malformed values.

// addrArg returns the checksummed form of a required address argument.
func addrArg(args map[string]string, keys ...string) (string, error) {
	raw, key, ok := firstOf(args, keys...)
	if !ok {
		return "", fmt.Errorf("missing address argument %q", keys[0])
	}
	if !common.IsHexAddress(raw) {
		return "", fmt.Errorf("argument %q is not an address: %q", key, raw)
	}
	return common.HexToAddress(raw).Hex(), nil
}

// numArg returns a numeric argument normalized to a decimal string. Absent
// arguments default to "0": zero-amount transfers and tokenless logs are
// valid inputs, not errors.
func numArg(args map[string]string, keys ...string) (string, error) {
	raw, key, ok := firstOf(args, keys...)
	if !ok || raw == "" {
		return "0", nil
	}

	n := new(big.Int)
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		if _, ok := n.SetString(raw[2:], 16); !ok {
			return "", fmt.Errorf("argument %q is not numeric: %q", key, raw)
		}
	} else if _, ok := n.SetString(raw, 10); !ok {
		return "", fmt.Errorf("argument %q is not numeric: %q", key, raw)
	}

	// On-chain amounts and counts are unsigned.
	if n.Sign() < 0 {
		return "", fmt.Errorf("argument %q is negative: %q", key, raw)
	}

	return n.String(), nil
}

// boolArg parses a required boolean argument. Solidity tooling emits these as
// "true"/"false" or "1"/"0" depending on the decoder.
func boolArg(args map[string]string, keys ...string) (bool, error) {
	raw, key, ok := firstOf(args, keys...)
	if !ok {
		return false, fmt.Errorf("missing boolean argument %q", keys[0])
	}
	switch strings.ToLower(raw) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("argument %q is not boolean: %q", key, raw)
	}
}

// uint8Arg parses a small enum argument such as a vote support value.
func uint8Arg(args map[string]string, keys ...string) (uint8, error) {
	dec, err := numArg(args, keys...)
	if err != nil {
		return 0, err
	}
	n, ok := new(big.Int).SetString(dec, 10)
	if !ok || !n.IsUint64() || n.Uint64() > 255 {
		return 0, fmt.Errorf("argument %q out of uint8 range: %q", keys[0], dec)
	}
	return uint8(n.Uint64()), nil
}

// strArg returns an optional free-form string argument.
func strArg(args map[string]string, keys ...string) string {
	raw, _, _ := firstOf(args, keys...)
	return raw
}

// firstOf returns the first present key from the candidate list. Governance
// contracts renamed several arguments between versions (e.g. id vs
// proposalId), so parsers accept the known aliases.
func firstOf(args map[string]string, keys ...string) (value, key string, ok bool) {
	for _, k := range keys {
		if v, present := args[k]; present {
			return v, k, true
		}
	}
	return "", "", false
}
