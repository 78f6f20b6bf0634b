package address

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// ErrNotHex is returned by Checksum for input that is not a 20-byte hex address.
var ErrNotHex = errors.New("not a 20-byte hex address")

// Normalize trims surrounding whitespace and lowercases the address.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Equal compares two addresses case-insensitively.
func Equal(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// IsHex reports whether addr is a 0x-prefixed (or bare) 40-hex-char address.
func IsHex(addr string) bool {
	return common.IsHexAddress(strings.TrimSpace(addr))
}

// Checksum returns the EIP-55 mixed-case form of addr.
func Checksum(addr string) (string, error) {
	if !IsHex(addr) {
		return "", ErrNotHex
	}
	clean := strings.TrimSpace(addr)
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")
	lower := strings.ToLower(clean)

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	hash := hex.EncodeToString(h.Sum(nil))

	var out strings.Builder
	out.WriteString("0x")
	for i, c := range lower {
		// Uppercase a letter when the matching hash nibble is >= 8.
		if c >= 'a' && c <= 'f' && hash[i] >= '8' {
			out.WriteByte(byte(c - 32))
			continue
		}
		out.WriteByte(byte(c))
	}
	return out.String(), nil
}

// Display returns the checksummed address when addr is hex, or addr unchanged.
func Display(addr string) string {
	if cs, err := Checksum(addr); err == nil {
		return cs
	}
	return addr
}

// Short truncates an address to "0x1234…abcd" for tables.
func Short(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
