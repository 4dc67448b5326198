package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Fingerprint derives a deterministic cache key from a call name and
// its inputs.
//
// Inputs are serialized canonically (keys sorted, each rendered as
// "key:value" and joined with "|" after the call name) so two
// logically identical calls always hash to the same fingerprint
// regardless of map iteration order. The SHA-256 digest keeps keys
// fixed-length and free of characters the store might treat specially.
func Fingerprint(name string, inputs map[string]string) string {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(inputs[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
