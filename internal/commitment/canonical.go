// Copyright 2025 LifeReady
//
// Package commitment provides the canonical JSON encoding and sha256
// hashing primitives shared by the audit log and the vault: a stable,
// deterministic byte representation is the precondition for a hash chain
// or a content address to mean anything across re-serializations.
package commitment

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// CanonicalizeJSON takes arbitrary JSON bytes and returns a canonical
// encoding: sorted object keys at every depth, array order preserved, no
// insignificant whitespace (encoding/json already omits it).
func CanonicalizeJSON(raw []byte) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(canonicalizeValue(v))
}

func canonicalizeValue(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(map[string]interface{}, len(vv))
		for _, k := range keys {
			ordered[k] = canonicalizeValue(vv[k])
		}
		return ordered
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, e := range vv {
			out[i] = canonicalizeValue(e)
		}
		return out
	default:
		return vv
	}
}

// MarshalCanonical marshals v to JSON, then canonicalizes key order.
func MarshalCanonical(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return CanonicalizeJSON(raw)
}

// HashBytes returns the lowercase hex sha256 digest of data.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashConcat returns the sha256 digest of the concatenation of parts.
func HashConcat(parts ...[]byte) []byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// HashCanonical canonically marshals v and returns its lowercase hex
// sha256 digest.
func HashCanonical(v interface{}) (string, error) {
	canon, err := MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return HashBytes(canon), nil
}

// IsLowerHex64 reports whether s is exactly 64 lowercase hex characters,
// the shape every sha256 hex digest in this system must have.
func IsLowerHex64(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
