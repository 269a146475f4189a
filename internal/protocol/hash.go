package protocol

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/gowebpki/jcs"
)

// ErrUnsafeInteger is returned for integers beyond +/-2^53, which the canonical
// form cannot render without changing their value.
var ErrUnsafeInteger = errors.New("integer cannot be represented exactly")

// CanonicalJSON renders v as RFC 8785 canonical JSON. Struct tags are honoured
// by the first marshal; key order and number formatting come from the transform.
func CanonicalJSON(v any) ([]byte, error) {
	var raw []byte
	switch x := v.(type) {
	case json.RawMessage:
		raw = x
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		raw = b
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] != '{' && trimmed[0] != '[' {
		// jcs only takes objects and arrays at the top level.
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return nil, fmt.Errorf("canonicalize payload: %w", err)
		}
		return buf.Bytes(), nil
	}
	if err := checkIntegers(trimmed); err != nil {
		return nil, err
	}
	out, err := jcs.Transform(trimmed)
	if err != nil {
		return nil, fmt.Errorf("canonicalize payload: %w", err)
	}
	return out, nil
}

func checkIntegers(raw []byte) error {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("canonicalize payload: %w", err)
	}
	return walkNumbers(doc, "$")
}

func walkNumbers(v any, path string) error {
	switch x := v.(type) {
	case map[string]any:
		for k, child := range x {
			if err := walkNumbers(child, path+"."+k); err != nil {
				return err
			}
		}
	case []any:
		for i, child := range x {
			if err := walkNumbers(child, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case json.Number:
		if !safeInteger(x.String()) {
			return fmt.Errorf("%w: %s at %s", ErrUnsafeInteger, x, path)
		}
	}
	return nil
}

// maxSafeInteger is 2^53. Larger integers do not keep their digits through the
// double formatting RFC 8785 prescribes.
var maxSafeInteger = new(big.Int).Lsh(big.NewInt(1), 53)

func safeInteger(num string) bool {
	if strings.ContainsAny(num, ".eE") {
		return true
	}
	n, ok := new(big.Int).SetString(num, 10)
	if !ok {
		return false
	}
	return n.CmpAbs(maxSafeInteger) <= 0
}

func SHA256Hex(in []byte) string {
	h := sha256.Sum256(in)
	return hex.EncodeToString(h[:])
}

func HashCanonical(v any) (string, error) {
	b, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	return SHA256Hex(b), nil
}
