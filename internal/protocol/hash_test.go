package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestCanonicalJSONSortsKeys(t *testing.T) {
	got, err := CanonicalJSON(map[string]any{"b": 2, "a": 1})
	if err != nil {
		t.Fatalf("CanonicalJSON error: %v", err)
	}
	if string(got) != `{"a":1,"b":2}` {
		t.Fatalf("unexpected canonical form %s", got)
	}
}

func TestCanonicalJSONRawMessage(t *testing.T) {
	got, err := CanonicalJSON(json.RawMessage(`{ "z": true,  "a": [1, 2] }`))
	if err != nil {
		t.Fatalf("CanonicalJSON error: %v", err)
	}
	if string(got) != `{"a":[1,2],"z":true}` {
		t.Fatalf("unexpected canonical form %s", got)
	}
}

func TestCanonicalJSONStructTags(t *testing.T) {
	got, err := CanonicalJSON(OpenProof{TransactionID: "tx1", IDRAmount: 5})
	if err != nil {
		t.Fatalf("CanonicalJSON error: %v", err)
	}
	want := `{"btcAddress":"","confirmedAt":"","event":"","idrAmount":5,"status":"","transactionId":"tx1","xenditTxId":""}`
	if string(got) != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestHashCanonicalIgnoresKeyOrder(t *testing.T) {
	h1, err := HashCanonical(map[string]any{"x": 1, "y": "two"})
	if err != nil {
		t.Fatalf("HashCanonical error: %v", err)
	}
	h2, err := HashCanonical(json.RawMessage(`{"y":"two","x":1}`))
	if err != nil {
		t.Fatalf("HashCanonical error: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected equal hashes, got %q and %q", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("expected hex sha256, got %q", h1)
	}
}

func TestCanonicalJSONRejectsUnsupported(t *testing.T) {
	if _, err := CanonicalJSON(make(chan int)); err == nil {
		t.Fatalf("expected marshal error for channel")
	}
}

func TestCanonicalJSONScalars(t *testing.T) {
	cases := map[any]string{
		"plain": `"plain"`,
		42:      `42`,
		true:    `true`,
	}
	for in, want := range cases {
		got, err := CanonicalJSON(in)
		if err != nil {
			t.Fatalf("CanonicalJSON(%v) error: %v", in, err)
		}
		if string(got) != want {
			t.Fatalf("CanonicalJSON(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestCanonicalJSONRejectsUnsafeIntegers(t *testing.T) {
	cases := []any{
		map[string]any{"amountSats": int64(9007199254740993)},
		json.RawMessage(`{"nested":[1,{"v":123456789012345678901234567890}]}`),
		json.RawMessage(`[-9007199254740995]`),
		map[string]any{"pow": int64(1) << 60},
	}
	for _, in := range cases {
		if _, err := CanonicalJSON(in); !errors.Is(err, ErrUnsafeInteger) {
			t.Fatalf("expected ErrUnsafeInteger for %v, got %v", in, err)
		}
	}
}

func TestCanonicalJSONKeepsExactIntegers(t *testing.T) {
	got, err := CanonicalJSON(map[string]any{
		"max":   int64(9007199254740992),
		"min":   int64(-9007199254740992),
		"float": 0.1,
	})
	if err != nil {
		t.Fatalf("CanonicalJSON error: %v", err)
	}
	want := `{"float":0.1,"max":9007199254740992,"min":-9007199254740992}`
	if string(got) != want {
		t.Fatalf("got %s want %s", got, want)
	}
}
