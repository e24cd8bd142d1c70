package canonjson

import (
	"encoding/json"
	"testing"
)

func TestCanonicalizeSortsKeysAndStripsWhitespace(t *testing.T) {
	got, err := Canonicalize(json.RawMessage(`{ "b": 1, "a": { "d": 2, "c": 3 } }`))
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	want := `{"a":{"c":3,"d":2},"b":1}`
	if string(got) != want {
		t.Fatalf("canonical form = %s, want %s", got, want)
	}
}

func TestCanonicalizePreservesNumberLiterals(t *testing.T) {
	// 0.5 must not become 0.5000000000000001 or 5e-1; the source literal
	// survives canonicalization so hashes are stable across round trips.
	got, err := Canonicalize(json.RawMessage(`{"temperature": 0.5, "big": 9007199254740993}`))
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	want := `{"big":9007199254740993,"temperature":0.5}`
	if string(got) != want {
		t.Fatalf("canonical form = %s, want %s", got, want)
	}
}

func TestCanonicalizeDoesNotEscapeHTML(t *testing.T) {
	got, err := Canonicalize(json.RawMessage(`{"q": "a < b && c > d"}`))
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	want := `{"q":"a < b && c > d"}`
	if string(got) != want {
		t.Fatalf("canonical form = %s, want %s", got, want)
	}
}

func TestCanonicalizeRejectsInvalidJSON(t *testing.T) {
	if _, err := Canonicalize(json.RawMessage(`{"a":`)); err == nil {
		t.Fatal("truncated JSON accepted")
	}
}

func TestMarshalRejectsNonFiniteNumbers(t *testing.T) {
	if _, err := Marshal(map[string]any{"x": []any{1.0, nan()}}); err == nil {
		t.Fatal("NaN accepted")
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestHashContentIsOrderInsensitive(t *testing.T) {
	a, err := HashContent(
		json.RawMessage(`{"q": "x", "n": 1}`),
		json.RawMessage(`{"a": "y"}`),
		nil,
	)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	b, err := HashContent(
		json.RawMessage(`{"n": 1, "q": "x"}`),
		json.RawMessage(`{ "a" : "y" }`),
		json.RawMessage(`{}`),
	)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if a != b {
		t.Fatalf("hashes differ for equivalent content: %s vs %s", a, b)
	}

	c, err := HashContent(
		json.RawMessage(`{"q": "x", "n": 2}`),
		json.RawMessage(`{"a": "y"}`),
		nil,
	)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if a == c {
		t.Fatal("different content produced the same hash")
	}
	if len(a) != 64 {
		t.Fatalf("hash length = %d, want 64 hex chars", len(a))
	}
}
