// Package canonjson produces the canonical JSON form used for dataset
// example content hashing: object keys sorted, ":" and "," separators with
// no extraneous whitespace, UTF-8, numbers preserved as written, NaN and
// infinities rejected.
package canonjson

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
)

// Canonicalize re-encodes raw JSON into its canonical form.
func Canonicalize(raw json.RawMessage) ([]byte, error) {
	v, err := decode(raw)
	if err != nil {
		return nil, err
	}
	return Marshal(v)
}

// Marshal encodes a value canonically. Map keys are sorted at every level
// (encoding/json's behavior); json.Number values keep their source literal.
func Marshal(v any) ([]byte, error) {
	if err := rejectNonFinite(v); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// HashContent computes the content hash of a dataset example revision:
// sha256 over canonical JSON of {"input": ..., "metadata": ..., "output": ...}.
func HashContent(input, output, metadata json.RawMessage) (string, error) {
	in, err := decode(input)
	if err != nil {
		return "", fmt.Errorf("input: %w", err)
	}
	out, err := decode(output)
	if err != nil {
		return "", fmt.Errorf("output: %w", err)
	}
	meta, err := decode(metadata)
	if err != nil {
		return "", fmt.Errorf("metadata: %w", err)
	}
	b, err := Marshal(map[string]any{"input": in, "output": out, "metadata": meta})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func decode(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func rejectNonFinite(v any) error {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("non-finite number %v not representable in canonical JSON", t)
		}
	case map[string]any:
		for _, e := range t {
			if err := rejectNonFinite(e); err != nil {
				return err
			}
		}
	case []any:
		for _, e := range t {
			if err := rejectNonFinite(e); err != nil {
				return err
			}
		}
	}
	return nil
}
