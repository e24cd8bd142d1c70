package nodeid

import (
	"testing"

	"github.com/Arize-ai/phoenix-sub001/internal/apierr"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	raw := Encode("Dataset", 42)
	id, err := Decode(raw, "Dataset")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if id != 42 {
		t.Fatalf("id = %d, want 42", id)
	}
}

func TestDecodeRejectsWrongType(t *testing.T) {
	raw := Encode("Span", 7)
	if _, err := Decode(raw, "Trace"); !apierr.IsValidation(err) {
		t.Fatalf("wrong type: err = %v, want validation", err)
	}
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	for _, raw := range []string{
		"",
		"not base64!!!",
		Encode("Dataset", -1),
		"RGF0YXNldA==",     // "Dataset", no separator
		"RGF0YXNldDphYmM=", // "Dataset:abc"
	} {
		if _, err := Decode(raw, "Dataset"); !apierr.IsValidation(err) {
			t.Errorf("Decode(%q): err = %v, want validation", raw, err)
		}
	}
}
