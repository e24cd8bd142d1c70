package types

import (
	"encoding/json"
	"testing"
)

func TestOptDistinguishesAbsentNullAndValue(t *testing.T) {
	var payload struct {
		Label Opt[string]  `json:"label"`
		Score Opt[float64] `json:"score"`
		Name  Opt[string]  `json:"name"`
	}
	if err := json.Unmarshal([]byte(`{"label": null, "score": 0.5}`), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !payload.Label.Set || payload.Label.Value != nil {
		t.Errorf("label = %+v, want explicit null", payload.Label)
	}
	if !payload.Score.Set || payload.Score.Value == nil || *payload.Score.Value != 0.5 {
		t.Errorf("score = %+v, want 0.5", payload.Score)
	}
	if payload.Name.Set {
		t.Errorf("name = %+v, want unset", payload.Name)
	}
}

func TestOptMarshalRoundTrip(t *testing.T) {
	b, err := json.Marshal(Some("x"))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(b) != `"x"` {
		t.Errorf("marshal = %s", b)
	}
	b, err = json.Marshal(Null[string]())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(b) != "null" {
		t.Errorf("marshal of null = %s", b)
	}
}
