package types

import "encoding/json"

// Opt is a tri-state optional for PATCH payloads: absent (Set=false) leaves
// the stored value untouched, an explicit JSON null (Set=true, Value=nil)
// clears a nullable column, and a concrete value replaces it.
type Opt[T any] struct {
	Set   bool
	Value *T
}

func Some[T any](v T) Opt[T] { return Opt[T]{Set: true, Value: &v} }

func Null[T any]() Opt[T] { return Opt[T]{Set: true} }

func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}
