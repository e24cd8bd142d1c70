// Package nodeid encodes database row ids as opaque globally unique
// identifiers of the form base64("TypeName:rowID").
package nodeid

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/Arize-ai/phoenix-sub001/internal/apierr"
)

// Encode returns the opaque id for a row of the given type.
func Encode(typeName string, id int64) string {
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%d", typeName, id)))
}

// Decode parses an opaque id and checks it names the expected type. A
// structurally valid id of the wrong type is rejected the same way a
// malformed one is, so callers can treat both as a bad reference.
func Decode(raw, wantType string) (int64, error) {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return 0, apierr.Validationf("invalid %s id %q", wantType, raw)
	}
	typeName, idPart, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return 0, apierr.Validationf("invalid %s id %q", wantType, raw)
	}
	if typeName != wantType {
		return 0, apierr.Validationf("id %q does not reference a %s", raw, wantType)
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id < 0 {
		return 0, apierr.Validationf("invalid %s id %q", wantType, raw)
	}
	return id, nil
}
