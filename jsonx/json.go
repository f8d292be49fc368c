// Package jsonx is the codec for records the ledger persists. Map keys are sorted so
// equal records always encode to equal bytes.
package jsonx

import (
	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

func Marshal(v interface{}) ([]byte, error) {
	return codec.Marshal(v)
}

func Unmarshal(data []byte, v interface{}) error {
	return codec.Unmarshal(data, v)
}

// MarshalString is for log lines; encoding failures yield an empty string
func MarshalString(v interface{}) string {
	s, err := codec.MarshalToString(v)
	if err != nil {
		return ""
	}
	return s
}
