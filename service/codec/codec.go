// Package codec applies the reversible text encoding used to carry JSON
// payloads over text-only transports.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	"github.com/viant/durable/model"
)

// Encode validates payload as JSON and returns its base64 text form.
// An empty payload encodes to an empty string.
func Encode(payload json.RawMessage) (string, error) {
	if len(payload) == 0 {
		return "", nil
	}
	if !json.Valid(payload) {
		return "", model.NewError(model.ErrEncoding, "encode", "payload is not valid JSON")
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// Decode reverses Encode.
func Decode(text string) (json.RawMessage, error) {
	if text == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, model.WrapError(model.ErrEncoding, "decode", err)
	}
	if !json.Valid(data) {
		return nil, model.NewError(model.ErrEncoding, "decode", "decoded payload is not valid JSON")
	}
	return data, nil
}

// Compact removes insignificant whitespace from a JSON payload.
func Compact(payload json.RawMessage) (json.RawMessage, error) {
	if len(payload) == 0 {
		return payload, nil
	}
	buffer := &bytes.Buffer{}
	if err := json.Compact(buffer, payload); err != nil {
		return nil, model.WrapError(model.ErrEncoding, "compact", err)
	}
	return buffer.Bytes(), nil
}

// Marshal encodes v as JSON and then as text.
func Marshal(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", model.WrapError(model.ErrEncoding, "marshal", err)
	}
	return Encode(data)
}
