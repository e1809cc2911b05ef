// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the two wire encodings of the command protocol.
//
// Text WebSocket frames carry JSON. That is the format every editor
// client speaks. Binary frames carry the same envelopes as CBOR, for
// callers that move byte payloads such as screenshots without base64.
// Envelope types use `json` struct tags only. fxamacker/cbor reads them
// as a fallback, so one tag set names fields in both formats.
package codec

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Format selects the encoding of a frame.
type Format uint8

const (
	JSON Format = iota
	CBOR
)

func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case CBOR:
		return "cbor"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	// Params maps are decoded into map[string]any so handlers see the
	// same shapes regardless of frame format.
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v in the given format. CBOR uses Core Deterministic
// Encoding, so equal values produce equal bytes.
func Marshal(format Format, v any) ([]byte, error) {
	switch format {
	case JSON:
		return json.Marshal(v)
	case CBOR:
		return encMode.Marshal(v)
	default:
		return nil, fmt.Errorf("codec: unsupported format %s", format)
	}
}

// Unmarshal decodes data in the given format into v.
func Unmarshal(format Format, data []byte, v any) error {
	switch format {
	case JSON:
		return json.Unmarshal(data, v)
	case CBOR:
		return decMode.Unmarshal(data, v)
	default:
		return fmt.Errorf("codec: unsupported format %s", format)
	}
}

// Diagnose renders CBOR data in RFC 8949 diagnostic notation for logs.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
