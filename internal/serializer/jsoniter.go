package serializer

import (
	jsoniter "github.com/json-iterator/go"
)

// JSON is the codec used for stored records, HTTP bodies and bus payloads.
//
// It keeps encoding/json behavior (json struct tags, sorted map keys) so that
// stored records and API responses are stable.
// UseNumber keeps opaque result payloads intact when they are decoded into any.
var JSON = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()
