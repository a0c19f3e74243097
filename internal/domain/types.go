package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Method is the HTTP verb of a request.
type Method string

const (
	MethodGet   Method = "GET"
	MethodPost  Method = "POST"
	MethodPut   Method = "PUT"
	MethodPatch Method = "PATCH"
)

// Param is a single request parameter. Value must be a JSON-compatible
// scalar (string, bool, integer or float kinds, or nil).
type Param struct {
	Key   string
	Value any
}

// Params is an ordered parameter list. Order is preserved on the wire, both
// in JSON bodies and in query strings.
type Params []Param

// Set appends key=value, or replaces the value of an existing key in place.
func (p Params) Set(key string, value any) Params {
	for i := range p {
		if p[i].Key == key {
			p[i].Value = value
			return p
		}
	}
	return append(p, Param{Key: key, Value: value})
}

// Get returns the value stored under key.
func (p Params) Get(key string) (any, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// MarshalJSON writes the parameters as a JSON object in insertion order.
func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", kv.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Query encodes the parameters as a query string in insertion order.
func (p Params) Query() string {
	var buf bytes.Buffer
	for i, kv := range p {
		if i > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(url.QueryEscape(kv.Key))
		buf.WriteByte('=')
		buf.WriteString(url.QueryEscape(scalarString(kv.Value)))
	}
	return buf.String()
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// RequestDescriptor describes one logical API call. It is treated as
// immutable once handed to the dispatcher.
type RequestDescriptor struct {
	Method       Method
	URL          string
	Params       Params
	RequiresAuth bool
	// PatchViaOverride sends a PATCH as POST with X-HTTP-Method-Override.
	PatchViaOverride bool
}

// Get builds a GET descriptor.
func Get(url string, params Params) RequestDescriptor {
	return RequestDescriptor{Method: MethodGet, URL: url, Params: params}
}

// Post builds a POST descriptor.
func Post(url string, params Params) RequestDescriptor {
	return RequestDescriptor{Method: MethodPost, URL: url, Params: params}
}

// Put builds a PUT descriptor.
func Put(url string, params Params) RequestDescriptor {
	return RequestDescriptor{Method: MethodPut, URL: url, Params: params}
}

// Patch builds a PATCH descriptor.
func Patch(url string, params Params) RequestDescriptor {
	return RequestDescriptor{Method: MethodPatch, URL: url, Params: params}
}

// Authenticated returns a copy that carries the bearer token.
func (d RequestDescriptor) Authenticated() RequestDescriptor {
	d.RequiresAuth = true
	return d
}

// ViaOverride returns a copy that emulates PATCH through POST.
func (d RequestDescriptor) ViaOverride() RequestDescriptor {
	d.PatchViaOverride = true
	return d
}

// Result is what a completion callback receives. Payload and Err are
// independent: an OAuthAlreadyLinked error arrives together with a payload.
type Result struct {
	Payload json.RawMessage
	Err     *APIError
}

// OK reports whether the call succeeded without a classified error.
func (r Result) OK() bool {
	return r.Err == nil
}

// HasPayload reports whether a non-null payload was delivered.
func (r Result) HasPayload() bool {
	return len(r.Payload) > 0 && !bytes.Equal(bytes.TrimSpace(r.Payload), []byte("null"))
}

// Decode unmarshals the payload into v.
func (r Result) Decode(v any) error {
	if !r.HasPayload() {
		return fmt.Errorf("no payload to decode")
	}
	return json.Unmarshal(r.Payload, v)
}

// Completion receives the outcome of one dispatcher call, exactly once, on
// the main execution context.
type Completion func(Result)
