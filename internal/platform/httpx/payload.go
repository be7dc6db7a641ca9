package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// PayloadKind tags the shape of an error body.
type PayloadKind int

const (
	// PayloadEmpty means the response carried no body.
	PayloadEmpty PayloadKind = iota
	// PayloadText is a bare string or a non-JSON body.
	PayloadText
	// PayloadDetail is an object with a top-level detail or non_field_errors entry.
	PayloadDetail
	// PayloadFields is an object of field-level validation messages.
	PayloadFields
)

// FieldError holds one field's messages in the order the server sent them.
// Nested fields use dotted names, list positions use their index.
type FieldError struct {
	Field    string
	Messages []string
}

// Payload is an error body decoded at the HTTP boundary.
type Payload struct {
	Kind     PayloadKind
	Text     string
	Detail   string
	NonField []string
	Message  string
	Error    string
	Fields   []FieldError
}

type member struct {
	key string
	raw json.RawMessage
}

// DecodePayload classifies an error response body.
func DecodePayload(body []byte) Payload {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Payload{Kind: PayloadEmpty}
	}
	if !json.Valid(trimmed) {
		return Payload{Kind: PayloadText, Text: string(trimmed)}
	}

	switch trimmed[0] {
	case '"':
		var text string
		_ = json.Unmarshal(trimmed, &text)
		return textPayload(text)
	case '[':
		var fields []FieldError
		collect("", trimmed, &fields)
		if len(fields) == 1 && fields[0].Field == "" {
			return textPayload(strings.Join(fields[0].Messages, ", "))
		}
		return Payload{Kind: PayloadFields, Fields: fields}
	case '{':
		members, err := decodeObject(trimmed)
		if err != nil {
			return Payload{Kind: PayloadText, Text: string(trimmed)}
		}
		return objectPayload(members)
	}
	return textPayload(scalarString(trimmed))
}

func textPayload(text string) Payload {
	if strings.TrimSpace(text) == "" {
		return Payload{Kind: PayloadEmpty}
	}
	return Payload{Kind: PayloadText, Text: text}
}

func objectPayload(members []member) Payload {
	p := Payload{Kind: PayloadFields}
	for _, m := range members {
		switch m.key {
		case "detail":
			p.Detail = flattenValue(m.raw)
		case "non_field_errors":
			var nested []FieldError
			collect("", m.raw, &nested)
			for _, fe := range nested {
				p.NonField = append(p.NonField, fe.Messages...)
			}
			continue
		case "message":
			p.Message = stringValue(m.raw)
		case "error":
			p.Error = stringValue(m.raw)
		}
		if m.key != "detail" {
			collect(m.key, m.raw, &p.Fields)
		}
	}
	if p.Detail != "" || len(p.NonField) > 0 {
		p.Kind = PayloadDetail
	}
	return p
}

// Flatten renders a payload as one human-readable line. A top-level detail or
// non_field_errors entry is returned verbatim; otherwise each field contributes
// "field: first message".
func Flatten(p Payload) string {
	switch p.Kind {
	case PayloadEmpty:
		return ""
	case PayloadText:
		return p.Text
	}
	if p.Detail != "" {
		return p.Detail
	}
	if len(p.NonField) > 0 {
		return strings.Join(p.NonField, ", ")
	}
	if len(p.Fields) == 1 {
		only := p.Fields[0]
		if (only.Field == "message" || only.Field == "error") && len(only.Messages) > 0 {
			return only.Messages[0]
		}
	}
	parts := make([]string, 0, len(p.Fields))
	for _, fe := range p.Fields {
		if len(fe.Messages) == 0 {
			continue
		}
		if fe.Field == "" {
			parts = append(parts, fe.Messages[0])
			continue
		}
		parts = append(parts, fe.Field+": "+fe.Messages[0])
	}
	return strings.Join(parts, ", ")
}

// FlattenBody is DecodePayload followed by Flatten.
func FlattenBody(body []byte) string {
	return Flatten(DecodePayload(body))
}

func decodeObject(data []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("httpx: expected object")
	}
	var members []member
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, errors.New("httpx: expected object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		members = append(members, member{key: key, raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return members, nil
}

func collect(prefix string, raw json.RawMessage, out *[]FieldError) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return
	}
	switch trimmed[0] {
	case '{':
		members, err := decodeObject(trimmed)
		if err != nil {
			return
		}
		for _, m := range members {
			collect(joinField(prefix, m.key), m.raw, out)
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return
		}
		var messages []string
		for i, item := range items {
			it := bytes.TrimSpace(item)
			if len(it) > 0 && (it[0] == '{' || it[0] == '[') {
				collect(joinField(prefix, strconv.Itoa(i)), it, out)
				continue
			}
			if s := scalarString(it); s != "" {
				messages = append(messages, s)
			}
		}
		if len(messages) > 0 {
			*out = append(*out, FieldError{Field: prefix, Messages: messages})
		}
	default:
		if s := scalarString(trimmed); s != "" {
			*out = append(*out, FieldError{Field: prefix, Messages: []string{s}})
		}
	}
}

func flattenValue(raw json.RawMessage) string {
	if s := stringValue(raw); s != "" {
		return s
	}
	var nested []FieldError
	collect("", raw, &nested)
	return Flatten(Payload{Kind: PayloadFields, Fields: nested})
}

func stringValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func scalarString(raw []byte) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	return string(raw)
}

func joinField(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
