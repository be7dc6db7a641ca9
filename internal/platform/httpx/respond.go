// Package httpx decodes error bodies returned by the backend and writes
// responses in the same shape.
package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Detail sends a {"detail": ...} body.
func Detail(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, map[string]string{"detail": detail})
}

// Fields sends field-level validation messages, preserving field order.
func Fields(w http.ResponseWriter, status int, fields ...FieldError) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fe := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(fe.Field)
		messages := fe.Messages
		if messages == nil {
			messages = []string{}
		}
		value, _ := json.Marshal(messages)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
