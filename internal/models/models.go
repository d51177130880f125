package models

import (
	"encoding/json"
	"strconv"
)

// Record is one schema-less mock document. The server owns the "id" key.
type Record map[string]any

const IDField = "id"

// ID returns the record's integer id, accepting any numeric JSON representation.
func (r Record) ID() (int64, bool) {
	return ToInt(r[IDField])
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ToInt converts a decoded JSON value into an integer id.
func ToInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
			return int64(f), true
		}
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	case int:
		return int64(n), true
	case int64:
		return n, true
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

type CreateResourceRequest struct {
	Resource string `json:"resource"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type DeleteRecordResponse struct {
	Message string `json:"message"`
	Deleted Record `json:"deleted"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type PingResponse struct {
	Status    string `json:"status"`
	Resources int    `json:"resources"`
	Records   int    `json:"records"`
	Timestamp string `json:"timestamp"`
}
