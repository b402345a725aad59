package feed

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// The feed publishes every value as a JSON string, but numbers and nulls
// show up as well. OptInt and OptString decode all of these once at the
// ingestion boundary so the rest of the system deals in typed optionals
// instead of ad-hoc key lookups.

// OptInt is an optional integer field of a feed record.
type OptInt struct {
	Value int64
	Valid bool
}

// UnmarshalJSON accepts a number, a numeric string, or null. Anything
// unparseable decodes as absent rather than failing the record.
func (o *OptInt) UnmarshalJSON(b []byte) error {
	o.Valid = false
	s := string(bytes.TrimSpace(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	o.Value = v
	o.Valid = true
	return nil
}

// Ptr returns the value as a nullable for storage.
func (o OptInt) Ptr() *int64 {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

// OptFloat is an optional float field of a feed record.
type OptFloat struct {
	Value float64
	Valid bool
}

// UnmarshalJSON accepts a number, a numeric string, or null.
func (o *OptFloat) UnmarshalJSON(b []byte) error {
	o.Valid = false
	s := string(bytes.TrimSpace(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	o.Value = v
	o.Valid = true
	return nil
}

// Ptr returns the value as a nullable for storage.
func (o OptFloat) Ptr() *float64 {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

// OptString is an optional string field of a feed record.
type OptString struct {
	Value string
	Valid bool
}

// UnmarshalJSON accepts a string, a bare scalar, or null.
func (o *OptString) UnmarshalJSON(b []byte) error {
	o.Valid = false
	s := string(bytes.TrimSpace(b))
	if s == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		// Bare number or boolean; keep its literal form.
		str = s
	}
	if str == "" {
		return nil
	}
	o.Value = str
	o.Valid = true
	return nil
}

// Ptr returns the value as a nullable for storage.
func (o OptString) Ptr() *string {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

// EstimationRecord is one arrival prediction for a (stop, line) pair as
// published by the estimations dataset. Field keys follow the feed's
// namespaced convention.
type EstimationRecord struct {
	StopID       OptInt    `json:"ayto:paradaId"`
	Line         OptString `json:"ayto:etiqLinea"`
	FeedInstant  OptString `json:"ayto:fechActual"`
	ETA1         OptInt    `json:"ayto:tiempo1"`
	ETA2         OptInt    `json:"ayto:tiempo2"`
	Distance1    OptInt    `json:"ayto:distancia1"`
	Distance2    OptInt    `json:"ayto:distancia2"`
	Destination1 OptString `json:"ayto:destino1"`
	Destination2 OptString `json:"ayto:destino2"`
}

// PredictedArrival derives the absolute arrival instant as feed instant
// plus the first ETA in seconds. It returns nil when the instant is
// missing or unparseable or the ETA is absent; callers store the record
// anyway.
func (r *EstimationRecord) PredictedArrival() *time.Time {
	if !r.FeedInstant.Valid || !r.ETA1.Valid {
		return nil
	}
	t, err := ParseInstant(r.FeedInstant.Value)
	if err != nil {
		return nil
	}
	at := t.Add(time.Duration(r.ETA1.Value) * time.Second)
	return &at
}

// PositionRecord is one vehicle location report from the positions
// dataset. Every field is nullable at the source and passes through as-is.
type PositionRecord struct {
	Instant OptString `json:"ayto:instante"`
	Vehicle OptInt    `json:"ayto:vehiculo"`
	Line    OptInt    `json:"ayto:linea"`
	Lat     OptFloat  `json:"wgs84_pos:lat"`
	Lon     OptFloat  `json:"wgs84_pos:long"`
	Speed   OptInt    `json:"ayto:velocidad"`
	Status  OptInt    `json:"ayto:estado"`
}

// ParseInstant parses a feed timestamp. The feed usually emits RFC 3339
// with a zone designator but occasionally drops the zone, in which case
// UTC is assumed.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}
