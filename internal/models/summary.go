package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the ISO-8601 millisecond format the store contract uses
// for record timestamps. Timestamps are always written in UTC.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// SummaryRecord is the cached result of summarizing one URL. Key points and
// the cache-origin flag are native Go types everywhere in the application;
// the flat string encoding below exists only at the store boundary.
type SummaryRecord struct {
	URL           string    `json:"url"`
	URLHash       string    `json:"urlHash"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary"`
	KeyPoints     []string  `json:"keyPoints"`
	Timestamp     time.Time `json:"timestamp"`
	SummarizedBy  string    `json:"summarizedBy"`
	SummaryLength string    `json:"summaryLength"`
	FromCache     bool      `json:"fromCache"`
}

// MarshalJSON emits the timestamp in the millisecond ISO-8601 form clients
// expect, rather than Go's default RFC 3339 nanosecond rendering.
func (r *SummaryRecord) MarshalJSON() ([]byte, error) {
	type alias SummaryRecord
	return json.Marshal(&struct {
		*alias
		Timestamp string `json:"timestamp"`
	}{
		alias:     (*alias)(r),
		Timestamp: r.Timestamp.UTC().Format(TimestampLayout),
	})
}

// Fields encodes the record into the flat hash layout other tooling reads:
// keyPoints as a JSON array string, fromCache as "true"/"false", timestamp in
// ISO-8601 UTC.
func (r *SummaryRecord) Fields() (map[string]string, error) {
	points := r.KeyPoints
	if points == nil {
		points = []string{}
	}
	encoded, err := json.Marshal(points)
	if err != nil {
		return nil, fmt.Errorf("encode key points: %w", err)
	}

	fromCache := "false"
	if r.FromCache {
		fromCache = "true"
	}

	return map[string]string{
		"url":           r.URL,
		"urlHash":       r.URLHash,
		"title":         r.Title,
		"summary":       r.Summary,
		"keyPoints":     string(encoded),
		"timestamp":     r.Timestamp.UTC().Format(TimestampLayout),
		"summarizedBy":  r.SummarizedBy,
		"summaryLength": r.SummaryLength,
		"fromCache":     fromCache,
	}, nil
}

// ParseSummaryFields decodes a stored hash back into a SummaryRecord.
func ParseSummaryFields(fields map[string]string) (*SummaryRecord, error) {
	rec := &SummaryRecord{
		URL:           fields["url"],
		URLHash:       fields["urlHash"],
		Title:         fields["title"],
		Summary:       fields["summary"],
		SummarizedBy:  fields["summarizedBy"],
		SummaryLength: fields["summaryLength"],
		FromCache:     fields["fromCache"] == "true",
	}

	if raw := fields["keyPoints"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.KeyPoints); err != nil {
			return nil, fmt.Errorf("decode key points: %w", err)
		}
	}
	if rec.KeyPoints == nil {
		rec.KeyPoints = []string{}
	}

	if raw := fields["timestamp"]; raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("decode timestamp: %w", err)
		}
		rec.Timestamp = ts.UTC()
	}

	return rec, nil
}
