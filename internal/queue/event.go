// Package queue defines the broker payloads and the background consumer
// that moves search logs from RabbitMQ into the analytics store.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/iliyamo/train-seat-booking/internal/model"
)

// SearchLoggedQueue is the durable queue search logs are published to.
const SearchLoggedQueue = "search.logged"

// searchLoggedVersion is bumped whenever SearchLoggedEvent changes shape.
const searchLoggedVersion = 1

// SearchLoggedEvent is published once per train search.  It carries the
// whole log entry so consumers never need to query the primary database.
type SearchLoggedEvent struct {
	Version int             `json:"v"`
	Route   string          `json:"route"`
	Entry   model.SearchLog `json:"entry"`
}

// EncodeSearchLogged serialises entry for publishing.
func EncodeSearchLogged(entry model.SearchLog) ([]byte, error) {
	return json.Marshal(SearchLoggedEvent{
		Version: searchLoggedVersion,
		Route:   entry.Route(),
		Entry:   entry,
	})
}

// DecodeSearchLogged parses a message body produced by EncodeSearchLogged.
func DecodeSearchLogged(body []byte) (model.SearchLog, error) {
	var ev SearchLoggedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return model.SearchLog{}, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Version != searchLoggedVersion {
		return model.SearchLog{}, fmt.Errorf("unsupported event version %d", ev.Version)
	}
	return ev.Entry, nil
}
