package model

import "time"

// SearchLog describes one train search request.  It is produced by the
// search logging middleware and shipped to the analytics store off the
// request path; nothing in the booking flow reads it.
type SearchLog struct {
	Endpoint  string            `json:"endpoint"`
	Params    map[string]string `json:"params"`
	UserID    *uint64           `json:"user_id"`
	ElapsedMS float64           `json:"execution_time_ms"`
	Timestamp time.Time         `json:"timestamp"`
}

// HasRoute reports whether the search named both ends of a route.  Only
// such searches are ranked by route analytics.
func (l SearchLog) HasRoute() bool {
	return l.Params["source"] != "" && l.Params["destination"] != ""
}

// Route returns the "source→destination" key used by route analytics.
// Missing parts are rendered as "*".
func (l SearchLog) Route() string {
	src, dst := l.Params["source"], l.Params["destination"]
	if src == "" {
		src = "*"
	}
	if dst == "" {
		dst = "*"
	}
	return src + "→" + dst
}
