package entity

import (
	"net/http"
	"time"
)

// UsageEvent records one successful key validation. Events are append-only.
type UsageEvent struct {
	ID            uint64    `db:"id"`
	KeyID         uint64    `db:"key_id"`
	OccurredAt    time.Time `db:"occurred_at"`
	Endpoint      string    `db:"endpoint"`
	SourceAddress string    `db:"source_address"`
	Method        string    `db:"method"`
}

// Column widths of usage_events; longer values are clipped before insert.
const (
	MaxEndpointLength      = 2048
	MaxSourceAddressLength = 64
)

var usageMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodDelete: {},
	http.MethodPatch:  {},
}

// IsUsageMethod reports whether method can be recorded on a usage event.
func IsUsageMethod(method string) bool {
	_, ok := usageMethods[method]
	return ok
}
