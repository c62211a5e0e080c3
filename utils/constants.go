package utils

import (
	"time"
)

// ContextKey is the type for values the handlers attach to request contexts
type ContextKey string

// Request context keys
const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
)

// Counter page constants
const (
	// DefaultCounterName is the counter rendered by the counter page
	DefaultCounterName = "main_counter"

	// CounterNameMaxLength mirrors the size of counters.name
	CounterNameMaxLength = 100

	// DefaultCounterViewTTL is how long an idle counter page keeps its display state
	DefaultCounterViewTTL = 2 * time.Hour

	// CounterViewKeyPrefix namespaces view state keys in the cache
	CounterViewKeyPrefix = "counter_view:"
)

// Request timeouts
const (
	// PageRequestTimeout bounds the store work of a single page request
	PageRequestTimeout = 10 * time.Second
)
