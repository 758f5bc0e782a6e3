package redisx

import (
	"fmt"
	"time"
)

const (
	// Cached order status: order_status:{order_id} -> {"status": "...", "updated_at": "..."}
	KeyOrderStatus = "order_status:%s"

	// Product list pages: products:v{version}:{filter key}. Bumping the
	// version key orphans every cached page at once.
	KeyProductList    = "products:v%d:%s"
	KeyProductVersion = "products:version"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache  = 5 * time.Minute
	TTLProductCache = time.Minute
	TTLDedup        = 48 * time.Hour
)

func OrderStatusKey(orderID string) string { return fmt.Sprintf(KeyOrderStatus, orderID) }

func DedupKey(service, eventID string) string { return fmt.Sprintf(KeyDedup, service, eventID) }
