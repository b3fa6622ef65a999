package domain

import "time"

// FulfillmentEvent — одно событие жизненного цикла продажи (append-only).
type FulfillmentEvent struct {
	SaleID   string
	Type     string
	Reason   string
	Occurred time.Time
}
