package entity

import "time"

type OrderEvent struct {
	ID        uint64
	SessionID string

	EventType string
	OldStatus *string
	NewStatus string

	PayloadJSON *string

	CreatedAt time.Time
}
