package entity

import "time"

// Account links a purchaser email to its order ledger. Orders reference the
// email directly, so guest checkouts become visible the moment an account is
// registered for the same address.
type Account struct {
	ID           uint64
	Email        string
	PasswordHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}
