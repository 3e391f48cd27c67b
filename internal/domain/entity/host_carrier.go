package entity

import (
	"time"
)

// HostCarrier is an airline whose competitors are scraped
type HostCarrier struct {
	ID              uint
	Code            string
	Name            string
	ScrapingEnabled bool
	DefaultCurrency string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
