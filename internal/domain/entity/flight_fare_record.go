// internal/domain/entity/flight_fare_record.go
package entity

import (
	"time"
)

// FareState is the live/sold-out classification of a flight
type FareState string

const (
	StateAvailable FareState = "AVAILABLE"
	StateSoldOut   FareState = "SOLD_OUT"
)

// MinimumFare is the cheapest fare of one cabin in the latest scrape pass.
type MinimumFare struct {
	Cabin       string    `bson:"cabin,omitempty" json:"cabin,omitempty"`
	FareAmount  float64   `bson:"fareAmount" json:"fareAmount"`
	Currency    string    `bson:"currency" json:"currency"`
	ScrapedAt   time.Time `bson:"scrapedAt" json:"scrapedAt"`
	Source      string    `bson:"source" json:"source"`
	ClassCode   string    `bson:"classCode,omitempty" json:"classCode,omitempty"`
	PointOfSale string    `bson:"pointOfSale,omitempty" json:"pointOfSale,omitempty"`
	FareFamily  string    `bson:"fareFamily,omitempty" json:"fareFamily,omitempty"`
}

// HistoricalFare is one point of a flight's fare time series, keyed by days to departure.
type HistoricalFare struct {
	Cabin           string    `bson:"cabin,omitempty" json:"cabin,omitempty"`
	ClassCode       string    `bson:"classCode,omitempty" json:"classCode,omitempty"`
	FareFamily      string    `bson:"fareFamily,omitempty" json:"fareFamily,omitempty"`
	FareAmount      float64   `bson:"fareAmount" json:"fareAmount"`
	BaseFare        float64   `bson:"baseFare" json:"baseFare"`
	TaxAmount       float64   `bson:"taxAmount" json:"taxAmount"`
	Surcharge       float64   `bson:"surcharge" json:"surcharge"`
	Currency        string    `bson:"currency" json:"currency"`
	DaysToDeparture int       `bson:"daysToDeparture" json:"daysToDeparture"`
	Source          string    `bson:"source" json:"source"`
	PointOfSale     string    `bson:"pointOfSale,omitempty" json:"pointOfSale,omitempty"`
	ScrapedAt       time.Time `bson:"scrapedAt" json:"scrapedAt"`
}

// DedupKey identifies entries that describe the same price point.
type DedupKey struct {
	Cabin           string
	Currency        string
	ClassCode       string
	DaysToDeparture int
	Source          string
}

// Key returns the dedup identity of the entry. The scrape time is not part of it.
func (h HistoricalFare) Key() DedupKey {
	return DedupKey{
		Cabin:           h.Cabin,
		Currency:        h.Currency,
		ClassCode:       h.ClassCode,
		DaysToDeparture: h.DaysToDeparture,
		Source:          h.Source,
	}
}

// FlightFareRecord is the durable fare aggregate for one flight key.
type FlightFareRecord struct {
	ID              string           `bson:"_id,omitempty" json:"id,omitempty"`
	FlightKey       string           `bson:"flightKey" json:"flightKey"` // unique index
	HostCarrier     string           `bson:"hostCarrier" json:"hostCarrier"`
	CarrierCode     string           `bson:"carrierCode" json:"carrierCode"`
	FlightNumber    string           `bson:"flightNumber" json:"flightNumber"`
	TripType        TripType         `bson:"tripType" json:"tripType"`
	Origin          string           `bson:"origin" json:"origin"`
	Destination     string           `bson:"destination" json:"destination"`
	OutboundDate    time.Time        `bson:"outboundDate" json:"outboundDate"`
	ReturnDate      *time.Time       `bson:"returnDate,omitempty" json:"returnDate,omitempty"`
	DayOfWeek       int              `bson:"dayOfWeek" json:"dayOfWeek"`
	MinimumFares    []MinimumFare    `bson:"minimumFares" json:"minimumFares"`
	HistoricalFares []HistoricalFare `bson:"historicalFares" json:"historicalFares"`
	RoundTripRate   float64          `bson:"roundTripRate" json:"roundTripRate"`
	State           FareState        `bson:"state" json:"state"`
	CreatedAt       time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time        `bson:"updatedAt" json:"updatedAt"`
}

// LatestMinimumFare returns the most recently scraped minimum-fare entry.
func (r *FlightFareRecord) LatestMinimumFare() (MinimumFare, bool) {
	var latest MinimumFare
	found := false
	for _, m := range r.MinimumFares {
		if !found || m.ScrapedAt.After(latest.ScrapedAt) {
			latest = m
			found = true
		}
	}
	return latest, found
}

// FlightFareUpdate is one pending upsert: the record's scalar and aggregate fields plus
// the merged history that replaces everything at or after WindowStart.
type FlightFareUpdate struct {
	Record       *FlightFareRecord
	WindowStart  time.Time
	MergedWindow []HistoricalFare
	IsNew        bool
}
