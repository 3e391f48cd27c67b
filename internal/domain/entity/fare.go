// internal/domain/entity/fare.go
package entity

import (
	"time"
)

// TripType of a scraped observation
type TripType string

const (
	OneWay    TripType = "OW"
	RoundTrip TripType = "RT"
)

// ItineraryLeg is one flown segment of an itinerary.
type ItineraryLeg struct {
	OperatingCarrier string    `bson:"operatingCarrier" json:"operatingCarrier"`
	MarketingCarrier string    `bson:"marketingCarrier" json:"marketingCarrier"`
	FlightNumber     string    `bson:"flightNumber" json:"flightNumber"`
	Origin           string    `bson:"origin" json:"origin"`
	Destination      string    `bson:"destination" json:"destination"`
	DepartureTime    time.Time `bson:"departureTime" json:"departureTime"`
}

// Itinerary is an ordered list of legs. The first itinerary of a bundle is the outbound.
type Itinerary struct {
	Legs []ItineraryLeg `bson:"legs" json:"legs"`
}

// OperatingCarriers returns the distinct operating carriers in leg order.
func (i Itinerary) OperatingCarriers() []string {
	seen := make(map[string]bool, len(i.Legs))
	var carriers []string
	for _, leg := range i.Legs {
		if leg.OperatingCarrier == "" || seen[leg.OperatingCarrier] {
			continue
		}
		seen[leg.OperatingCarrier] = true
		carriers = append(carriers, leg.OperatingCarrier)
	}
	return carriers
}

// FareObservation is one nested fare inside a raw bundle.
// ScrapedAt is nil when the scraper did not record a usable timestamp.
type FareObservation struct {
	Cabin       string     `bson:"cabin,omitempty" json:"cabin,omitempty"`
	ClassCode   string     `bson:"classCode,omitempty" json:"classCode,omitempty"`
	FareFamily  string     `bson:"fareFamily,omitempty" json:"fareFamily,omitempty"`
	FareAmount  float64    `bson:"fareAmount" json:"fareAmount"`
	BaseFare    float64    `bson:"baseFare" json:"baseFare"`
	TaxAmount   float64    `bson:"taxAmount" json:"taxAmount"`
	Surcharge   float64    `bson:"surcharge" json:"surcharge"`
	Currency    string     `bson:"currency" json:"currency"`
	ScrapedAt   *time.Time `bson:"scrapedAt,omitempty" json:"scrapedAt,omitempty"`
	Source      string     `bson:"source" json:"source"`
	PointOfSale string     `bson:"pointOfSale,omitempty" json:"pointOfSale,omitempty"`
}

// ScrapedFareBundle is one raw observation unit written by a scraper worker.
// Bundles are immutable; a later bundle with the same flight key supersedes it.
type ScrapedFareBundle struct {
	ID             string            `bson:"_id,omitempty" json:"id,omitempty"`
	FlightKey      string            `bson:"flightKey" json:"flightKey"`
	HostCarrier    string            `bson:"hostCarrier" json:"hostCarrier"`
	CarrierCode    string            `bson:"carrierCode" json:"carrierCode"`
	FlightNumber   string            `bson:"flightNumber" json:"flightNumber"`
	TripType       TripType          `bson:"tripType" json:"tripType"`
	Origin         string            `bson:"origin" json:"origin"`
	Destination    string            `bson:"destination" json:"destination"`
	OutboundDate   time.Time         `bson:"outboundDate" json:"outboundDate"`
	ReturnDate     *time.Time        `bson:"returnDate,omitempty" json:"returnDate,omitempty"`
	Direction      string            `bson:"direction,omitempty" json:"direction,omitempty"`
	StayDuration   int               `bson:"stayDuration,omitempty" json:"stayDuration,omitempty"`
	Itineraries    []Itinerary       `bson:"itineraries" json:"itineraries"`
	Fares          []FareObservation `bson:"fares" json:"fares"`
	ScrapedAt      time.Time         `bson:"scrapedAt" json:"scrapedAt"`
	Source         string            `bson:"source" json:"source"`
	LoadingBatchID string            `bson:"loadingBatchId,omitempty" json:"loadingBatchId,omitempty"`
}

// Market returns the ORIGIN-DEST identity of the bundle.
func (b *ScrapedFareBundle) Market() string {
	return b.Origin + "-" + b.Destination
}

// Carrier returns CarrierCode, or the first operating carrier of the first itinerary
// when the scraper left it empty.
func (b *ScrapedFareBundle) Carrier() string {
	if b.CarrierCode != "" || len(b.Itineraries) == 0 {
		return b.CarrierCode
	}
	if ops := b.Itineraries[0].OperatingCarriers(); len(ops) > 0 {
		return ops[0]
	}
	return ""
}

// OutboundLegs returns the legs of the first itinerary, or nil.
func (b *ScrapedFareBundle) OutboundLegs() []ItineraryLeg {
	if len(b.Itineraries) == 0 {
		return nil
	}
	return b.Itineraries[0].Legs
}

// NormalizedFare is a fare observation converted to the host's base currency with the
// round-trip rate applied. AppliedRate records the multiplier already folded into the
// amounts so normalization can be re-run without compounding it.
type NormalizedFare struct {
	CarrierCode string     `bson:"carrierCode" json:"carrierCode"`
	Cabin       string     `bson:"cabin,omitempty" json:"cabin,omitempty"`
	ClassCode   string     `bson:"classCode,omitempty" json:"classCode,omitempty"`
	FareFamily  string     `bson:"fareFamily,omitempty" json:"fareFamily,omitempty"`
	FareAmount  float64    `bson:"fareAmount" json:"fareAmount"`
	BaseFare    float64    `bson:"baseFare" json:"baseFare"`
	TaxAmount   float64    `bson:"taxAmount" json:"taxAmount"`
	Surcharge   float64    `bson:"surcharge" json:"surcharge"`
	Currency    string     `bson:"currency" json:"currency"`
	ScrapedAt   *time.Time `bson:"scrapedAt,omitempty" json:"scrapedAt,omitempty"`
	Source      string     `bson:"source" json:"source"`
	PointOfSale string     `bson:"pointOfSale,omitempty" json:"pointOfSale,omitempty"`
	AppliedRate float64    `bson:"appliedRate,omitempty" json:"appliedRate,omitempty"`
}
