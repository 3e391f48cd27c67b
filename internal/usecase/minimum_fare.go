package usecase

import (
	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/pkg/utils"
)

// groups fares that carry no cabin
const noCabinPlaceholder = "\x00no-cabin"

// SelectMinimumFares returns, per cabin, the cheapest fare scraped on the most recent
// scrape date present in fares. Ties keep the earliest entry in input order. Output
// order follows the first appearance of each cabin.
func SelectMinimumFares(fares []entity.NormalizedFare) []entity.MinimumFare {
	var latest *entity.NormalizedFare
	for i := range fares {
		if fares[i].ScrapedAt == nil {
			continue
		}
		if latest == nil || fares[i].ScrapedAt.After(*latest.ScrapedAt) {
			latest = &fares[i]
		}
	}
	if latest == nil {
		return nil
	}
	latestDay := utils.TruncateDay(*latest.ScrapedAt)

	var order []string
	best := make(map[string]entity.NormalizedFare)
	for _, f := range fares {
		if f.ScrapedAt == nil || !utils.SameDay(*f.ScrapedAt, latestDay) {
			continue
		}
		cabin := f.Cabin
		if cabin == "" {
			cabin = noCabinPlaceholder
		}
		current, seen := best[cabin]
		if !seen {
			order = append(order, cabin)
			best[cabin] = f
			continue
		}
		if f.FareAmount < current.FareAmount {
			best[cabin] = f
		}
	}

	result := make([]entity.MinimumFare, 0, len(order))
	for _, cabin := range order {
		f := best[cabin]
		if cabin == noCabinPlaceholder {
			cabin = ""
		}
		result = append(result, entity.MinimumFare{
			Cabin:       cabin,
			FareAmount:  f.FareAmount,
			Currency:    f.Currency,
			ScrapedAt:   *f.ScrapedAt,
			Source:      f.Source,
			ClassCode:   f.ClassCode,
			PointOfSale: f.PointOfSale,
			FareFamily:  f.FareFamily,
		})
	}
	return result
}
