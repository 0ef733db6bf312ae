package booking

import (
	"errors"
	"fmt"
)

const (
	BedroomSurcharge  = 15
	BathroomSurcharge = 10
)

// ErrUnknownService is returned when no base price exists for a service type.
var ErrUnknownService = errors.New("booking: unknown service type")

// PriceList maps a service type to its base price in whole currency units.
type PriceList map[string]int64

// DefaultPrices is used when no price list is configured.
func DefaultPrices() PriceList {
	return PriceList{
		"regular":        80,
		"deep":           150,
		"end_of_tenancy": 200,
		"office":         120,
		"carpet":         90,
	}
}

// Estimate returns base + 15 per bedroom + 10 per bathroom. Negative room
// counts are treated as zero.
func Estimate(prices PriceList, serviceType string, bedrooms, bathrooms int) (int64, error) {
	base, ok := prices[serviceType]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownService, serviceType)
	}
	if bedrooms < 0 {
		bedrooms = 0
	}
	if bathrooms < 0 {
		bathrooms = 0
	}
	return base + BedroomSurcharge*int64(bedrooms) + BathroomSurcharge*int64(bathrooms), nil
}
