// Package pricing holds the package price tables and the delayed-slot
// tariffs. Tables are read-only process-wide state; all amounts are
// integer kopecks.
package pricing

import (
	"github.com/rabota-krsk/rabota-bot/internal/domain"
)

// Package prices keyed by exact quantity. The listed points carry the 20%
// bulk discount already baked in.
var packageTable = map[string]map[int]domain.Kopecks{
	"advertisement": {
		1:  domain.Rub(160),
		2:  domain.Rub(256),
		3:  domain.Rub(384),
		5:  domain.Rub(640),
		7:  domain.Rub(896),
		10: domain.Rub(1280),
		15: domain.Rub(1920),
		30: domain.Rub(3840),
	},
	"job": {
		1:  domain.Rub(100),
		2:  domain.Rub(160),
		3:  domain.Rub(240),
		5:  domain.Rub(400),
		7:  domain.Rub(560),
		10: domain.Rub(800),
		15: domain.Rub(1200),
		30: domain.Rub(2400),
	},
}

// Delayed-slot tariff keyed by the number of filled slots. Deliberately a
// separate table from packageTable; do not unify them.
var delayedTable = map[string]map[int]domain.Kopecks{
	"advertisement": {
		1: domain.Rub(160),
		2: domain.Rub(256),
		3: domain.Rub(384),
	},
	"job": {
		1: domain.Rub(100),
		2: domain.Rub(160),
		3: domain.Rub(240),
	},
}

// Balance thresholds that unlock delayed-publication slots 1..3.
var slotThresholds = map[string]map[int]domain.Kopecks{
	"advertisement": {
		1: domain.Rub(160),
		2: domain.Rub(256),
		3: domain.Rub(384),
	},
	"job": {
		1: domain.Rub(160),
		2: domain.Rub(160),
		3: domain.Rub(240),
	},
}

// MaxRepetitions bounds recurring autopost orders.
const (
	MinRepetitions = 1
	MaxRepetitions = 30
)

func tableKey(t domain.PublicationType) string {
	if t.IsJob() {
		return "job"
	}
	return "advertisement"
}

// UnitPrice returns the single-publication price for the service type.
func UnitPrice(t domain.PublicationType) domain.Kopecks {
	return packageTable[tableKey(t)][1]
}

// Cost returns the package price for the given quantity. Quantities
// missing from the table fall back to base*quantity*0.8 for quantity >= 2
// (flat 20% discount) and the base price for quantity 1. The fallback
// intentionally diverges from the tabulated curve at non-listed points.
func Cost(t domain.PublicationType, quantity int) domain.Kopecks {
	table := packageTable[tableKey(t)]

	if price, ok := table[quantity]; ok {
		return price
	}

	base := table[1]
	if quantity >= 2 {
		return base * domain.Kopecks(quantity) * 8 / 10
	}

	return base
}

// DelayedCost returns the total price for the given number of filled
// delayed-publication slots (1..3).
func DelayedCost(t domain.PublicationType, slots int) domain.Kopecks {
	if slots < 1 {
		return 0
	}
	if slots > 3 {
		slots = 3
	}

	return delayedTable[tableKey(t)][slots]
}

// AvailableSlots reports how many delayed-publication slots the balance
// unlocks for the service type. Admin gating is the caller's concern.
func AvailableSlots(t domain.PublicationType, balance domain.Kopecks) int {
	thresholds := slotThresholds[tableKey(t)]

	switch {
	case balance >= thresholds[3]:
		return 3
	case balance >= thresholds[2]:
		return 2
	case balance >= thresholds[1]:
		return 1
	default:
		return 0
	}
}

// SlotThreshold returns the balance required to unlock the given slot.
func SlotThreshold(t domain.PublicationType, slot int) domain.Kopecks {
	return slotThresholds[tableKey(t)][slot]
}

// Table returns the package price points for the service type in
// ascending quantity order, for rendering shop price lists.
func Table(t domain.PublicationType) map[int]domain.Kopecks {
	src := packageTable[tableKey(t)]
	out := make(map[int]domain.Kopecks, len(src))
	for q, p := range src {
		out[q] = p
	}
	return out
}
