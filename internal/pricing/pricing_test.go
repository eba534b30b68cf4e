package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
)

func TestCost(t *testing.T) {
	testCases := []struct {
		name     string
		pubType  domain.PublicationType
		quantity int
		expected domain.Kopecks
	}{
		{name: "advertisement single", pubType: domain.TypeAdvertisement, quantity: 1, expected: domain.Rub(160)},
		{name: "advertisement pair from table", pubType: domain.TypeAdvertisement, quantity: 2, expected: domain.Rub(256)},
		{name: "advertisement five from table", pubType: domain.TypeAdvertisement, quantity: 5, expected: domain.Rub(640)},
		{name: "advertisement thirty from table", pubType: domain.TypeAdvertisement, quantity: 30, expected: domain.Rub(3840)},
		{name: "advertisement four uses fallback", pubType: domain.TypeAdvertisement, quantity: 4, expected: domain.Rub(512)},
		{name: "advertisement six uses fallback", pubType: domain.TypeAdvertisement, quantity: 6, expected: domain.Rub(768)},
		{name: "job single", pubType: domain.TypeJobOffer, quantity: 1, expected: domain.Rub(100)},
		{name: "job search priced as job", pubType: domain.TypeJobSearch, quantity: 1, expected: domain.Rub(100)},
		{name: "job ten from table", pubType: domain.TypeJobOffer, quantity: 10, expected: domain.Rub(800)},
		{name: "job four uses fallback", pubType: domain.TypeJobOffer, quantity: 4, expected: domain.Rub(320)},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Cost(tc.pubType, tc.quantity))
		})
	}
}

func TestDelayedCost(t *testing.T) {
	testCases := []struct {
		name     string
		pubType  domain.PublicationType
		slots    int
		expected domain.Kopecks
	}{
		{name: "advertisement one slot", pubType: domain.TypeAdvertisement, slots: 1, expected: domain.Rub(160)},
		{name: "advertisement two slots", pubType: domain.TypeAdvertisement, slots: 2, expected: domain.Rub(256)},
		{name: "advertisement three slots", pubType: domain.TypeAdvertisement, slots: 3, expected: domain.Rub(384)},
		{name: "job one slot cheaper than advertisement", pubType: domain.TypeJobOffer, slots: 1, expected: domain.Rub(100)},
		{name: "job three slots", pubType: domain.TypeJobSearch, slots: 3, expected: domain.Rub(240)},
		{name: "zero slots costs nothing", pubType: domain.TypeAdvertisement, slots: 0, expected: 0},
		{name: "more than three clamps", pubType: domain.TypeAdvertisement, slots: 5, expected: domain.Rub(384)},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DelayedCost(tc.pubType, tc.slots))
		})
	}
}

func TestAvailableSlots(t *testing.T) {
	testCases := []struct {
		name     string
		pubType  domain.PublicationType
		balance  domain.Kopecks
		expected int
	}{
		{name: "empty balance unlocks nothing", pubType: domain.TypeAdvertisement, balance: 0, expected: 0},
		{name: "advertisement first tier", pubType: domain.TypeAdvertisement, balance: domain.Rub(160), expected: 1},
		{name: "advertisement second tier", pubType: domain.TypeAdvertisement, balance: domain.Rub(256), expected: 2},
		{name: "advertisement just below second tier", pubType: domain.TypeAdvertisement, balance: domain.Rub(255), expected: 1},
		{name: "advertisement third tier", pubType: domain.TypeAdvertisement, balance: domain.Rub(500), expected: 3},
		{name: "job tiers one and two share threshold", pubType: domain.TypeJobOffer, balance: domain.Rub(160), expected: 2},
		{name: "job third tier", pubType: domain.TypeJobSearch, balance: domain.Rub(240), expected: 3},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, AvailableSlots(tc.pubType, tc.balance))
		})
	}
}

func TestFallbackDivergesFromTable(t *testing.T) {
	// The fallback formula is flat 20% off the base price; for quantities
	// present in the table the tabulated value always wins.
	base := UnitPrice(domain.TypeAdvertisement)
	assert.Equal(t, base*4*8/10, Cost(domain.TypeAdvertisement, 4))
	assert.NotEqual(t, base*2, Cost(domain.TypeAdvertisement, 2))
}
