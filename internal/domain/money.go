package domain

import "fmt"

// Kopecks is a monetary amount in minor units (1/100 RUB). All balances,
// prices and debits are integer kopecks so arithmetic never drifts.
type Kopecks int64

// Rub converts a whole-ruble price into Kopecks.
func Rub(rubles int64) Kopecks {
	return Kopecks(rubles * 100)
}

// Rubles returns the whole-ruble part of the amount.
func (k Kopecks) Rubles() int64 {
	return int64(k) / 100
}

// String renders the amount the way the bot shows it to users.
func (k Kopecks) String() string {
	if k%100 == 0 {
		return fmt.Sprintf("%d ₽", k.Rubles())
	}
	return fmt.Sprintf("%d.%02d ₽", k.Rubles(), int64(k)%100)
}
