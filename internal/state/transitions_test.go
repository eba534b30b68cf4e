package state

import "testing"

func TestIsTransitionAllowed(t *testing.T) {
	testCases := []struct {
		name     string
		from     State
		to       State
		expected bool
	}{
		{name: "idle to choosing firm type", from: StateIdle, to: StateChoosingFirmType, expected: true},
		{name: "firm type to firm name", from: StateChoosingFirmType, to: StateEnteringFirmName, expected: true},
		{name: "firm name to ad text", from: StateEnteringFirmName, to: StateEnteringAdText, expected: true},
		{name: "firm name to job title", from: StateEnteringFirmName, to: StateEnteringJobTitle, expected: true},
		{name: "ad text to contacts", from: StateEnteringAdText, to: StateEnteringContacts, expected: true},
		{name: "ad text cannot skip to review", from: StateEnteringAdText, to: StateReviewingPost, expected: false},
		{name: "job pipeline order", from: StateEnteringWorkerCount, to: StateEnteringWorkPeriod, expected: true},
		{name: "job pipeline back step", from: StateEnteringWorkPeriod, to: StateEnteringWorkerCount, expected: true},
		{name: "job pipeline skips ahead invalid", from: StateEnteringJobTitle, to: StateEnteringSalary, expected: false},
		{name: "contacts to review", from: StateEnteringContacts, to: StateReviewingPost, expected: true},
		{name: "review to autopost frequency", from: StateReviewingPost, to: StateChoosingAutopostFrequency, expected: true},
		{name: "review to delayed slot", from: StateReviewingPost, to: StateChoosingDelayedSlot, expected: true},
		{name: "frequency daily skips weekday", from: StateChoosingAutopostFrequency, to: StateEnteringTime, expected: true},
		{name: "frequency weekly picks weekday", from: StateChoosingAutopostFrequency, to: StateChoosingWeekday, expected: true},
		{name: "time to repetitions", from: StateEnteringTime, to: StateEnteringRepetitions, expected: true},
		{name: "slot to datetime", from: StateChoosingDelayedSlot, to: StateEnteringDelayedDateTime, expected: true},
		{name: "datetime to confirmation", from: StateEnteringDelayedDateTime, to: StateConfirmingDelayedPublication, expected: true},
		{name: "confirmation back to slots", from: StateConfirmingDelayedPublication, to: StateChoosingDelayedSlot, expected: true},
		{name: "idle straight to review invalid", from: StateIdle, to: StateReviewingPost, expected: false},
		{name: "unknown state forward invalid", from: State("unknown"), to: StateEnteringAdText, expected: false},
		{name: "same state re-entry", from: StateEnteringSalary, to: StateEnteringSalary, expected: true},
		{name: "any state back to start", from: StateEnteringRepetitions, to: StateChoosingFirmType, expected: true},
		{name: "shop reachable mid-autopost", from: StateEnteringRepetitions, to: StateEnteringPaymentAmount, expected: true},
		{name: "shop reachable from review", from: StateReviewingPost, to: StateEnteringPaymentAmount, expected: true},
		{name: "shop reachable from delayed confirmation", from: StateConfirmingDelayedPublication, to: StateEnteringPaymentAmount, expected: true},
		{name: "any state to idle emergency", from: State("whatever"), to: StateIdle, expected: true},
		{name: "any state to error emergency", from: StateConfirmingDelayedPublication, to: StateError, expected: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := IsTransitionAllowed(tc.from, tc.to); actual != tc.expected {
				t.Errorf("IsTransitionAllowed(%s -> %s) = %t, expected %t", tc.from, tc.to, actual, tc.expected)
			}
		})
	}
}
