package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTime(t *testing.T) {
	valid := []string{"00:00", "9:30", "09:30", "23:59", " 12:00 "}
	for _, v := range valid {
		assert.NoError(t, ValidateTime(v), v)
	}

	invalid := []string{"24:00", "12:60", "12.30", "12:3", "полдень", ""}
	for _, v := range invalid {
		assert.Error(t, ValidateTime(v), v)
	}
}

func TestValidateRepetitions(t *testing.T) {
	n, err := ValidateRepetitions("15")
	require.NoError(t, err)
	assert.Equal(t, 15, n)

	n, err = ValidateRepetitions(" 1 ")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for _, v := range []string{"0", "31", "-3", "abc", "2.5", ""} {
		_, err := ValidateRepetitions(v)
		assert.Error(t, err, v)
	}
}

func TestValidateDateTime(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, loc)

	parsed, err := ValidateDateTime("30.05.2026 14:30", loc, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 30, 14, 30, 0, 0, loc), parsed)

	// past and present rejected
	_, err = ValidateDateTime("20.05.2026 12:00", loc, now)
	assert.Error(t, err)
	_, err = ValidateDateTime("01.01.2025 10:00", loc, now)
	assert.Error(t, err)

	// nonexistent calendar date
	_, err = ValidateDateTime("31.02.2027 10:00", loc, now)
	assert.Error(t, err)

	for _, v := range []string{"2026-05-30 14:30", "30.05.26 14:30", "завтра", "30.05.2026"} {
		_, err := ValidateDateTime(v, loc, now)
		assert.Error(t, err, v)
	}
}

func TestValidateWorkerCount(t *testing.T) {
	v, err := ValidateWorkerCount(" 3 ")
	require.NoError(t, err)
	assert.Equal(t, "3", v)

	for _, bad := range []string{"0", "-1", "трое", ""} {
		_, err := ValidateWorkerCount(bad)
		assert.Error(t, err, bad)
	}
}

func TestNormalizeClock(t *testing.T) {
	assert.Equal(t, "09:30", normalizeClock("9:30"))
	assert.Equal(t, "23:59", normalizeClock("23:59"))
	assert.Equal(t, "10:00", normalizeClock(" 10:00 "))
}
