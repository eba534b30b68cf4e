package filter

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySource struct {
	words []string
}

func (s *memorySource) ListWords(ctx context.Context) ([]string, error) {
	out := make([]string, len(s.words))
	copy(out, s.words)
	return out, nil
}

func (s *memorySource) AddWords(ctx context.Context, words []string) error {
	s.words = append(s.words, words...)
	return nil
}

func (s *memorySource) Clear(ctx context.Context) error {
	s.words = nil
	return nil
}

func newTestFilter(t *testing.T, words ...string) *Filter {
	t.Helper()

	f := New(&memorySource{words: words}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, f.Reload(context.Background()))
	return f
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		token    string
		expected string
	}{
		{name: "lowercases", token: "КАЗИНО", expected: "казино"},
		{name: "trims whitespace", token: "  ставки  ", expected: "ставки"},
		{name: "strips edge punctuation", token: "«займы!»", expected: "займы"},
		{name: "keeps inner punctuation", token: "18+видео", expected: "18+видео"},
		{name: "single character rejected", token: "а", expected: ""},
		{name: "punctuation only rejected", token: "!!!", expected: ""},
		{name: "empty rejected", token: "   ", expected: ""},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Normalize(tc.token))
		})
	}
}

func TestFilter_Check(t *testing.T) {
	testCases := []struct {
		name    string
		words   []string
		text    string
		matched []string
	}{
		{
			name:    "clean text",
			words:   []string{"казино", "ставки"},
			text:    "Требуется сварщик на постоянную работу",
			matched: nil,
		},
		{
			name:    "substring match",
			words:   []string{"казино"},
			text:    "лучшее онлайн-казино города",
			matched: []string{"казино"},
		},
		{
			name:    "substring inside longer word",
			words:   []string{"став"},
			text:    "поставки оборудования",
			matched: []string{"став"},
		},
		{
			name:    "case insensitive",
			words:   []string{"казино"},
			text:    "КАЗИНО открылось",
			matched: []string{"казино"},
		},
		{
			name:    "stem match with changed ending",
			words:   []string{"ставки"},
			text:    "принимаю ставку на спорт",
			matched: []string{"ставки"},
		},
		{
			name:    "short word matches as substring",
			words:   []string{"бар"},
			text:    "барабанщик в коллектив",
			matched: []string{"бар"},
		},
		{
			name:    "several words reported in list order",
			words:   []string{"казино", "займы", "ставки"},
			text:    "казино и ставки, быстрые займы",
			matched: []string{"казино", "займы", "ставки"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := newTestFilter(t, tc.words...)
			assert.Equal(t, tc.matched, f.Check(tc.text))
		})
	}
}

func TestFilter_CheckEmptyList(t *testing.T) {
	f := newTestFilter(t)
	assert.Nil(t, f.Check("любой текст"))
}

func TestFilter_AddWords(t *testing.T) {
	ctx := context.Background()
	f := newTestFilter(t)

	added, skipped, err := f.AddWords(ctx, []string{"Казино", "  ставки ", "а", "казино"})
	require.NoError(t, err)

	assert.Equal(t, []string{"казино", "ставки"}, added)
	assert.Equal(t, []string{"а"}, skipped)

	// snapshot refreshed without an explicit Reload
	assert.Equal(t, []string{"казино"}, f.Check("онлайн казино"))
}

func TestFilter_AddWordsAllSkipped(t *testing.T) {
	ctx := context.Background()
	f := newTestFilter(t)

	added, skipped, err := f.AddWords(ctx, []string{"!", "б"})
	require.NoError(t, err)
	assert.Nil(t, added)
	assert.Len(t, skipped, 2)
	assert.Empty(t, f.Words())
}

func TestFilter_Clear(t *testing.T) {
	ctx := context.Background()
	f := newTestFilter(t, "казино")

	require.NoError(t, f.Clear(ctx))
	assert.Empty(t, f.Words())
	assert.Nil(t, f.Check("казино"))
}

func TestFilter_SnapshotIsolation(t *testing.T) {
	f := newTestFilter(t, "казино")

	words := f.Words()
	words[0] = "другое"

	assert.Equal(t, []string{"казино"}, f.Words())
}
