// Package filter screens draft texts against the stop-word list. Matching
// runs on every review, so the word list is kept in an immutable in-memory
// snapshot that mutations replace wholesale.
package filter

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"unicode"
)

// Source is the persistent backing store for the stop-word list.
type Source interface {
	ListWords(ctx context.Context) ([]string, error)
	AddWords(ctx context.Context, words []string) error
	Clear(ctx context.Context) error
}

type snapshot struct {
	words []string
}

// Filter checks texts against the current stop-word snapshot.
type Filter struct {
	source  Source
	log     *slog.Logger
	current atomic.Pointer[snapshot]
}

// New creates a filter over the given source. Call Reload before first use.
func New(source Source, log *slog.Logger) *Filter {
	if log == nil {
		log = slog.Default()
	}

	f := &Filter{
		source: source,
		log:    log,
	}
	f.current.Store(&snapshot{})

	return f
}

// Reload replaces the in-memory snapshot with the persisted word list.
func (f *Filter) Reload(ctx context.Context) error {
	words, err := f.source.ListWords(ctx)
	if err != nil {
		f.log.Error("failed to load stop words", slog.Any("error", err))
		return err
	}

	f.current.Store(&snapshot{words: words})
	f.log.Info("stop words loaded", slog.Int("count", len(words)))

	return nil
}

// Check returns the stop words found in text, in list order. An empty
// result means the text is clean.
func (f *Filter) Check(text string) []string {
	snap := f.current.Load()
	if snap == nil || len(snap.words) == 0 {
		return nil
	}

	lowered := strings.ToLower(text)
	textWords := splitWords(lowered)

	var matched []string
	for _, word := range snap.words {
		if matches(lowered, textWords, word) {
			matched = append(matched, word)
		}
	}

	return matched
}

// AddWords normalizes and persists the given raw tokens, then refreshes the
// snapshot. Tokens that normalize to one character or nothing are skipped
// and reported back.
func (f *Filter) AddWords(ctx context.Context, raw []string) (added []string, skipped []string, err error) {
	seen := make(map[string]struct{}, len(raw))

	for _, token := range raw {
		word := Normalize(token)
		if word == "" {
			skipped = append(skipped, token)
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		added = append(added, word)
	}

	if len(added) == 0 {
		return nil, skipped, nil
	}

	if err := f.source.AddWords(ctx, added); err != nil {
		f.log.Error("failed to add stop words", slog.Any("error", err))
		return nil, skipped, err
	}

	if err := f.Reload(ctx); err != nil {
		return added, skipped, err
	}

	return added, skipped, nil
}

// Clear drops the whole stop-word list.
func (f *Filter) Clear(ctx context.Context) error {
	if err := f.source.Clear(ctx); err != nil {
		f.log.Error("failed to clear stop words", slog.Any("error", err))
		return err
	}

	f.current.Store(&snapshot{})
	return nil
}

// Words returns the current snapshot contents.
func (f *Filter) Words() []string {
	snap := f.current.Load()
	if snap == nil {
		return nil
	}

	out := make([]string, len(snap.words))
	copy(out, snap.words)
	return out
}

// Normalize lowercases the token, trims surrounding whitespace and edge
// punctuation, and rejects results shorter than two characters by returning
// an empty string.
func Normalize(token string) string {
	word := strings.TrimSpace(strings.ToLower(token))
	word = strings.TrimFunc(word, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})

	if len([]rune(word)) <= 1 {
		return ""
	}

	return word
}

// matches applies the three matching rules: raw substring, whole-word
// equality, and stem matching for words longer than three characters where
// the stem is the word without its last two characters and any suffix
// counts as long as it starts at a word boundary.
func matches(lowered string, textWords []string, word string) bool {
	if strings.Contains(lowered, word) {
		return true
	}

	for _, tw := range textWords {
		if tw == word {
			return true
		}
	}

	runes := []rune(word)
	if len(runes) > 3 {
		stem := string(runes[:len(runes)-2])
		for _, tw := range textWords {
			if strings.HasPrefix(tw, stem) {
				return true
			}
		}
	}

	return false
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
