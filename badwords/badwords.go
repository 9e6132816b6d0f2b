package badwords

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joy095/staybook/logger"
)

// Filter is a case-insensitive word list used to moderate user-written text
// such as listing titles and reviews. The zero value matches nothing.
type Filter struct {
	mu    sync.RWMutex
	words map[string]struct{}
}

func New(words ...string) *Filter {
	f := &Filter{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		f.Add(w)
	}
	return f
}

// Load reads one word per line from filename. Blank lines are skipped.
func Load(filename string) (*Filter, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read bad words file: %w", err)
	}

	f := New(strings.Split(string(data), "\n")...)
	logger.InfoLogger.Infof("Loaded %d bad words from %s", f.Len(), filename)
	return f, nil
}

func (f *Filter) Add(word string) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.words == nil {
		f.words = make(map[string]struct{})
	}
	f.words[word] = struct{}{}
}

func (f *Filter) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.words)
}

// Contains reports whether any word of text is on the list. Words are split
// on anything that is not a letter or digit.
func (f *Filter) Contains(text string) bool {
	if f == nil {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.words) == 0 {
		return false
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	for _, word := range words {
		if _, found := f.words[word]; found {
			logger.InfoLogger.Infof("Bad word detected: %s", word)
			return true
		}
	}
	return false
}
