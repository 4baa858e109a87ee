// Copyright 2026 Tessara Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultTargetTokens is the target segment size.
	DefaultTargetTokens = 500

	// DefaultOverlapTokens is the overlap between consecutive segments.
	DefaultOverlapTokens = 100

	// charsPerToken is the character-count approximation of one token.
	charsPerToken = 4
)

// Piece is one segment of split text. Ordinals are contiguous from 0.
type Piece struct {
	Content string
	Ordinal int
}

type config struct {
	targetTokens  int
	overlapTokens int
}

// Option configures a Split call.
type Option func(*config) error

// WithTargetTokens sets the target segment size in approximate tokens.
func WithTargetTokens(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return ErrInvalidTargetTokens
		}
		c.targetTokens = n
		return nil
	}
}

// WithOverlapTokens sets the overlap between consecutive segments in
// approximate tokens.
func WithOverlapTokens(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return ErrInvalidOverlapTokens
		}
		c.overlapTokens = n
		return nil
	}
}

// Split segments text into overlapping pieces of roughly targetTokens
// each. Whitespace runs are collapsed first; empty or whitespace-only
// input yields zero pieces. The result is deterministic for a given
// input and options.
func Split(text string, opts ...Option) ([]Piece, error) {
	cfg := &config{
		targetTokens:  DefaultTargetTokens,
		overlapTokens: DefaultOverlapTokens,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.overlapTokens >= cfg.targetTokens {
		return nil, ErrOverlapTooLarge
	}

	normalized := normalize(text)
	if normalized == "" {
		return nil, nil
	}

	window := cfg.targetTokens * charsPerToken
	overlap := cfg.overlapTokens * charsPerToken

	if len(normalized) <= window {
		return []Piece{{Content: normalized, Ordinal: 0}}, nil
	}

	var pieces []Piece
	ordinal := 0
	start := 0
	for start < len(normalized) {
		end := start + window
		if end >= len(normalized) {
			content := strings.TrimSpace(normalized[start:])
			if content != "" {
				pieces = append(pieces, Piece{Content: content, Ordinal: ordinal})
			}
			break
		}

		cut := findCut(normalized, start, end)
		content := strings.TrimSpace(normalized[start:cut])
		if content != "" {
			pieces = append(pieces, Piece{Content: content, Ordinal: ordinal})
			ordinal++
		}

		// Step back by the overlap; snap to the cut if that would not
		// make progress, so the loop always terminates.
		next := cut - overlap
		if next <= start {
			next = cut
		}
		for next < len(normalized) && normalized[next] == ' ' {
			next++
		}
		start = next
	}

	return pieces, nil
}

// normalize collapses whitespace runs to single spaces and trims.
func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// findCut picks the break position inside (start, end]. Within the last
// 20% of the window it prefers the position after a sentence-ending
// punctuation mark that is followed by a space and a capital letter;
// failing that it takes the last space in the window; failing that it
// hard-cuts at the window edge.
func findCut(s string, start, end int) int {
	zone := end - (end-start)/5
	for i := end - 1; i >= zone && i > start; i-- {
		if !isSentenceEnd(s[i]) {
			continue
		}
		if i+2 >= len(s) || s[i+1] != ' ' {
			continue
		}
		r, _ := utf8.DecodeRuneInString(s[i+2:])
		if unicode.IsUpper(r) {
			return i + 1
		}
	}

	if sp := strings.LastIndexByte(s[start:end], ' '); sp > 0 {
		return start + sp
	}
	return end
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}
