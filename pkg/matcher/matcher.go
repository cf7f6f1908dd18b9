// Package matcher scores and ranks page-element candidates against keyword
// intents. It is the retrieval layer the rule-based planner is built on:
// pure functions, deterministic for identical inputs, no side effects.
package matcher

import (
	"strings"

	"github.com/entrhq/pilot/pkg/types"
)

// BestMatch finds the candidate that best matches the given keywords.
//
// Candidates whose tag (case-insensitive) is not in includeTags are never
// selected regardless of score. Each surviving candidate is scored against a
// searchable text built from its visible text, aria-label, placeholder, name
// attribute, and href, lower-cased and joined by single spaces:
//
//   - +2 for each keyword found as a substring of the searchable text
//   - +1 each if aria-label, placeholder, or visible text is non-empty
//     (well-labeled elements win ties against anonymous ones)
//
// Scanning uses strict greater-than comparison in candidate order, so the
// first candidate with the maximum score wins. The initial best score is -1,
// below any achievable score, so a zero-scoring candidate is still returned
// when nothing scores higher.
//
// Returns nil when no candidate passes the tag filter, or when keywords is
// empty after trimming.
func BestMatch(candidates []types.Candidate, includeTags map[string]bool, keywords []string) *types.Candidate {
	normalized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(strings.ToLower(k))
		if k != "" {
			normalized = append(normalized, k)
		}
	}
	if len(normalized) == 0 {
		return nil
	}

	var best *types.Candidate
	bestScore := -1

	for i := range candidates {
		c := &candidates[i]
		if !includeTags[strings.ToLower(c.Tag)] {
			continue
		}

		haystack := strings.ToLower(strings.Join([]string{
			c.Text,
			c.AriaLabel,
			c.Placeholder,
			c.Name,
			c.Href,
		}, " "))

		score := 0
		for _, keyword := range normalized {
			if strings.Contains(haystack, keyword) {
				score += 2
			}
		}
		if c.AriaLabel != "" {
			score++
		}
		if c.Placeholder != "" {
			score++
		}
		if c.Text != "" {
			score++
		}

		if score > bestScore {
			bestScore = score
			best = c
		}
	}

	return best
}

// FindSearchInput locates a text-input-like element with search-related
// attributes.
func FindSearchInput(candidates []types.Candidate) *types.Candidate {
	return BestMatch(
		candidates,
		map[string]bool{"input": true, "textarea": true},
		[]string{"search", "q", "query", "find", "looking for"},
	)
}

// FindSubmitButton locates a control that submits a search or form.
func FindSubmitButton(candidates []types.Candidate) *types.Candidate {
	return BestMatch(
		candidates,
		map[string]bool{"button": true, "a": true, "input": true},
		[]string{"search", "submit", "go", "find"},
	)
}

// FindClickable locates a clickable element matching the given free text.
func FindClickable(candidates []types.Candidate, target string) *types.Candidate {
	return BestMatch(
		candidates,
		map[string]bool{"button": true, "a": true, "input": true},
		[]string{target},
	)
}
