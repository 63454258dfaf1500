package voice

import (
	"strings"
	"unicode"

	"github.com/echohq/echo/internal/events"
)

var ordinalWords = map[string]int{
	"one": 0, "first": 0, "1": 0,
	"two": 1, "second": 1, "2": 1,
	"three": 2, "third": 2, "3": 2,
	"four": 3, "fourth": 3, "4": 3,
	"five": 4, "fifth": 4, "5": 4,
	"six": 5, "sixth": 5, "6": 5,
	"seven": 6, "seventh": 6, "7": 6,
	"eight": 7, "eighth": 7, "8": 7,
	"nine": 8, "ninth": 8, "9": 8,
	"ten": 9, "tenth": 9, "10": 9,
}

var affirmativeWords = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "sure": true, "allow": true, "go ahead": true,
}

var negativeWords = map[string]bool{
	"no": true, "nah": true, "nope": true, "deny": true, "reject": true,
}

// fuzzyThreshold is the confidence floor below which a fuzzy ratio is
// treated as no-match rather than a borderline dispatch.
const fuzzyThreshold = 0.6

// MatchResult is the outcome of ResponseMatcher.Match.
type MatchResult struct {
	Text       string
	Confidence float64
	Method     events.MatchMethod
}

// Match runs the pure-function priority chain: ordinal -> yes/no -> direct
// substring -> fuzzy -> verbatim.
func Match(transcript string, options []string, blockReason events.BlockReason) MatchResult {
	norm := strings.ToLower(strings.TrimSpace(transcript))

	if idx, ok := matchOrdinal(norm, len(options)); ok {
		return MatchResult{Text: options[idx], Confidence: 0.95, Method: events.MatchOrdinal}
	}

	if len(options) == 2 && blockReason == events.BlockPermissionPrompt {
		if res, ok := matchYesNo(norm, options); ok {
			return res
		}
	}

	if res, ok := matchDirect(norm, options); ok {
		return res
	}

	if res, ok := matchFuzzy(norm, options); ok {
		return res
	}

	if len(options) == 0 {
		return MatchResult{Text: transcript, Confidence: 1.0, Method: events.MatchVerbatim}
	}
	// No option cleared the bar: fall through to verbatim with a
	// below-threshold confidence, an effective no-dispatch sentinel.
	return MatchResult{Text: transcript, Confidence: 0.0, Method: events.MatchVerbatim}
}

func matchOrdinal(norm string, numOptions int) (int, bool) {
	words := strings.Fields(norm)
	for _, w := range words {
		if idx, ok := ordinalWords[w]; ok && idx < numOptions {
			return idx, true
		}
	}
	// "option ten" style phrases: check the last token too, already covered
	// by the word scan above since Fields splits on whitespace.
	return 0, false
}

func matchYesNo(norm string, options []string) (MatchResult, bool) {
	for word := range affirmativeWords {
		if containsWord(norm, word) {
			return MatchResult{Text: options[0], Confidence: 0.9, Method: events.MatchYesNo}, true
		}
	}
	for word := range negativeWords {
		if containsWord(norm, word) {
			return MatchResult{Text: options[1], Confidence: 0.9, Method: events.MatchYesNo}, true
		}
	}
	return MatchResult{}, false
}

func containsWord(haystack, phrase string) bool {
	words := strings.FieldsFunc(haystack, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Contains(" "+strings.Join(words, " ")+" ", " "+phrase+" ")
}

func matchDirect(norm string, options []string) (MatchResult, bool) {
	best := ""
	for _, opt := range options {
		if strings.Contains(norm, strings.ToLower(opt)) {
			if len(opt) > len(best) {
				best = opt
			}
		}
	}
	if best == "" {
		return MatchResult{}, false
	}
	return MatchResult{Text: best, Confidence: 0.85, Method: events.MatchDirect}, true
}

func matchFuzzy(norm string, options []string) (MatchResult, bool) {
	bestRatio := 0.0
	bestOpt := ""
	for _, opt := range options {
		ratio := similarityRatio(norm, strings.ToLower(opt))
		if ratio > bestRatio {
			bestRatio = ratio
			bestOpt = opt
		}
	}
	if bestOpt == "" || bestRatio < fuzzyThreshold {
		return MatchResult{}, false
	}
	return MatchResult{Text: bestOpt, Confidence: bestRatio, Method: events.MatchFuzzy}, true
}

// similarityRatio is a Ratcliff/Obershelp-equivalent similarity measure,
// hand-rolled stdlib-only: it scores 2*matching/(len(a)+len(b)) over the
// longest common substring recursively, matching Python's
// difflib.SequenceMatcher.ratio() definition.
func similarityRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	matches := matchingCharacters(a, b)
	total := len(a) + len(b)
	if total == 0 {
		return 0
	}
	return 2 * float64(matches) / float64(total)
}

func matchingCharacters(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	i, j, length := longestCommonSubstring(a, b)
	if length == 0 {
		return 0
	}
	return length + matchingCharacters(a[:i], b[:j]) + matchingCharacters(a[i+length:], b[j+length:])
}

func longestCommonSubstring(a, b string) (int, int, int) {
	bestI, bestJ, bestLen := 0, 0, 0
	for i := 0; i < len(a); i++ {
		for j := 0; j < len(b); j++ {
			k := 0
			for i+k < len(a) && j+k < len(b) && a[i+k] == b[j+k] {
				k++
			}
			if k > bestLen {
				bestI, bestJ, bestLen = i, j, k
			}
		}
	}
	return bestI, bestJ, bestLen
}
