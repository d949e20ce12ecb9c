// Package matching ties invoice text to approved PO requests.
package matching

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reSpaces = regexp.MustCompile(`\s+`)
	rePunct  = regexp.MustCompile(`[^\w\s]`)
)

// Normalize upper-cases s, collapses whitespace and strips punctuation.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToUpper(s)
	s = reSpaces.ReplaceAllString(s, " ")
	s = rePunct.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Levenshtein returns the edit distance between a and b in runes.
func Levenshtein(a, b string) int {
	s1, s2 := []rune(a), []rune(b)
	if len(s1) < len(s2) {
		s1, s2 = s2, s1
	}
	if len(s2) == 0 {
		return len(s1)
	}
	prev := make([]int, len(s2)+1)
	cur := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i, c1 := range s1 {
		cur[0] = i + 1
		for j, c2 := range s2 {
			cost := 1
			if c1 == c2 {
				cost = 0
			}
			cur[j+1] = min(prev[j+1]+1, cur[j]+1, prev[j]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(s2)]
}

// FuzzyScore rates the similarity of a and b from 0 to 1. Strings equal after
// normalisation score 1, strings differing only in spacing score 0.98.
func FuzzyScore(a, b string) float64 {
	t1, t2 := Normalize(a), Normalize(b)
	if t1 == "" || t2 == "" {
		return 0
	}
	if t1 == t2 {
		return 1
	}
	n1 := strings.ReplaceAll(t1, " ", "")
	n2 := strings.ReplaceAll(t2, " ", "")
	if n1 == n2 {
		return 0.98
	}
	longer := max(utf8.RuneCountInString(n1), utf8.RuneCountInString(n2))
	if longer == 0 {
		return 0
	}
	return max(0, 1-float64(Levenshtein(n1, n2))/float64(longer))
}

// JobHit is where a job name was found in invoice text.
type JobHit struct {
	Pos     int // byte offset into the upper-cased text, approximate for fuzzy hits
	Matched string
	Score   float64
}

// FindJobName searches text for job, tolerating spacing differences and
// misspellings. ok is false when no window scores at least threshold.
func FindJobName(text, job string, threshold float64) (JobHit, bool) {
	if text == "" || job == "" {
		return JobHit{Pos: -1}, false
	}
	textUpper := strings.ToUpper(text)
	jobUpper := strings.TrimSpace(strings.ToUpper(job))
	jobNoSpaces := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(jobUpper)

	jobNorm := Normalize(job)
	if strings.Contains(Normalize(text), jobNorm) {
		pos := strings.Index(textUpper, jobUpper)
		if pos == -1 {
			pos = strings.Index(strings.ReplaceAll(textUpper, " ", ""), jobNoSpaces)
		}
		return JobHit{Pos: max(pos, 0), Matched: jobNorm, Score: 1}, true
	}

	textNoSpaces := strings.ReplaceAll(textUpper, " ", "")
	if pos := strings.Index(textNoSpaces, jobNoSpaces); pos >= 0 {
		return JobHit{Pos: pos, Matched: jobNoSpaces, Score: 0.98}, true
	}

	jobLen := utf8.RuneCountInString(jobNoSpaces)
	tolerance := max(3, float64(jobLen)*0.3)
	words := strings.Fields(textUpper)
	best := JobHit{Pos: -1}
	for size := 1; size <= min(4, len(words)); size++ {
		for i := 0; i+size <= len(words); i++ {
			window := strings.Join(words[i:i+size], "")
			diff := utf8.RuneCountInString(window) - jobLen
			if diff < 0 {
				diff = -diff
			}
			if float64(diff) > tolerance {
				continue
			}
			score := FuzzyScore(window, jobNoSpaces)
			if score > best.Score && score >= threshold {
				best = JobHit{
					Pos:     strings.Index(textUpper, words[i]),
					Matched: strings.Join(words[i:i+size], " "),
					Score:   score,
				}
			}
		}
	}
	if best.Score >= threshold && best.Matched != "" {
		return best, true
	}
	return JobHit{Pos: -1, Score: best.Score}, false
}
