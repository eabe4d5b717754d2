package retrieval

import "math"

// Score rates one chunk of text against a tokenized query: the number of
// chunk terms found in the query set, occurrences included, divided by
// the square root of the chunk's total term count. The square root damps
// the length penalty so a long chunk with one dense relevant passage
// still outranks an unrelated short one. A chunk with no terms scores 0.
func Score(content string, query map[string]struct{}) float64 {
	terms := Terms(content)
	if len(terms) == 0 {
		return 0
	}
	matches := 0
	for _, t := range terms {
		if _, ok := query[t]; ok {
			matches++
		}
	}
	if matches == 0 {
		return 0
	}
	return float64(matches) / math.Sqrt(float64(len(terms)))
}
