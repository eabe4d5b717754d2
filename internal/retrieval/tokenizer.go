package retrieval

// isCJK reports whether r falls in the CJK unified ideograph block.
func isCJK(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

// Terms tokenizes free text into the flat term list used for matching.
// Latin letters form lowercased word terms of two or more letters, digit
// runs are kept whole, and every CJK character yields a unigram plus a
// bigram with its adjacent CJK neighbor. Bigrams stand in for word
// segmentation; unigrams catch single-character matches the bigrams miss.
// Duplicates are preserved, term frequency feeds the scoring denominator.
func Terms(text string) []string {
	var terms []string
	var latin []rune
	var digits []rune
	var prevCJK rune

	flushLatin := func() {
		if len(latin) >= 2 {
			terms = append(terms, string(latin))
		}
		latin = latin[:0]
	}
	flushDigits := func() {
		if len(digits) > 0 {
			terms = append(terms, string(digits))
		}
		digits = digits[:0]
	}

	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			flushDigits()
			prevCJK = 0
			if r >= 'A' && r <= 'Z' {
				r += 'a' - 'A'
			}
			latin = append(latin, r)
		case r >= '0' && r <= '9':
			flushLatin()
			prevCJK = 0
			digits = append(digits, r)
		case isCJK(r):
			flushLatin()
			flushDigits()
			terms = append(terms, string(r))
			if prevCJK != 0 {
				terms = append(terms, string([]rune{prevCJK, r}))
			}
			prevCJK = r
		default:
			flushLatin()
			flushDigits()
			prevCJK = 0
		}
	}
	flushLatin()
	flushDigits()

	return terms
}

// QueryTerms tokenizes a query into a term set. Only presence matters on
// the query side.
func QueryTerms(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range Terms(text) {
		set[t] = struct{}{}
	}
	return set
}
