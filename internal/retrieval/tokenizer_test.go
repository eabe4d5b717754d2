package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerms_CJKUnigramsAndBigrams(t *testing.T) {
	terms := Terms("分数教学")

	assert.Equal(t, []string{"分", "数", "分数", "教", "数教", "学", "教学"}, terms)
}

func TestTerms_BigramCountProperty(t *testing.T) {
	// N 个连续汉字 => N 个单字 + N-1 个相邻双字
	text := "小学数学分数加法教案"
	n := len([]rune(text))

	terms := Terms(text)

	assert.Len(t, terms, 2*n-1)
}

func TestTerms_AdjacencyBrokenByNonCJK(t *testing.T) {
	for _, text := range []string{"分a数", "分，数", "分 数", "分3数"} {
		terms := Terms(text)
		for _, term := range terms {
			assert.Less(t, len([]rune(term)), 2, "text %q should produce no CJK bigram, got %q", text, term)
		}
	}
}

func TestTerms_LatinWords(t *testing.T) {
	terms := Terms("The PDF and the pdf")

	assert.Equal(t, []string{"the", "pdf", "and", "the", "pdf"}, terms)
}

func TestTerms_SingleLettersDropped(t *testing.T) {
	assert.Empty(t, Terms("a b c I"))
}

func TestTerms_DigitRuns(t *testing.T) {
	terms := Terms("2024年9月")

	assert.Equal(t, []string{"2024", "年", "9", "月"}, terms)
}

func TestTerms_MixedText(t *testing.T) {
	terms := Terms("第3课: PPT制作")

	assert.Equal(t, []string{"第", "3", "课", "ppt", "制", "作", "制作"}, terms)
}

func TestTerms_Empty(t *testing.T) {
	assert.Empty(t, Terms(""))
	assert.Empty(t, Terms("！？。，、"))
	assert.Empty(t, Terms(strings.Repeat(" \n\t", 10)))
}

func TestQueryTerms_Dedupes(t *testing.T) {
	set := QueryTerms("分数 分数")

	assert.Len(t, set, 3)
	for _, term := range []string{"分", "数", "分数"} {
		_, ok := set[term]
		assert.True(t, ok, "missing term %q", term)
	}
}
