package retrieval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/moyuteach/lessongen/internal/models"
)

const contextIntro = "以下是从教师上传的参考资料中检索到的内容，回答时请优先依据这些资料："

const groupSeparator = "\n\n--------------------------------\n\n"

// FormatContext assembles retrieved chunks into one block of prompt
// text. Chunks are grouped by source file, groups appear in the order
// their file first shows up in the input, and inside a group chunks are
// restored to document order so the model reads them as they were
// written. Returns "" when there is nothing to format.
func FormatContext(chunks []models.RetrievedChunk) string {
	if len(chunks) == 0 {
		return ""
	}

	var order []string
	groups := make(map[string][]models.RetrievedChunk)
	for _, c := range chunks {
		if _, ok := groups[c.FileName]; !ok {
			order = append(order, c.FileName)
		}
		groups[c.FileName] = append(groups[c.FileName], c)
	}

	var b strings.Builder
	b.WriteString(contextIntro)
	b.WriteString("\n\n")
	for gi, name := range order {
		group := groups[name]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Index < group[j].Index
		})

		if gi > 0 {
			b.WriteString(groupSeparator)
		}
		fmt.Fprintf(&b, "【资料：%s】\n\n", name)
		for ci, c := range group {
			if ci > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(c.Content)
		}
	}
	return b.String()
}
