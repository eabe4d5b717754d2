package generation

import (
	"fmt"
	"strings"

	"github.com/moyuteach/lessongen/internal/models"
)

// promptTemplate 一种资源类型的生成配置。
// Temperature 和 MaxTokens 为零时用 LLM 客户端的默认值。
type promptTemplate struct {
	system      string
	temperature float32
	maxTokens   int
}

// templateFor 返回资源类型对应的模板。类型是闭合枚举,
// 未登记的类型返回 false, 调用方必须报错而不是降级。
func templateFor(t models.ResourceType) (promptTemplate, bool) {
	switch t {
	case models.ResourceLessonPlan:
		return promptTemplate{
			system: "你是一名资深的K12教研专家，擅长编写规范、可落地的课堂教案。" +
				"请根据老师给出的主题和要求编写一份完整教案，依次包含：教学目标、" +
				"教学重难点、教学准备、教学过程（含时间分配与师生活动）、板书设计、课后作业。" +
				"如果提供了参考资料，教学内容要与资料保持一致。使用 Markdown 格式输出。",
			temperature: 0.7,
			maxTokens:   3000,
		}, true

	case models.ResourceExercise:
		return promptTemplate{
			system: "你是一名K12命题教师，擅长根据教学内容设计分层练习题。" +
				"请根据主题和要求出一套练习题，覆盖基础巩固、能力提升、拓展挑战三个层次，" +
				"题目难度与年级匹配。所有参考答案和解析统一放在最后的答案部分。" +
				"使用 Markdown 格式输出。",
			temperature: 0.5,
			maxTokens:   3000,
		}, true

	case models.ResourcePPTOutline:
		return promptTemplate{
			system: "你是一名课件设计师，擅长把教学内容组织成清晰的演示文稿大纲。" +
				"请根据主题和要求生成课件大纲：第一段只写课件标题；" +
				"之后每一页用一个空行分隔的小节表示，小节第一行为页标题（以冒号结尾），" +
				"下面逐行列出该页要点。要点要简短，适合投影展示。",
			temperature: 0.7,
			maxTokens:   2000,
		}, true

	case models.ResourceStudentComment:
		return promptTemplate{
			system: "你是一名有多年班主任经验的K12教师，擅长写中肯、有温度的学生评语。" +
				"请根据老师提供的学生情况写评语：先肯定具体的优点，再委婉指出改进方向，" +
				"语气亲切自然，避免空话套话，长度控制在两三段以内。",
			temperature: 0.9,
			maxTokens:   800,
		}, true
	}

	return promptTemplate{}, false
}

// buildUserPrompt 拼装用户消息: 主题, 补充要求, 以及检索到的参考资料块
func buildUserPrompt(req *CreateRequest, referenceBlock string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "主题：%s\n", req.Topic)
	if req.Requirement != "" {
		fmt.Fprintf(&b, "补充要求：%s\n", req.Requirement)
	}
	if referenceBlock != "" {
		b.WriteString("\n")
		b.WriteString(referenceBlock)
	}
	return b.String()
}
