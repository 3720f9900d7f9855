package analysis

import (
	"fmt"
	"strings"
)

// Kind selects the prompt sent to the model.
type Kind string

const (
	KindTranslate Kind = "translate"
	KindExplain   Kind = "explain"
)

// ParseKind accepts the wire names and the "explanation" route alias.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "translate", "translation":
		return KindTranslate, nil
	case "explain", "explanation":
		return KindExplain, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

const translatePrompt = `请将以下日语句子翻译成简体中文，并对其中涉及的主要语法点和关键词汇进行详细解释。

"%s"

输出要求：
1. 使用 Markdown 格式。
2. 先给出翻译内容，放在一个段落中。
3. 然后使用二级标题 “## 语法解析” 罗列本句中出现的重要语法点，每一点使用无序列表说明。
4. 再使用二级标题 “## 词汇表” 以 Markdown 表格形式列出需要说明的词汇，表头包含“单词 | 词性/角色 | 释义”。
5. 仅返回 Markdown 内容，不要包含多余说明。`

const explainPrompt = `请对以下日文句子进行详细的单词和语法解释，以帮助学习者深入理解。请以清晰、有条理的方式组织内容，使用Markdown格式。

要求：
1.  **单词分析**: 列出句子中的主要单词，提供它们的读音（平假名）、词性、基本形式和中文意思。
2.  **语法结构**: 分析句子的整体语法结构，解释关键的语法点，例如助词的用法、动词的形态变化等。
3.  **格式**: 使用Markdown的标题、列表和粗体来增强可读性。

原文：
%s

请仅返回详细的解释内容。`

// Prompt renders the user message for kind.
func Prompt(kind Kind, text string) (string, error) {
	switch kind {
	case KindTranslate:
		return fmt.Sprintf(translatePrompt, text), nil
	case KindExplain:
		return fmt.Sprintf(explainPrompt, text), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
}
