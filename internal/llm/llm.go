// Package llm provides the model capability used by the splitter: plain chat,
// vision-augmented chat and prompt template resolution, backed by GigaChat or an
// OpenAI-compatible endpoint.
package llm

import (
	"context"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a role-tagged chat message.
type Message struct {
	Role    Role
	Content string
}

// Client is the model capability consumed by the splitter.
type Client interface {
	// Chat sends role-tagged messages and returns the single text reply.
	Chat(ctx context.Context, messages []Message) (string, error)
	// ChatWithVision sends a prompt with attached images. systemPrompt may be empty.
	ChatWithVision(ctx context.Context, prompt string, images [][]byte, systemPrompt string) (string, error)
	// PromptTemplate renders a named prompt template.
	PromptTemplate(name string, vars map[string]any) (string, error)
}

// ResponseContent is the content of a model reply. Providers return either a plain
// string or a list of typed blocks; use ExtractText to normalise.
type ResponseContent interface {
	isResponseContent()
}

// PlainText is a reply delivered as a single string.
type PlainText string

// Blocks is a reply delivered as a list of typed parts.
type Blocks []ContentBlock

// ContentBlock is one typed part of a reply.
type ContentBlock struct {
	Type string
	Text string
}

func (PlainText) isResponseContent() {}
func (Blocks) isResponseContent()    {}

// ExtractText returns the textual content of a reply. Text blocks are joined with
// newlines; blocks of any other type are ignored.
func ExtractText(c ResponseContent) string {
	switch v := c.(type) {
	case PlainText:
		return string(v)
	case Blocks:
		parts := make([]string, 0, len(v))
		for _, b := range v {
			if b.Type == "text" && b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}
