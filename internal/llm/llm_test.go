package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name    string
		content ResponseContent
		want    string
	}{
		{name: "plain text", content: PlainText(`{"sameDocument":true}`), want: `{"sameDocument":true}`},
		{name: "empty plain text", content: PlainText(""), want: ""},
		{
			name: "text blocks joined",
			content: Blocks{
				{Type: "text", Text: "first"},
				{Type: "text", Text: "second"},
			},
			want: "first\nsecond",
		},
		{
			name: "non-text blocks ignored",
			content: Blocks{
				{Type: "image_url"},
				{Type: "text", Text: "only"},
				{Type: "text", Text: ""},
			},
			want: "only",
		},
		{name: "nil content", content: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractText(tt.content))
		})
	}
}
