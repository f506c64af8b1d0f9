package wiki

import "testing"

func TestMarkdownToWiki(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "heading and paragraph",
			src:  "# Title\n\nBody text.\n",
			want: "h1. Title\nBody text.",
		},
		{
			name: "strong and emphasis",
			src:  "**bold** and *it*\n",
			want: "*bold* and _it_",
		},
		{
			name: "intraword emphasis uses braced marker",
			src:  "super*man*\n",
			want: "super{_}man_",
		},
		{
			name: "code span",
			src:  "run `go env` first\n",
			want: "run {{go env}} first",
		},
		{
			name: "bullet list",
			src:  "- a\n- b\n",
			want: "\n* a\n* b",
		},
		{
			name: "ordered list with nested bullet",
			src:  "1. one\n   - sub\n2. two\n",
			want: "\n# one\n#* sub\n# two",
		},
		{
			name: "fenced code block",
			src:  "```go\nx := 1\n```\n",
			want: "{code:go}\nx := 1\n{code}",
		},
		{
			name: "fenced code block without language",
			src:  "```\nplain\n```\n",
			want: "{code}\nplain\n{code}",
		},
		{
			name: "blockquote",
			src:  "> quoted\n",
			want: "{quote}\nquoted\n{quote}",
		},
		{
			name: "table",
			src:  "| H1 | H2 |\n| --- | --- |\n| a | b |\n",
			want: "\n||H1||H2||\n|a|b|",
		},
		{
			name: "link with text",
			src:  "[site](https://example.com)\n",
			want: "[site|https://example.com]",
		},
		{
			name: "autolink",
			src:  "<https://example.com>\n",
			want: "[https://example.com]",
		},
		{
			name: "image becomes attachment reference",
			src:  "![diagram](diagram.png)\n",
			want: "[^diagram.png]",
		},
		{
			name: "user profile link",
			src:  "[Jane](/users/jdoe)\n",
			want: "[~jdoe]",
		},
		{
			name: "soft break joins lines",
			src:  "a\nb\n",
			want: "a b",
		},
		{
			name: "hard break keeps lines",
			src:  "a  \nb\n",
			want: "a\nb",
		},
		{
			name: "thematic break",
			src:  "a\n\n---\n",
			want: "a\n----",
		},
		{
			name: "empty input",
			src:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MarkdownToWiki(tt.src); got != tt.want {
				t.Errorf("MarkdownToWiki(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}
