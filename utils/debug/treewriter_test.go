package debug

import (
	"strings"
	"testing"
)

func TestNewTreeWriter(t *testing.T) {
	tw := NewTreeWriter()
	if tw == nil {
		t.Fatal("NewTreeWriter() returned nil")
	}
	if tw.w == nil {
		t.Error("TreeWriter builder is nil")
	}
}

func TestTreeWriter_String(t *testing.T) {
	tw := NewTreeWriter()
	if tw.String() != "" {
		t.Error("Expected empty string from new TreeWriter")
	}

	tw.w.WriteString("test content")
	if tw.String() != "test content" {
		t.Errorf("String() = %q, want %q", tw.String(), "test content")
	}
}

func TestTreeWriter_Line(t *testing.T) {
	tests := []struct {
		name   string
		depth  int
		format string
		args   []any
		want   string
	}{
		{
			name:   "no depth",
			depth:  0,
			format: "test",
			args:   nil,
			want:   "test\n",
		},
		{
			name:   "depth 1",
			depth:  1,
			format: "indented",
			args:   nil,
			want:   "  indented\n",
		},
		{
			name:   "depth 2",
			depth:  2,
			format: "double indent",
			args:   nil,
			want:   "    double indent\n",
		},
		{
			name:   "with formatting",
			depth:  1,
			format: "value: %d",
			args:   []any{42},
			want:   "  value: 42\n",
		},
		{
			name:   "multiple args",
			depth:  0,
			format: "%s = %d",
			args:   []any{"count", 5},
			want:   "count = 5\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.Line(tt.depth, tt.format, tt.args...)
			got := tw.String()
			if got != tt.want {
				t.Errorf("Line() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_TextBlock(t *testing.T) {
	tests := []struct {
		name  string
		depth int
		label string
		value string
		want  string
	}{
		{
			name:  "no depth empty value",
			depth: 0,
			label: "field",
			value: "",
			want:  "field: \n",
		},
		{
			name:  "no depth with value",
			depth: 0,
			label: "text",
			value: "hello world",
			want:  "text: \"hello world\"\n",
		},
		{
			name:  "depth 1 with value",
			depth: 1,
			label: "content",
			value: "test",
			want:  "  content: \"test\"\n",
		},
		{
			name:  "depth 2 with value",
			depth: 2,
			label: "nested",
			value: "data",
			want:  "    nested: \"data\"\n",
		},
		{
			name:  "value with quotes",
			depth: 0,
			label: "quoted",
			value: "he said \"hello\"",
			want:  "quoted: \"he said \\\"hello\\\"\"\n",
		},
		{
			name:  "value with newline",
			depth: 0,
			label: "multiline",
			value: "line1\nline2",
			want:  "multiline: \"line1\\nline2\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.TextBlock(tt.depth, tt.label, tt.value)
			got := tw.String()
			if got != tt.want {
				t.Errorf("TextBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "simple text",
			input: "hello",
			want:  `"hello"`,
		},
		{
			name:  "with spaces",
			input: "hello world",
			want:  `"hello world"`,
		},
		{
			name:  "with quotes",
			input: `say "hi"`,
			want:  `"say \"hi\""`,
		},
		{
			name:  "with newline",
			input: "line1\nline2",
			want:  `"line1\nline2"`,
		},
		{
			name:  "with tab",
			input: "col1\tcol2",
			want:  `"col1\tcol2"`,
		},
		{
			name:  "with backslash",
			input: `path\to\file`,
			want:  `"path\\to\\file"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encodeText(tt.input)
			if got != tt.want {
				t.Errorf("encodeText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_MultipleOperations(t *testing.T) {
	tw := NewTreeWriter()
	tw.Line(0, "<p>")
	tw.Line(1, "<b>")
	tw.TextBlock(2, "text", "bold")
	tw.Line(1, "@style=%q", "i-1-ab3f")
	tw.TextBlock(1, "text", "plain")

	got := tw.String()
	want := "<p>\n  <b>\n    text: \"bold\"\n  @style=\"i-1-ab3f\"\n  text: \"plain\"\n"

	if got != want {
		t.Errorf("Multiple operations:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestTreeWriter_ComplexTree(t *testing.T) {
	// Mirrors the shape project.dumpTree produces for a styled document:
	// one Line per element (plus its attributes), one TextBlock per text node.
	tw := NewTreeWriter()
	tw.Line(0, "<document>")
	tw.Line(1, "<p>")
	tw.TextBlock(2, "text", "Introduction")
	tw.Line(1, "<p>")
	tw.Line(2, "@tf-protect=%q", "P-1-9cde")
	tw.TextBlock(2, "text", "Body")

	result := tw.String()
	if !strings.Contains(result, "<document>\n") {
		t.Error("Missing document line")
	}
	if !strings.Contains(result, "  <p>\n") {
		t.Error("Missing paragraph line")
	}
	if !strings.Contains(result, "    text: \"Introduction\"\n") {
		t.Error("Missing text line")
	}
	if !strings.Contains(result, "    @tf-protect=\"P-1-9cde\"\n") {
		t.Error("Missing attribute line")
	}
}
