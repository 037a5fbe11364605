package template

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		content map[string]any
		want    string
	}{
		{
			name:    "variable substitution",
			source:  "Hello {{ name }}",
			content: map[string]any{"name": "Larry"},
			want:    "Hello Larry",
		},
		{
			name:    "missing name renders empty",
			source:  "Hello {{ name }}!",
			content: map[string]any{},
			want:    "Hello !",
		},
		{
			name:    "loop",
			source:  "{% for item in items %}{{ item }};{% endfor %}",
			content: map[string]any{"items": []string{"a", "b", "c"}},
			want:    "a;b;c;",
		},
		{
			name:    "conditional true",
			source:  "{% if enabled %}on{% else %}off{% endif %}",
			content: map[string]any{"enabled": true},
			want:    "on",
		},
		{
			name:    "conditional false",
			source:  "{% if enabled %}on{% else %}off{% endif %}",
			content: map[string]any{"enabled": false},
			want:    "off",
		},
		{
			name:    "multiline body",
			source:  "const (\n\tversion = \"{{ version }}\"\n)",
			content: map[string]any{"version": "1.2.3"},
			want:    "const (\n\tversion = \"1.2.3\"\n)",
		},
		{
			name:    "angle brackets and ampersands pass through",
			source:  "{{ v }}",
			content: map[string]any{"v": "if (a < b && c > d)"},
			want:    "if (a < b && c > d)",
		},
		{
			name:    "quotes pass through",
			source:  "{{ v }}",
			content: map[string]any{"v": `"fish" & 'chips'`},
			want:    `"fish" & 'chips'`,
		},
	}

	r := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Render(tt.source, tt.content)
			if err != nil {
				t.Fatalf("Render returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRenderParseError(t *testing.T) {
	r := New()
	_, err := r.Render("{{ unclosed", map[string]any{})
	if err == nil {
		t.Fatal("expected error for malformed template, got nil")
	}
	if !strings.Contains(err.Error(), "parse template") {
		t.Errorf("expected parse error context, got %q", err)
	}
}
