package validation

import "testing"

func TestExtractSlackID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare id",
			input: "U0123ABCDE",
			want:  "U0123ABCDE",
		},
		{
			name:  "display name with id in parens",
			input: "jane (U0123ABCDE)",
			want:  "U0123ABCDE",
		},
		{
			name:  "id after slash",
			input: "jane / U0abc",
			want:  "U0abc",
		},
		{
			name:  "parens without id",
			input: " jane (she/her) ",
			want:  "jane (she/her)",
		},
		{
			name:  "display name only",
			input: "  jane ",
			want:  "jane",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractSlackID(tt.input)
			if got != tt.want {
				t.Fatalf("ExtractSlackID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsSlackID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"U0123ABCDE", true},
		{"W0123ABCD", true},
		{"U0123abcd", false},
		{"U0123", false},
		{"", false},
		{"C0123ABCDE", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := IsSlackID(tt.id); got != tt.valid {
				t.Fatalf("IsSlackID(%q) = %v, want %v", tt.id, got, tt.valid)
			}
		})
	}
}

func TestEmail(t *testing.T) {
	if got := NormalizeEmail("  Jane@Example.COM "); got != "jane@example.com" {
		t.Fatalf("NormalizeEmail = %q", got)
	}
	if !IsValidEmail("jane@example.com") {
		t.Fatalf("expected valid email")
	}
	if IsValidEmail("Jane <jane@example.com>") {
		t.Fatalf("display name should not be accepted")
	}
	if IsValidEmail("not an email") {
		t.Fatalf("expected invalid email")
	}
}
