package narration

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain sentence untouched",
			in:   "Welcome to the fleet dashboard.",
			want: "Welcome to the fleet dashboard.",
		},
		{
			name: "emphasis stripped",
			in:   "This is **really** important, *trust* me.",
			want: "This is really important, trust me.",
		},
		{
			name: "backticks stripped",
			in:   "Open the `faults` panel.",
			want: "Open the faults panel.",
		},
		{
			name: "headings stripped",
			in:   "## Fleet Overview",
			want: "Fleet Overview.",
		},
		{
			name: "line breaks become sentence breaks",
			in:   "First point\nSecond point\nThird point.",
			want: "First point. Second point. Third point.",
		},
		{
			name: "bullets stripped",
			in:   "- two vehicles idle\n- one vehicle faulted",
			want: "two vehicles idle. one vehicle faulted.",
		},
		{
			name: "blank lines dropped",
			in:   "Hello.\n\n\nGoodbye.",
			want: "Hello. Goodbye.",
		},
		{
			name: "whitespace collapsed",
			in:   "too    many   spaces.",
			want: "too many spaces.",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
		{
			name: "markup only",
			in:   "**",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
