package textrisk

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		opts      Options
		wantValid bool
		wantRisk  Level
	}{
		{name: "empty", wantValid: true, wantRisk: LevelLow},
		{name: "plain comment", value: "I enjoyed the biology class", wantValid: true, wantRisk: LevelLow},
		{
			name:      "script tag",
			value:     "<script>alert(1)</script>",
			opts:      Options{MaxLength: 1000},
			wantValid: false,
			wantRisk:  LevelHigh,
		},
		{
			name:      "event handler attribute",
			value:     `<img src=x onerror=alert(1)>`,
			wantValid: false,
			wantRisk:  LevelHigh,
		},
		{
			name:      "javascript url",
			value:     "click javascript:alert(1)",
			wantValid: false,
			wantRisk:  LevelHigh,
		},
		{
			name:      "injection stays high even when html is allowed",
			value:     "<script>alert(1)</script>",
			opts:      Options{AllowHTML: true},
			wantValid: true,
			wantRisk:  LevelHigh,
		},
		{
			name:      "too long",
			value:     strings.Repeat("a", 21),
			opts:      Options{MaxLength: 20},
			wantValid: false,
			wantRisk:  LevelMedium,
		},
		{
			name:      "near the length budget",
			value:     strings.Repeat("a", 17),
			opts:      Options{MaxLength: 20},
			wantValid: true,
			wantRisk:  LevelMedium,
		},
		{
			name:      "alphanumeric violation",
			value:     "Grade 7-B!",
			opts:      Options{RequireAlphanumeric: true},
			wantValid: false,
			wantRisk:  LevelMedium,
		},
		{
			name:      "alphanumeric ok",
			value:     "Grade 7B",
			opts:      Options{RequireAlphanumeric: true},
			wantValid: true,
			wantRisk:  LevelLow,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.value, "comment", tt.opts)
			if got.Valid != tt.wantValid {
				t.Errorf("Validate().Valid = %v, want %v (errors: %v)", got.Valid, tt.wantValid, got.Errors)
			}
			if got.Risk != tt.wantRisk {
				t.Errorf("Validate().Risk = %v, want %v", got.Risk, tt.wantRisk)
			}
			if !got.Valid && len(got.Errors) == 0 {
				t.Error("invalid assessment carries no errors")
			}
		})
	}
}

func TestValidateDeterminism(t *testing.T) {
	opts := Options{MaxLength: 100, RequireAlphanumeric: true}
	first := Validate("some <b>input</b>", "name", opts)
	for i := 0; i < 5; i++ {
		if got := Validate("some <b>input</b>", "name", opts); !reflect.DeepEqual(got, first) {
			t.Fatalf("Validate() not deterministic: %+v != %+v", got, first)
		}
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "plain", value: "hello world", want: "hello world"},
		{name: "trims", value: "  spaced  ", want: "spaced"},
		{name: "strips tags", value: "<b>bold</b> move", want: "bold move"},
		{name: "strips script", value: "<script>alert(1)</script>ok", want: "alert(1)ok"},
		{name: "nested markup", value: "<<script>script>alert(1)", want: "alert(1)"},
		{name: "stray brackets", value: "1 < 2 > 0", want: "1  0"},
		{name: "control chars", value: "a\x00b\x07c", want: "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.value)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.value, got, tt.want)
			}
			if again := Sanitize(got); again != got {
				t.Errorf("Sanitize() not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestSanitizeMap(t *testing.T) {
	got := SanitizeMap(map[string]string{
		"name":    " Asha ",
		"comment": "<i>nice</i>",
	})
	want := map[string]string{
		"name":    "Asha",
		"comment": "nice",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SanitizeMap() = %v, want %v", got, want)
	}
}

func TestTrackerKeystrokes(t *testing.T) {
	tr := NewTracker(nil, nil)

	now := time.Now()
	tr.nowFunc = func() time.Time { return now }

	for i := 1; i <= 50; i++ {
		if tr.RecordKeystroke("feedback.comment") {
			t.Fatalf("RecordKeystroke() flagged at %d hits", i)
		}
	}
	if !tr.RecordKeystroke("feedback.comment") {
		t.Error("RecordKeystroke() not flagged past the limit")
	}

	// a new window clears the flag
	now = now.Add(typingWindow)
	if tr.RecordKeystroke("feedback.comment") {
		t.Error("RecordKeystroke() still flagged after the window elapsed")
	}
}

func TestTrackerRepeats(t *testing.T) {
	tr := NewTracker(nil, nil)

	if tr.CheckRepeat("chat.message", "hello everyone") {
		t.Error("first submission flagged as repeat")
	}
	if !tr.CheckRepeat("chat.message", "hello everyone") {
		t.Error("identical resubmission not flagged")
	}
	if tr.CheckRepeat("chat.message", "a completely different question") {
		t.Error("unrelated submission flagged as repeat")
	}
}
