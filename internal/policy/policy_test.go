package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDecide covers the full decision table for both modes.
func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		profileOK bool
		mode      Mode
		threshold int
		record    RecordView
		want      Action
	}{
		{
			name:      "compliant user is never acted on",
			profileOK: true,
			mode:      ModeProgressive,
			threshold: 3,
			record:    RecordView{WarningCount: 2},
			want:      ActionNone,
		},
		{
			name:      "first offense warns",
			mode:      ModeProgressive,
			threshold: 3,
			record:    RecordView{WarningCount: 1},
			want:      ActionWarn,
		},
		{
			name:      "second offense below threshold does nothing",
			mode:      ModeProgressive,
			threshold: 3,
			record:    RecordView{WarningCount: 2},
			want:      ActionNone,
		},
		{
			name:      "threshold reached restricts",
			mode:      ModeProgressive,
			threshold: 3,
			record:    RecordView{WarningCount: 3},
			want:      ActionRestrict,
		},
		{
			name:      "threshold of one restricts immediately without warning",
			mode:      ModeProgressive,
			threshold: 1,
			record:    RecordView{WarningCount: 1},
			want:      ActionRestrict,
		},
		{
			name:      "already restricted user gets no further action",
			mode:      ModeProgressive,
			threshold: 3,
			record:    RecordView{WarningCount: 3, IsRestricted: true},
			want:      ActionNone,
		},
		{
			name:      "warn-only warns on first offense",
			mode:      ModeWarnOnly,
			threshold: 3,
			record:    RecordView{WarningCount: 1},
			want:      ActionWarn,
		},
		{
			name:      "warn-only never restricts on count",
			mode:      ModeWarnOnly,
			threshold: 3,
			record:    RecordView{WarningCount: 10},
			want:      ActionNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.profileOK, tt.mode, tt.threshold, tt.record)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestParseMode verifies mode parsing falls back to the less
// aggressive mode on unknown input.
func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeProgressive, ParseMode("progressive"))
	assert.Equal(t, ModeWarnOnly, ParseMode("warn_only"))
	assert.Equal(t, ModeWarnOnly, ParseMode("bogus"))
	assert.Equal(t, ModeWarnOnly, ParseMode(""))
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "none", ActionNone.String())
	assert.Equal(t, "warn", ActionWarn.String())
	assert.Equal(t, "restrict", ActionRestrict.String())
}
