package maintenance

import (
	"testing"
	"time"
)

func TestNextExecution(t *testing.T) {
	loc := time.UTC

	tests := []struct {
		name     string
		expr     string
		now      time.Time
		want     time.Time
		wantDesc string
	}{
		{
			name:     "monthly mid month",
			expr:     MonthlyResetSchedule,
			now:      time.Date(2025, 3, 14, 9, 30, 0, 0, loc),
			want:     time.Date(2025, 4, 1, 0, 0, 0, 0, loc),
			wantDesc: "monthly on day 1 at 00:00",
		},
		{
			name:     "monthly december rolls year",
			expr:     MonthlyResetSchedule,
			now:      time.Date(2025, 12, 31, 23, 59, 0, 0, loc),
			want:     time.Date(2026, 1, 1, 0, 0, 0, 0, loc),
			wantDesc: "monthly on day 1 at 00:00",
		},
		{
			name:     "monthly exactly at firing",
			expr:     MonthlyResetSchedule,
			now:      time.Date(2025, 5, 1, 0, 0, 0, 0, loc),
			want:     time.Date(2025, 6, 1, 0, 0, 0, 0, loc),
			wantDesc: "monthly on day 1 at 00:00",
		},
		{
			name:     "daily later today",
			expr:     DailySchedule(2),
			now:      time.Date(2025, 3, 14, 1, 0, 0, 0, loc),
			want:     time.Date(2025, 3, 14, 2, 0, 0, 0, loc),
			wantDesc: "daily at 02:00",
		},
		{
			name:     "daily already passed",
			expr:     DailySchedule(2),
			now:      time.Date(2025, 3, 14, 3, 0, 0, 0, loc),
			want:     time.Date(2025, 3, 15, 2, 0, 0, 0, loc),
			wantDesc: "daily at 02:00",
		},
		{
			name:     "daily exactly at firing",
			expr:     DailySchedule(23),
			now:      time.Date(2025, 3, 14, 23, 0, 0, 0, loc),
			want:     time.Date(2025, 3, 15, 23, 0, 0, 0, loc),
			wantDesc: "daily at 23:00",
		},
		{
			name:     "daily month end",
			expr:     DailySchedule(0),
			now:      time.Date(2025, 2, 28, 12, 0, 0, 0, loc),
			want:     time.Date(2025, 3, 1, 0, 0, 0, 0, loc),
			wantDesc: "daily at 00:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, desc := NextExecution(tt.expr, tt.now)
			if got == nil {
				t.Fatalf("Expected a projected time for %q", tt.expr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextExecution = %v, want %v", got, tt.want)
			}
			if desc != tt.wantDesc {
				t.Errorf("Description = %q, want %q", desc, tt.wantDesc)
			}
		})
	}
}

func TestNextExecution_Custom(t *testing.T) {
	tests := []string{
		"@every 1s",
		"*/5 * * * *",
		"0 24 * * *",
		"30 2 * * *",
		"0 2 * * 1",
	}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			got, desc := NextExecution(expr, time.Now())
			if got != nil {
				t.Errorf("Expected no projection for %q, got %v", expr, got)
			}
			if desc == "" {
				t.Error("Expected a description")
			}
		})
	}
}

func TestDailySchedule(t *testing.T) {
	if got := DailySchedule(2); got != "0 2 * * *" {
		t.Errorf("DailySchedule(2) = %q", got)
	}
}
