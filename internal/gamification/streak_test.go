package gamification

import "testing"

func TestAdvanceStreak(t *testing.T) {
	tests := []struct {
		name string
		in   StreakState
		want StreakState
	}{
		{
			name: "first qualified week",
			in:   StreakState{},
			want: StreakState{ConsecutiveWeeks: 1, HighestConsecutiveWeeks: 1, TotalQualifiedWeeks: 1, CountedInTotal: true},
		},
		{
			name: "continues streak",
			in:   StreakState{PreviousWeekQualified: true, ConsecutiveWeeks: 2, HighestConsecutiveWeeks: 2, TotalQualifiedWeeks: 2},
			want: StreakState{PreviousWeekQualified: true, ConsecutiveWeeks: 3, HighestConsecutiveWeeks: 3, TotalQualifiedWeeks: 3, CountedInTotal: true},
		},
		{
			name: "gap resets but keeps highest",
			in:   StreakState{ConsecutiveWeeks: 5, HighestConsecutiveWeeks: 5, TotalQualifiedWeeks: 7},
			want: StreakState{ConsecutiveWeeks: 1, HighestConsecutiveWeeks: 5, TotalQualifiedWeeks: 8, CountedInTotal: true},
		},
		{
			name: "already counted week does not double count",
			in:   StreakState{PreviousWeekQualified: true, ConsecutiveWeeks: 1, HighestConsecutiveWeeks: 3, TotalQualifiedWeeks: 4, CountedInTotal: true},
			want: StreakState{PreviousWeekQualified: true, ConsecutiveWeeks: 2, HighestConsecutiveWeeks: 3, TotalQualifiedWeeks: 4, CountedInTotal: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdvanceStreak(tt.in)
			if got != tt.want {
				t.Errorf("AdvanceStreak(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
			if got.HighestConsecutiveWeeks < got.ConsecutiveWeeks {
				t.Errorf("highest %d below current %d", got.HighestConsecutiveWeeks, got.ConsecutiveWeeks)
			}
		})
	}
}
