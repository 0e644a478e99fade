package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduledTaskNextDue(t *testing.T) {
	due := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	every5m := "FREQ=MINUTELY;INTERVAL=5"
	broken := "FREQ=SOMETIMES"

	tests := []struct {
		name string
		task ScheduledTask
		now  time.Time
		want time.Time
	}{
		{
			name: "one time keeps due",
			task: ScheduledTask{TaskType: ScheduledTaskTypeOneTime, Due: due, RecurringInterval: &every5m},
			now:  due.Add(time.Hour),
			want: due,
		},
		{
			name: "recurring advances past now",
			task: ScheduledTask{TaskType: ScheduledTaskTypeRecurring, Due: due, RecurringInterval: &every5m},
			now:  due.Add(12 * time.Minute),
			want: due.Add(15 * time.Minute),
		},
		{
			name: "recurring on an exact occurrence moves to the next one",
			task: ScheduledTask{TaskType: ScheduledTaskTypeRecurring, Due: due, RecurringInterval: &every5m},
			now:  due,
			want: due.Add(5 * time.Minute),
		},
		{
			name: "unparsable rule falls back to due",
			task: ScheduledTask{TaskType: ScheduledTaskTypeRecurring, Due: due, RecurringInterval: &broken},
			now:  due.Add(time.Hour),
			want: due,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(tt.task.NextDue(tt.now)), "got %s want %s", tt.task.NextDue(tt.now), tt.want)
		})
	}
}

func TestPaymentStatusIsTerminal(t *testing.T) {
	assert.False(t, PaymentStatusPending.IsTerminal())
	assert.True(t, PaymentStatusPaid.IsTerminal())
	assert.True(t, PaymentStatusFailed.IsTerminal())
}
