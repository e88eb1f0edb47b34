package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var (
	ist = time.FixedZone("IST", 5*60*60+30*60)
	pst = time.FixedZone("PST", -8*60*60)
)

func TestLocalDate(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		loc  *time.Location
		want time.Time
	}{
		{
			name: "utc stays on same day",
			t:    time.Date(2024, time.March, 10, 23, 30, 0, 0, time.UTC),
			loc:  time.UTC,
			want: NewDate(2024, time.March, 10),
		},
		{
			name: "late utc instant is next day in IST",
			t:    time.Date(2024, time.March, 10, 20, 0, 0, 0, time.UTC),
			loc:  ist,
			want: NewDate(2024, time.March, 11),
		},
		{
			name: "early utc instant is previous day in PST",
			t:    time.Date(2024, time.March, 10, 3, 0, 0, 0, time.UTC),
			loc:  pst,
			want: NewDate(2024, time.March, 9),
		},
		{
			name: "nil location falls back to utc",
			t:    time.Date(2024, time.March, 10, 3, 0, 0, 0, ist),
			loc:  nil,
			want: NewDate(2024, time.March, 9),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LocalDate(tt.t, tt.loc))
		})
	}
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 31, DaysBetween(NewDate(2024, time.January, 1), NewDate(2024, time.February, 1)))
	assert.Equal(t, 29, DaysBetween(NewDate(2024, time.February, 1), NewDate(2024, time.March, 1)))
	assert.Equal(t, 366, DaysBetween(NewDate(2024, time.January, 1), NewDate(2025, time.January, 1)))
	assert.Equal(t, -14, DaysBetween(NewDate(2024, time.January, 15), NewDate(2024, time.January, 1)))
	assert.Equal(t, 0, DaysBetween(NewDate(2024, time.January, 15), NewDate(2024, time.January, 15)))
}

func TestClampedDate(t *testing.T) {
	assert.Equal(t, NewDate(2023, time.February, 28), ClampedDate(2023, time.February, 31))
	assert.Equal(t, NewDate(2024, time.February, 29), ClampedDate(2024, time.February, 30))
	assert.Equal(t, NewDate(2025, time.January, 15), ClampedDate(2024, time.Month(13), 15))
	assert.Equal(t, NewDate(2023, time.December, 31), ClampedDate(2024, time.Month(0), 31))
}

func TestAddClampedDate(t *testing.T) {
	tests := []struct {
		name                string
		start               time.Time
		years, months, days int
		want                time.Time
	}{
		{
			name:  "days cross month boundary",
			start: NewDate(2024, time.March, 31),
			days:  5,
			want:  NewDate(2024, time.April, 5),
		},
		{
			name:  "week crosses year boundary",
			start: NewDate(2024, time.December, 29),
			days:  7,
			want:  NewDate(2025, time.January, 5),
		},
		{
			name:  "negative days",
			start: NewDate(2024, time.March, 3),
			days:  -14,
			want:  NewDate(2024, time.February, 18),
		},
		{
			name:   "month clamps to february",
			start:  NewDate(2024, time.January, 31),
			months: 1,
			want:   NewDate(2024, time.February, 29),
		},
		{
			name:   "quarter clamps",
			start:  NewDate(2024, time.November, 30),
			months: 3,
			want:   NewDate(2025, time.February, 28),
		},
		{
			name:  "year from leap day",
			start: NewDate(2024, time.February, 29),
			years: 1,
			want:  NewDate(2025, time.February, 28),
		},
		{
			name:   "clamp happens before days are added",
			start:  NewDate(2024, time.January, 31),
			months: 1,
			days:   1,
			want:   NewDate(2024, time.March, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddClampedDate(tt.start, tt.years, tt.months, tt.days))
		})
	}
}
