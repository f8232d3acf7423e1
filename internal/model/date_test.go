package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", d.String())

	_, err = ParseDate("15/03/2026")
	assert.Error(t, err)
}

func TestDateAddDaysRollsOverMonth(t *testing.T) {
	d := NewDate(2026, time.January, 31)
	assert.Equal(t, "2026-02-01", d.AddDays(1).String())
	assert.Equal(t, "2026-01-30", d.AddDays(-1).String())
}

func TestDaysUntil(t *testing.T) {
	in := NewDate(2026, time.June, 10)
	out := NewDate(2026, time.June, 13)
	assert.Equal(t, 3, in.DaysUntil(out))
	assert.Equal(t, -3, out.DaysUntil(in))
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2026, time.May, 2))
	require.NoError(t, err)
	assert.Equal(t, `"2026-05-02"`, string(b))

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2026-05-02"`), &d))
	assert.True(t, d.Equal(NewDate(2026, time.May, 2)))

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.True(t, d.IsZero())
}

func TestStayDatesHalfOpen(t *testing.T) {
	r := &Reservation{
		CheckIn:  NewDate(2026, time.July, 1),
		CheckOut: NewDate(2026, time.July, 4),
	}
	dates := r.StayDates()
	require.Len(t, dates, 3)
	assert.Equal(t, "2026-07-01", dates[0].String())
	assert.Equal(t, "2026-07-02", dates[1].String())
	assert.Equal(t, "2026-07-03", dates[2].String())
	assert.Equal(t, 3, r.Nights())
}

func TestStayDatesInvertedRangeIsNil(t *testing.T) {
	r := &Reservation{
		CheckIn:  NewDate(2026, time.July, 4),
		CheckOut: NewDate(2026, time.July, 1),
	}
	assert.Nil(t, r.StayDates())

	same := &Reservation{
		CheckIn:  NewDate(2026, time.July, 4),
		CheckOut: NewDate(2026, time.July, 4),
	}
	assert.Nil(t, same.StayDates())
}
