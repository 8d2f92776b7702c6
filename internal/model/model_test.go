package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSplitDateTime(t *testing.T) {
	d, c := SplitDateTime(time.Date(2023, 1, 9, 7, 5, 0, 0, time.UTC))
	assert.Equal(t, "1/9/2023", d)
	assert.Equal(t, "07:05", c)
}

func TestKeyIgnoresEndTime(t *testing.T) {
	a := Occurrence{Date: time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC), Student: "Jones", Course: "Algebra", Activity: "Tennis", StartTime: "14:00", EndTime: "15:00"}
	b := a
	b.EndTime = UnknownTime
	assert.Equal(t, a.Key(), b.Key())
	assert.True(t, a.HasKnownEnd())
	assert.False(t, b.HasKnownEnd())
}
