package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Missingness(t *testing.T) {
	assert.True(t, NewMissingValue().IsMissing())
	assert.True(t, NewStringValue("").IsMissing())
	assert.False(t, NewStringValue("Gauteng").IsMissing())
	assert.False(t, NewNumericValue(0).IsMissing())
	assert.False(t, NewBooleanValue(false).IsMissing())
	assert.True(t, Value{Type: ValueTypeNumeric}.IsMissing())
}

func TestValue_Float64MapsBooleans(t *testing.T) {
	f, ok := NewBooleanValue(true).Float64()
	require.True(t, ok)
	assert.Equal(t, 1.0, f)

	f, ok = NewBooleanValue(false).Float64()
	require.True(t, ok)
	assert.Equal(t, 0.0, f)

	_, ok = NewStringValue("Male").Float64()
	assert.False(t, ok)

	_, ok = NewMissingValue().Float64()
	assert.False(t, ok)
}

func TestValue_Equal(t *testing.T) {
	ts := time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, NewTimestampValue(ts).Equal(NewTimestampValue(ts)))
	assert.True(t, NewMissingValue().Equal(NewStringValue("")))
	assert.False(t, NewNumericValue(1).Equal(NewBooleanValue(true)))
	assert.False(t, NewNumericValue(1).Equal(NewMissingValue()))
}

func TestRecord_WithDoesNotMutate(t *testing.T) {
	rec := Record{Row: 1, Values: map[string]Value{ColTotalClaims: NewNumericValue(10)}}
	derived := rec.With(map[string]Value{ColMargin: NewNumericValue(5)})

	assert.True(t, rec.Get(ColMargin).IsMissing())
	assert.Equal(t, "5", derived.Get(ColMargin).String())
	assert.Equal(t, "10", derived.Get(ColTotalClaims).String())
}
