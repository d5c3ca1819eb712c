package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitNames(t *testing.T) {
	assert.Equal(t, "train", Train.String())
	assert.Equal(t, "valid", Valid.String())
	assert.Equal(t, "test", Test.String())

	s, err := ParseSplit("valid")
	require.NoError(t, err)
	assert.Equal(t, Valid, s)

	_, err = ParseSplit("val")
	assert.Error(t, err)
}

func TestRatios_Validate(t *testing.T) {
	assert.NoError(t, Ratios{Valid: 0.2}.Validate())
	assert.NoError(t, Ratios{Valid: 0.2, Test: 0.1}.Validate())

	for _, r := range []Ratios{
		{Valid: 0},
		{Valid: -0.1},
		{Valid: 1},
		{Valid: 0.2, Test: -0.1},
		{Valid: 0.5, Test: 0.5},
		{Valid: 0.7, Test: 0.4},
	} {
		assert.ErrorIs(t, r.Validate(), ErrInvalidRatios, "%+v", r)
	}
}

func TestRatios_Active(t *testing.T) {
	assert.Equal(t, []Split{Train, Valid}, Ratios{Valid: 0.2}.Active())
	assert.Equal(t, []Split{Train, Valid, Test}, Ratios{Valid: 0.2, Test: 0.1}.Active())
	assert.InDelta(t, 0.7, Ratios{Valid: 0.2, Test: 0.1}.Train(), 1e-12)
}

func TestAssignment(t *testing.T) {
	a := NewAssignment(Ratios{Valid: 0.2, Test: 0.1})

	a.Assign(1, Train)
	a.Assign(2, Valid)
	a.Assign(3, Train)
	a.Assign(3, Valid)

	s, ok := a.Lookup(3)
	require.True(t, ok)
	assert.Equal(t, Valid, s)
	_, ok = a.Lookup(9)
	assert.False(t, ok)

	assert.Equal(t, 3, a.Len())
	assert.Equal(t, 1, a.Size(Train))
	assert.Equal(t, 2, a.Size(Valid))
	assert.False(t, a.Has(Test))
	assert.Equal(t, []Split{Train, Valid}, a.Splits())

	a.Assign(4, Test)
	assert.Equal(t, []Split{Train, Valid, Test}, a.Splits())
	assert.Equal(t, map[string]int{"train": 1, "valid": 2, "test": 1}, a.Sizes())
}

func TestClassTargets(t *testing.T) {
	w := []float64{0.75, 0.2, 0.05}

	assert.Equal(t, []int{8, 2, 0}, Apportion(10, w))
	assert.Equal(t, []int{7, 2, 1}, ClassTargets(10, w))
	assert.Equal(t, []int{1, 1, 1}, ClassTargets(3, w))
	// Too small for every split: plain apportionment.
	assert.Equal(t, []int{2, 0, 0}, ClassTargets(2, w))
	// Unaffected when every share is already non-zero.
	assert.Equal(t, []int{11, 3, 1}, ClassTargets(15, []float64{0.7, 0.2, 0.1}))

	for n := 3; n < 200; n++ {
		got := ClassTargets(n, w)
		sum := 0
		for _, v := range got {
			assert.Positive(t, v, "n=%d", n)
			sum += v
		}
		assert.Equal(t, n, sum, "n=%d", n)
	}
}

func TestApportion(t *testing.T) {
	w := []float64{0.7, 0.2, 0.1}

	assert.Equal(t, []int{11, 3, 1}, Apportion(15, w))
	assert.Equal(t, []int{42, 12, 6}, Apportion(60, w))
	assert.Equal(t, []int{70, 20, 10}, Apportion(100, w))
	assert.Equal(t, []int{8, 2, 0}, Apportion(10, []float64{0.76, 0.2, 0.04}))
	assert.Equal(t, []int{8, 2}, Apportion(10, []float64{0.8, 0.2}))
	assert.Equal(t, []int{0, 0, 0}, Apportion(0, w))

	// Equal remainders go to the lower index.
	assert.Equal(t, []int{1, 0}, Apportion(1, []float64{0.5, 0.5}))

	for n := 0; n < 200; n++ {
		got := Apportion(n, w)
		assert.Equal(t, n, got[0]+got[1]+got[2], "n=%d", n)
	}
}

func TestFloorShare(t *testing.T) {
	assert.Equal(t, 20, floorShare(100, 0.2))
	assert.Equal(t, 7, floorShare(10, 0.7))
	assert.Equal(t, 2, floorShare(9, 0.3))
}
