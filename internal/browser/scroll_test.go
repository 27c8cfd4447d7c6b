package browser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrollToEndRespectsBudget(t *testing.T) {
	// Height grows on every measurement: the loop must still stop at
	// the budget.
	height := 1000.0
	scrolls := 0

	err := scrollToEnd(5,
		func() (float64, error) {
			height += 500
			return height, nil
		},
		func() error {
			scrolls++
			return nil
		},
	)

	assert.NoError(t, err)
	assert.Equal(t, 5, scrolls)
}

func TestScrollToEndStopsWhenHeightStabilizes(t *testing.T) {
	heights := []float64{1000, 1500, 1500}
	i := 0
	scrolls := 0

	err := scrollToEnd(10,
		func() (float64, error) {
			h := heights[i]
			if i < len(heights)-1 {
				i++
			}
			return h, nil
		},
		func() error {
			scrolls++
			return nil
		},
	)

	assert.NoError(t, err)
	assert.Equal(t, 2, scrolls, "stops after two consecutive equal measurements")
}

func TestScrollToEndSurfacesScrollError(t *testing.T) {
	boom := errors.New("tab closed")

	err := scrollToEnd(3,
		func() (float64, error) { return 100, nil },
		func() error { return boom },
	)

	assert.ErrorIs(t, err, boom)
}
