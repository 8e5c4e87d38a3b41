package paginator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, PageOf(0, 20))
	assert.Equal(t, 0, PageOf(19, 20))
	assert.Equal(t, 1, PageOf(20, 20))
	assert.Equal(t, 2, PageOf(45, 20))
	assert.Equal(t, 0, PageOf(-1, 20))
	assert.Equal(t, 0, PageOf(5, 0))
}

func TestRangeOf(t *testing.T) {
	t.Parallel()

	start, end := RangeOf(0, 20, 45)
	assert.Equal(t, 0, start)
	assert.Equal(t, 20, end)

	start, end = RangeOf(2, 20, 45)
	assert.Equal(t, 40, start)
	assert.Equal(t, 45, end)

	start, end = RangeOf(5, 20, 45)
	assert.Equal(t, 45, start)
	assert.Equal(t, 45, end)

	start, end = RangeOf(0, 20, 0)
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, end)
}

func TestTotalPages(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, TotalPages(0, 20))
	assert.Equal(t, 1, TotalPages(1, 20))
	assert.Equal(t, 1, TotalPages(20, 20))
	assert.Equal(t, 2, TotalPages(21, 20))
	assert.Equal(t, 3, TotalPages(45, 20))
}

func TestClampPage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, ClampPage(3, 20, 0))
	assert.Equal(t, 2, ClampPage(7, 20, 45))
	assert.Equal(t, 1, ClampPage(1, 20, 45))
	assert.Equal(t, 0, ClampPage(-2, 20, 45))
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	for _, size := range []int{1, 3, 20} {
		for total := 1; total <= 50; total++ {
			for i := 0; i < total; i++ {
				page := PageOf(i, size)
				start, end := RangeOf(page, size, total)
				assert.LessOrEqual(t, start, i)
				assert.Less(t, i, end)
				assert.Less(t, page, TotalPages(total, size))
			}
		}
	}
}
