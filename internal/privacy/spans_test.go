package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpanSet(t *testing.T) {
	var set SpanSet

	assert.True(t, set.Claim(10, 20))
	assert.True(t, set.Claim(0, 5))
	assert.True(t, set.Claim(30, 35))

	// adjacent ranges do not overlap
	assert.True(t, set.Claim(5, 10))
	assert.True(t, set.Claim(20, 21))

	assert.False(t, set.Claim(15, 25), "overlaps the right half of [10,20)")
	assert.False(t, set.Claim(8, 12), "straddles a boundary")
	assert.False(t, set.Claim(31, 33), "inside an existing span")
	assert.False(t, set.Claim(25, 40), "contains an existing span")
	assert.False(t, set.Claim(7, 7), "empty range")

	assert.Equal(t, []Span{{0, 5}, {5, 10}, {10, 20}, {20, 21}, {30, 35}}, set.Spans())
	assert.Equal(t, 5, set.Len())

	assert.True(t, set.Overlaps(34, 50))
	assert.False(t, set.Overlaps(21, 30))
	assert.False(t, set.Overlaps(35, 36))
}
