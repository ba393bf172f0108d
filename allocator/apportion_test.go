package allocator

import (
	"math/rand"

	gc "gopkg.in/check.v1"
)

type ApportionSuite struct{}

func (s *ApportionSuite) TestFixtureCases(c *gc.C) {
	for _, tc := range []struct {
		remaining []int
		seats     int
		expect    []int
	}{
		{[]int{3, 3}, 4, []int{2, 2}},       // Exact shares.
		{[]int{3, 5}, 7, []int{3, 4}},       // 2.625 & 4.375.
		{[]int{3, 2, 4}, 3, []int{1, 1, 1}}, // 1, 0.667 & 1.333.
		{[]int{1, 1}, 1, []int{1, 0}},       // Ties go to the earlier party.
		{[]int{2, 1, 1}, 2, []int{1, 1, 0}}, // 1, 0.5 & 0.5.
		{[]int{0, 4}, 2, []int{0, 2}},
		{[]int{4, 6}, 10, []int{4, 6}}, // All remaining capacity.
		{[]int{2, 2, 2}, 0, []int{0, 0, 0}},
		{[]int{0, 0}, 0, []int{0, 0}},
		{nil, 0, []int{}},
	} {
		c.Check(apportion(tc.remaining, tc.seats), gc.DeepEquals, tc.expect,
			gc.Commentf("remaining %v seats %d", tc.remaining, tc.seats))
	}
}

func (s *ApportionSuite) TestSharesSumToSeats(c *gc.C) {
	var rnd = rand.New(rand.NewSource(7))

	for i := 0; i != 1000; i++ {
		var remaining = make([]int, 1+rnd.Intn(8))
		var spaces int

		for j := range remaining {
			remaining[j] = rnd.Intn(12)
			spaces += remaining[j]
		}
		var seats = rnd.Intn(spaces + 1)
		var out = apportion(remaining, seats)

		var sum int
		for j := range out {
			c.Assert(out[j] >= 0 && out[j] <= remaining[j], gc.Equals, true,
				gc.Commentf("remaining %v seats %d out %v", remaining, seats, out))
			sum += out[j]
		}
		c.Assert(sum, gc.Equals, seats)
	}
}

var _ = gc.Suite(&ApportionSuite{})
