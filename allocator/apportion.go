package allocator

import "sort"

// apportion distributes |seats| across parties in proportion to their
// |remaining| capacities, using the largest-remainder method: each party
// receives the floor of its exact share, and leftover seats go one apiece
// to the parties having largest fractional remainders. Ties are broken in
// favor of the earlier party. Shares are computed in integer arithmetic,
// and the result sums to |seats|.
//
// |seats| must not exceed the sum of |remaining|, in which case no party
// receives more than its remaining capacity.
func apportion(remaining []int, seats int) []int {
	var spaces int
	for _, r := range remaining {
		spaces += r
	}
	var out = make([]int, len(remaining))
	if spaces == 0 {
		return out
	}

	var (
		remainders = make([]int, len(remaining))
		order      = make([]int, len(remaining))
		needed     = seats
	)
	for i, r := range remaining {
		var num = r * seats
		out[i], remainders[i] = num/spaces, num%spaces
		order[i] = i
		needed -= out[i]
	}
	sort.SliceStable(order, func(i, j int) bool {
		return remainders[order[i]] > remainders[order[j]]
	})
	for _, i := range order[:needed] {
		out[i]++
	}
	return out
}
