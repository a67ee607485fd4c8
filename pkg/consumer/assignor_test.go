package consumer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignRoundRobin(t *testing.T) {
	got := assignRoundRobin(
		map[string][]string{"t": {"m1", "m2"}},
		map[string][]int32{"t": {0, 1, 2, 3, 4}},
	)

	assert.Equal(t, map[string]map[string][]int32{
		"m1": {"t": {0, 2, 4}},
		"m2": {"t": {1, 3}},
	}, got)
}

func TestAssignRoundRobinIsDeterministic(t *testing.T) {
	// Unsorted inputs must not change the outcome.
	a := assignRoundRobin(
		map[string][]string{"t": {"m2", "m1", "m3"}},
		map[string][]int32{"t": {3, 0, 2, 1}},
	)
	b := assignRoundRobin(
		map[string][]string{"t": {"m1", "m3", "m2"}},
		map[string][]int32{"t": {0, 1, 2, 3}},
	)
	assert.Equal(t, a, b)
}

func TestAssignRoundRobinMultipleTopics(t *testing.T) {
	got := assignRoundRobin(
		map[string][]string{
			"a": {"m1", "m2"},
			"b": {"m2"},
		},
		map[string][]int32{
			"a": {0, 1, 2},
			"b": {0, 1},
		},
	)

	assert.Equal(t, map[string]map[string][]int32{
		"m1": {"a": {0, 2}},
		"m2": {"a": {1}, "b": {0, 1}},
	}, got)
}

func TestAssignRoundRobinMoreMembersThanPartitions(t *testing.T) {
	got := assignRoundRobin(
		map[string][]string{"t": {"m1", "m2", "m3"}},
		map[string][]int32{"t": {0}},
	)

	// Trailing members get nothing from this topic but still receive an
	// (empty) assignment.
	assert.Equal(t, map[string]map[string][]int32{
		"m1": {"t": {0}},
		"m2": {},
		"m3": {},
	}, got)
}

// TestAssignRoundRobinTotality checks the fairness envelope over a spread
// of group sizes: every partition assigned exactly once, every member
// holding floor(P/M) or ceil(P/M) partitions.
func TestAssignRoundRobinTotality(t *testing.T) {
	for _, tc := range []struct{ members, partitions int }{
		{1, 1}, {2, 5}, {3, 9}, {4, 10}, {7, 3}, {5, 100},
	} {
		t.Run(fmt.Sprintf("%dm_%dp", tc.members, tc.partitions), func(t *testing.T) {
			members := make([]string, tc.members)
			for i := range members {
				members[i] = fmt.Sprintf("m%03d", i)
			}
			partitions := make([]int32, tc.partitions)
			for i := range partitions {
				partitions[i] = int32(i)
			}

			got := assignRoundRobin(
				map[string][]string{"t": members},
				map[string][]int32{"t": partitions},
			)

			seen := make(map[int32]int)
			floor := tc.partitions / tc.members
			ceil := floor
			if tc.partitions%tc.members != 0 {
				ceil++
			}

			for _, member := range members {
				n := len(got[member]["t"])
				require.True(t, n == floor || n == ceil, "member %s got %d partitions, want %d or %d", member, n, floor, ceil)
				for _, p := range got[member]["t"] {
					seen[p]++
				}
			}

			require.Len(t, seen, tc.partitions, "every partition must be assigned")
			for p, count := range seen {
				require.Equal(t, 1, count, "partition %d assigned %d times", p, count)
			}
		})
	}
}
