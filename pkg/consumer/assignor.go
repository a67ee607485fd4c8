package consumer

import (
	"sort"
)

// assignRoundRobin distributes partitions over group members, one topic at
// a time: partition indexes in ascending order are zipped with the topic's
// subscribers cycling in sorted order. Inputs are sorted before use so
// every leader in the same group state computes the same assignment.
//
// subscriptions maps topic to the members subscribed to it;
// partitionsByTopic maps topic to its partition indexes. The result maps
// member to topic to partitions; members that come up empty are still
// present with no topics, so every member receives an assignment blob.
func assignRoundRobin(subscriptions map[string][]string, partitionsByTopic map[string][]int32) map[string]map[string][]int32 {
	assignment := make(map[string]map[string][]int32)
	for _, members := range subscriptions {
		for _, m := range members {
			if _, ok := assignment[m]; !ok {
				assignment[m] = make(map[string][]int32)
			}
		}
	}

	topics := make([]string, 0, len(subscriptions))
	for topic := range subscriptions {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	for _, topic := range topics {
		members := append([]string(nil), subscriptions[topic]...)
		sort.Strings(members)
		if len(members) == 0 {
			continue
		}

		partitions := append([]int32(nil), partitionsByTopic[topic]...)
		sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

		for i, partition := range partitions {
			member := members[i%len(members)]
			assignment[member][topic] = append(assignment[member][topic], partition)
		}
	}

	return assignment
}
