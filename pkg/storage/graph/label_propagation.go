package graph

import "sort"

const maxLabelPropagationIterations = 100

// labelPropagation detects communities in an undirected projection where
// projection[a][b] is the number of edges between a and b. Labels start as
// the rank of each node id. A node adopts the most frequent neighbor label
// when that label has more than one supporting edge, and otherwise moves to
// the larger of its own and the best candidate label, so labels only grow
// and the loop settles. Communities of a single node are dropped.
func labelPropagation(projection map[string]map[string]int) [][]string {
	if len(projection) == 0 {
		return nil
	}

	ids := sortedKeys(projection)
	labels := make(map[string]int, len(ids))
	for i, id := range ids {
		labels[id] = i
	}

	type labelScore struct {
		label int
		count int
	}

	for iteration := 0; iteration < maxLabelPropagationIterations; iteration++ {
		changed := false
		next := make(map[string]int, len(ids))

		for _, id := range ids {
			current := labels[id]

			candidates := make(map[int]int)
			for neighbor, count := range projection[id] {
				if neighbor == id {
					continue
				}
				if label, ok := labels[neighbor]; ok {
					candidates[label] += count
				}
			}

			scores := make([]labelScore, 0, len(candidates))
			for label, count := range candidates {
				scores = append(scores, labelScore{label: label, count: count})
			}
			// Highest count first, larger label breaks ties
			sort.Slice(scores, func(i, j int) bool {
				if scores[i].count != scores[j].count {
					return scores[i].count > scores[j].count
				}
				return scores[i].label > scores[j].label
			})

			updated := current
			if len(scores) > 0 {
				top := scores[0]
				if top.count > 1 || top.label > current {
					updated = top.label
				}
			}
			next[id] = updated
			if updated != current {
				changed = true
			}
		}

		labels = next
		if !changed {
			break
		}
	}

	members := make(map[int][]string)
	for _, id := range ids {
		members[labels[id]] = append(members[labels[id]], id)
	}

	var clusters [][]string
	for _, cluster := range members {
		if len(cluster) > 1 {
			clusters = append(clusters, cluster)
		}
	}
	sort.Slice(clusters, func(i, j int) bool {
		if len(clusters[i]) != len(clusters[j]) {
			return len(clusters[i]) > len(clusters[j])
		}
		return clusters[i][0] < clusters[j][0]
	})
	return clusters
}
