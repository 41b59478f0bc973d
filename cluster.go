package blindspot

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NoiseLabel marks an article that does not meet the density
// requirements of any cluster.
const NoiseLabel = -1

// Default clustering parameters.
const (
	DefaultEps        = 0.3
	DefaultMinSamples = 3
)

// ClusterEngine groups embedding vectors with DBSCAN over cosine
// distance: two points are in range when 1 - cos(a, b) <= Eps, and a
// point is a cluster core when at least MinSamples points (itself
// included) lie in range. Border points join a core's cluster but do
// not propagate membership.
type ClusterEngine struct {
	Eps        float64
	MinSamples int
}

// Cluster labels each vector with a cluster ID, one label per input in
// input order. NoiseLabel (-1) marks noise; non-negative labels are
// assigned in discovery order and carry no meaning across parameter
// sets. The result is deterministic for identical input.
func (e ClusterEngine) Cluster(vectors [][]float64) []int {
	labels := make([]int, len(vectors))
	for i := range labels {
		labels[i] = NoiseLabel
	}
	minSamples := e.MinSamples
	if minSamples < 1 {
		minSamples = 1
	}

	visited := make([]bool, len(vectors))
	next := 0
	for i := range vectors {
		if visited[i] {
			continue
		}
		visited[i] = true
		neighbors := e.regionQuery(vectors, i)
		if len(neighbors) < minSamples {
			continue // noise, unless claimed as a border point later
		}
		e.expand(vectors, i, neighbors, next, minSamples, visited, labels)
		next++
	}
	return labels
}

// regionQuery returns the indices within Eps of vectors[i]. The point
// itself is included when its self-distance is in range, which fails
// only for zero vectors: those stay neighborless and end up as noise.
func (e ClusterEngine) regionQuery(vectors [][]float64, i int) []int {
	var neighbors []int
	for j := range vectors {
		if CosineDistance(vectors[i], vectors[j]) <= e.Eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

// expand grows one cluster from a core point by core-point
// reachability.
func (e ClusterEngine) expand(vectors [][]float64, i int, seeds []int, cluster, minSamples int, visited []bool, labels []int) {
	labels[i] = cluster
	for k := 0; k < len(seeds); k++ {
		j := seeds[k]
		if !visited[j] {
			visited[j] = true
			neighbors := e.regionQuery(vectors, j)
			if len(neighbors) >= minSamples {
				seeds = append(seeds, neighbors...)
			}
		}
		if labels[j] == NoiseLabel {
			labels[j] = cluster
		}
	}
}

// CountLabels tallies the non-noise clusters and the noise points in a
// label slice.
func CountLabels(labels []int) (clusters, noise int) {
	maxLabel := -1
	for _, l := range labels {
		if l == NoiseLabel {
			noise++
		} else if l > maxLabel {
			maxLabel = l
		}
	}
	return maxLabel + 1, noise
}

// CosineSimilarity computes the cosine of the angle between two
// vectors. Mismatched lengths and zero vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	normA := math.Sqrt(floats.Dot(a, a))
	normB := math.Sqrt(floats.Dot(b, b))
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(a, b) / (normA * normB)
}

// CosineDistance is 1 - CosineSimilarity, the clustering metric.
// Embedding vectors encode meaning in their direction, not their
// magnitude, so angular distance separates stories better than
// euclidean distance would.
func CosineDistance(a, b []float64) float64 {
	return 1 - CosineSimilarity(a, b)
}

// SuggestEps estimates an eps value from the k-distance graph: each
// point's distance to its k-th nearest neighbor is collected, and a
// size-dependent percentile of the sorted distances is taken, bounded
// by the distribution's mean and standard deviation. Purely advisory;
// the engine never calls it.
func SuggestEps(vectors [][]float64, k int) float64 {
	n := len(vectors)
	if n < 2 {
		return DefaultEps
	}
	if k < 1 {
		k = 1
	}

	kDistances := make([]float64, n)
	for i := range vectors {
		distances := make([]float64, 0, n-1)
		for j := range vectors {
			if i != j {
				distances = append(distances, CosineDistance(vectors[i], vectors[j]))
			}
		}
		sort.Float64s(distances)
		idx := k - 1
		if idx >= len(distances) {
			idx = len(distances) - 1
		}
		kDistances[i] = distances[idx]
	}
	sort.Float64s(kDistances)

	// Smaller datasets need a higher percentile to avoid
	// over-fragmentation.
	percentile := 0.15
	switch {
	case n < 20:
		percentile = 0.3
	case n < 50:
		percentile = 0.25
	}
	idx := int(float64(n) * percentile)
	if idx >= n {
		idx = n - 1
	}
	if idx < 1 {
		idx = 1
	}
	eps := kDistances[idx]

	mean := stat.Mean(kDistances, nil)
	sd := stat.StdDev(kDistances, nil)
	minEps := math.Max(0.03, mean-2*sd)
	maxEps := math.Min(0.35, mean+sd)
	if eps < minEps {
		eps = minEps
	} else if eps > maxEps {
		eps = maxEps
	}
	return eps
}
