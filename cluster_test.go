package blindspot

import (
	"math"
	"testing"
)

func TestClusterTwoCloseOneFar(t *testing.T) {
	vectors := [][]float64{
		{1, 0},
		{1, 0.01},
		{0, 1},
	}
	labels := ClusterEngine{Eps: 0.05, MinSamples: 2}.Cluster(vectors)
	want := []int{0, 0, -1}
	if len(labels) != len(want) {
		t.Fatalf("got %d labels, want %d", len(labels), len(want))
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("labels = %v, want %v", labels, want)
			break
		}
	}
}

func TestClusterMinSamplesCounts(t *testing.T) {
	// Two tight pairs far from each other. Each point is in range of
	// itself and its partner only.
	vectors := [][]float64{
		{1, 0},
		{1, 0.01},
		{0, 1},
		{0.01, 1},
	}
	tests := []struct {
		name         string
		minSamples   int
		wantClusters int
		wantNoise    int
	}{
		{"pairs qualify", 2, 2, 0},
		{"pairs too small", 3, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels := ClusterEngine{Eps: 0.05, MinSamples: tt.minSamples}.Cluster(vectors)
			clusters, noise := CountLabels(labels)
			if clusters != tt.wantClusters || noise != tt.wantNoise {
				t.Errorf("got %d clusters, %d noise, want %d clusters, %d noise (labels %v)",
					clusters, noise, tt.wantClusters, tt.wantNoise, labels)
			}
		})
	}
}

func TestClusterLabelDomain(t *testing.T) {
	vectors := [][]float64{
		{1, 0}, {0.99, 0.02}, {0.98, 0.05},
		{0, 1}, {0.03, 0.99},
		{-1, 0.5},
	}
	labels := ClusterEngine{Eps: 0.1, MinSamples: 2}.Cluster(vectors)
	clusters, _ := CountLabels(labels)
	for i, l := range labels {
		if l < NoiseLabel || l >= clusters {
			t.Errorf("label %d at index %d outside [-1, %d)", l, i, clusters)
		}
	}
}

func TestClusterZeroVectorIsNoise(t *testing.T) {
	vectors := [][]float64{
		{1, 0},
		{1, 0.01},
		{0, 0},
	}
	labels := ClusterEngine{Eps: 0.05, MinSamples: 2}.Cluster(vectors)
	if labels[2] != NoiseLabel {
		t.Errorf("zero vector got label %d, want noise", labels[2])
	}
	if labels[0] != labels[1] || labels[0] == NoiseLabel {
		t.Errorf("close pair should cluster, got %v", labels)
	}
}

func TestClusterEmptyInput(t *testing.T) {
	labels := ClusterEngine{Eps: 0.3, MinSamples: 3}.Cluster(nil)
	if len(labels) != 0 {
		t.Errorf("got %d labels for empty input", len(labels))
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float64
		b    []float64
		want float64
	}{
		{"identical direction", []float64{1, 0}, []float64{2, 0}, 1.0},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0.0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1.0},
		{"zero vector", []float64{0, 0}, []float64{1, 0}, 0.0},
		{"length mismatch", []float64{1, 0}, []float64{1, 0, 0}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountLabels(t *testing.T) {
	clusters, noise := CountLabels([]int{0, 0, 1, -1, 2, -1})
	if clusters != 3 || noise != 2 {
		t.Errorf("got %d clusters, %d noise, want 3 clusters, 2 noise", clusters, noise)
	}
}

func TestSuggestEpsBounds(t *testing.T) {
	if got := SuggestEps(nil, 3); got != DefaultEps {
		t.Errorf("SuggestEps(nil) = %v, want default %v", got, DefaultEps)
	}

	vectors := make([][]float64, 30)
	for i := range vectors {
		angle := float64(i) * 0.05
		vectors[i] = []float64{math.Cos(angle), math.Sin(angle)}
	}
	got := SuggestEps(vectors, 3)
	if got < 0.03 || got > 0.35 {
		t.Errorf("SuggestEps = %v, outside [0.03, 0.35]", got)
	}
}
