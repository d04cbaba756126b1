// Package cluster implements the clustering pipeline: standardizing numeric
// features, running k-means, and bulk-applying the resulting labels.
package cluster

import (
	"fmt"
	"math"
	"math/rand"
)

// Clusterer labels each row of a standardized feature matrix.
type Clusterer interface {
	FitPredict(matrix [][]float64) ([]int, error)
}

// StandardScale standardizes each column to zero mean and unit variance in
// a freshly-fit pass. Zero-variance columns come out as all zeros.
func StandardScale(matrix [][]float64) [][]float64 {
	n := len(matrix)
	if n == 0 {
		return nil
	}
	cols := len(matrix[0])

	means := make([]float64, cols)
	for _, row := range matrix {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}

	stds := make([]float64, cols)
	for _, row := range matrix {
		for j, v := range row {
			d := v - means[j]
			stds[j] += d * d
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / float64(n))
		if stds[j] == 0 {
			stds[j] = 1
		}
	}

	out := make([][]float64, n)
	for i, row := range matrix {
		scaled := make([]float64, cols)
		for j, v := range row {
			scaled[j] = (v - means[j]) / stds[j]
		}
		out[i] = scaled
	}
	return out
}

// KMeans is a Lloyd's-iteration k-means with k-means++ seeding. The random
// source is seeded per FitPredict call, so labeling is deterministic for a
// given input.
type KMeans struct {
	K             int
	MaxIterations int
	Seed          int64
}

// NewKMeans creates a KMeans clusterer with a fixed seed.
func NewKMeans(k, maxIterations int) *KMeans {
	return &KMeans{K: k, MaxIterations: maxIterations, Seed: 42}
}

// FitPredict clusters the rows of matrix into K groups and returns one
// label per row. It fails when there are fewer rows than clusters.
func (km *KMeans) FitPredict(matrix [][]float64) ([]int, error) {
	n := len(matrix)
	if n < km.K {
		return nil, fmt.Errorf("cannot fit %d clusters on %d rows", km.K, n)
	}

	rng := rand.New(rand.NewSource(km.Seed))
	centroids := km.seedCentroids(matrix, rng)
	labels := make([]int, n)

	maxIter := km.MaxIterations
	if maxIter < 1 {
		maxIter = 1
	}
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, row := range matrix {
			best := nearestCentroid(row, centroids)
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		recomputeCentroids(matrix, labels, centroids)
	}
	return labels, nil
}

// seedCentroids picks initial centroids with k-means++: the first uniformly,
// each subsequent one with probability proportional to its squared distance
// from the nearest already-chosen centroid.
func (km *KMeans) seedCentroids(matrix [][]float64, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, km.K)
	centroids = append(centroids, cloneRow(matrix[rng.Intn(len(matrix))]))

	dists := make([]float64, len(matrix))
	for len(centroids) < km.K {
		var total float64
		for i, row := range matrix {
			d := squaredDistance(row, centroids[len(centroids)-1])
			if len(centroids) == 1 || d < dists[i] {
				dists[i] = d
			}
			total += dists[i]
		}

		if total == 0 {
			centroids = append(centroids, cloneRow(matrix[rng.Intn(len(matrix))]))
			continue
		}
		target := rng.Float64() * total
		var acc float64
		chosen := len(matrix) - 1
		for i, d := range dists {
			acc += d
			if acc >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, cloneRow(matrix[chosen]))
	}
	return centroids
}

func nearestCentroid(row []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		d := squaredDistance(row, centroid)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

func recomputeCentroids(matrix [][]float64, labels []int, centroids [][]float64) {
	cols := len(matrix[0])
	counts := make([]int, len(centroids))
	sums := make([][]float64, len(centroids))
	for c := range sums {
		sums[c] = make([]float64, cols)
	}
	for i, row := range matrix {
		c := labels[i]
		counts[c]++
		for j, v := range row {
			sums[c][j] += v
		}
	}
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		for j := 0; j < cols; j++ {
			centroids[c][j] = sums[c][j] / float64(counts[c])
		}
	}
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func cloneRow(row []float64) []float64 {
	out := make([]float64, len(row))
	copy(out, row)
	return out
}
