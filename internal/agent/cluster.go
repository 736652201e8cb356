package agent

import (
	"math"
	"math/rand"
)

const (
	// clusterMinDraws is the minimum history needed before the
	// structural reward component is computed at all.
	clusterMinDraws = 50
	// clusterIterations bounds the k-means refinement loop.
	clusterIterations = 25
)

// sumProduct reduces a number set to its (sum, product) pair. The
// product is scaled down so the two axes stay within a few orders of
// magnitude of each other before PCA.
func sumProduct(numbers []int) [2]float64 {
	sum := 0.0
	product := 1.0
	for _, n := range numbers {
		sum += float64(n)
		product *= float64(n)
	}
	return [2]float64{sum, product / 1e6}
}

// clustering is a fitted PCA projection plus k-means partition of
// historical (sum, product) points.
type clustering struct {
	mean      [2]float64
	axes      [2][2]float64 // principal axes, rows
	centroids [][2]float64
	sizes     []int
	total     int
}

// fitClustering projects the points onto their two principal axes and
// partitions them with k-means, k = min(5, n/10). Returns nil when the
// data is degenerate.
func fitClustering(points [][2]float64) *clustering {
	n := len(points)
	if n < clusterMinDraws {
		return nil
	}

	c := &clustering{total: n}
	for _, p := range points {
		c.mean[0] += p[0]
		c.mean[1] += p[1]
	}
	c.mean[0] /= float64(n)
	c.mean[1] /= float64(n)

	// 2x2 covariance and its eigenvectors in closed form.
	var cxx, cxy, cyy float64
	for _, p := range points {
		dx := p[0] - c.mean[0]
		dy := p[1] - c.mean[1]
		cxx += dx * dx
		cxy += dx * dy
		cyy += dy * dy
	}
	cxx /= float64(n - 1)
	cxy /= float64(n - 1)
	cyy /= float64(n - 1)

	trace := cxx + cyy
	det := cxx*cyy - cxy*cxy
	disc := trace*trace/4 - det
	if disc < 0 {
		disc = 0
	}
	l1 := trace/2 + math.Sqrt(disc)
	l2 := trace/2 - math.Sqrt(disc)
	c.axes[0] = eigenvector(cxx, cxy, cyy, l1)
	c.axes[1] = eigenvector(cxx, cxy, cyy, l2)

	projected := make([][2]float64, n)
	for i, p := range points {
		projected[i] = c.project(p)
	}

	k := n / 10
	if k > 5 {
		k = 5
	}
	if k < 1 {
		k = 1
	}

	rng := rand.New(rand.NewSource(int64(n)))
	c.centroids = make([][2]float64, k)
	for i, idx := range rng.Perm(n)[:k] {
		c.centroids[i] = projected[idx]
	}
	c.sizes = make([]int, k)

	assign := make([]int, n)
	for iter := 0; iter < clusterIterations; iter++ {
		changed := false
		for i, p := range projected {
			best := nearestCentroid(c.centroids, p)
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		sums := make([][2]float64, k)
		counts := make([]int, k)
		for i, p := range projected {
			sums[assign[i]][0] += p[0]
			sums[assign[i]][1] += p[1]
			counts[assign[i]]++
		}
		for j := 0; j < k; j++ {
			if counts[j] > 0 {
				c.centroids[j][0] = sums[j][0] / float64(counts[j])
				c.centroids[j][1] = sums[j][1] / float64(counts[j])
			}
		}
		copy(c.sizes, counts)
		if !changed && iter > 0 {
			break
		}
	}

	return c
}

func eigenvector(cxx, cxy, cyy, lambda float64) [2]float64 {
	// (cxx - lambda)x + cxy*y = 0
	v := [2]float64{cxy, lambda - cxx}
	if math.Abs(v[0]) < 1e-12 && math.Abs(v[1]) < 1e-12 {
		v = [2]float64{1, 0}
	}
	norm := math.Hypot(v[0], v[1])
	return [2]float64{v[0] / norm, v[1] / norm}
}

func (c *clustering) project(p [2]float64) [2]float64 {
	dx := p[0] - c.mean[0]
	dy := p[1] - c.mean[1]
	return [2]float64{
		dx*c.axes[0][0] + dy*c.axes[0][1],
		dx*c.axes[1][0] + dy*c.axes[1][1],
	}
}

func nearestCentroid(centroids [][2]float64, p [2]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for j, cen := range centroids {
		d := math.Hypot(p[0]-cen[0], p[1]-cen[1])
		if d < bestDist {
			bestDist = d
			best = j
		}
	}
	return best
}

// share returns the fraction of historical draws falling in the same
// cluster as the given candidate set's (sum, product) point.
func (c *clustering) share(point [2]float64) float64 {
	if c == nil || c.total == 0 {
		return 0
	}
	j := nearestCentroid(c.centroids, c.project(point))
	return float64(c.sizes[j]) / float64(c.total)
}
