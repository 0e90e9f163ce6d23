// Copyright 2023 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package knn

import (
	"math"
	"strings"

	"github.com/gorse-io/knnfill/dataset"
	"github.com/juju/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metric selects the similarity function between users.
type Metric int

const (
	Pearson Metric = iota
	Cosine
	Euclidean
)

func (m Metric) String() string {
	switch m {
	case Pearson:
		return "pearson"
	case Cosine:
		return "cosine"
	case Euclidean:
		return "euclidean"
	default:
		return "unknown"
	}
}

// ParseMetric parses the name of a metric.
func ParseMetric(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pearson":
		return Pearson, nil
	case "cosine":
		return Cosine, nil
	case "euclidean":
		return Euclidean, nil
	default:
		return 0, errors.NotValidf("metric %q (use pearson, cosine or euclidean)", name)
	}
}

// coRated collects the ratings of two users on items rated by both of them.
func coRated(m *dataset.RatingMatrix, u1, u2 int) (x, y []float64) {
	for i := 0; i < m.CountItems(); i++ {
		if !m.IsMissing(u1, i) && !m.IsMissing(u2, i) {
			x = append(x, m.Rating(u1, i))
			y = append(y, m.Rating(u2, i))
		}
	}
	return
}

// Similarity computes the similarity between two users over their co-rated
// items. Degenerate cases (too few co-rated items, zero variance or zero
// norm) return 0.
func Similarity(m *dataset.RatingMatrix, metric Metric, u1, u2 int) float64 {
	x, y := coRated(m, u1, u2)
	switch metric {
	case Pearson:
		return pearson(x, y)
	case Cosine:
		return cosine(x, y)
	case Euclidean:
		return euclidean(x, y)
	default:
		return 0
	}
}

// pearson computes the Pearson correlation coefficient. Means are taken over
// the co-rated items only.
func pearson(x, y []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	meanX, meanY := stat.Mean(x, nil), stat.Mean(y, nil)
	l, m, n := .0, .0, .0
	for i := range x {
		dx, dy := x[i]-meanX, y[i]-meanY
		l += dx * dy
		m += dx * dx
		n += dy * dy
	}
	denominator := math.Sqrt(m * n)
	if denominator > 0 {
		return l / denominator
	}
	return 0
}

func cosine(x, y []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	m, n := floats.Dot(x, x), floats.Dot(y, y)
	denominator := math.Sqrt(m * n)
	if denominator > 0 {
		return floats.Dot(x, y) / denominator
	}
	return 0
}

// euclidean converts the euclidean distance into a similarity in (0, 1].
func euclidean(x, y []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return 1 / (1 + floats.Distance(x, y, 2))
}

// SimilarityTable holds the similarities between every pair of users.
type SimilarityTable struct {
	metric Metric
	sims   [][]float64
}

// NewSimilarityTable computes the similarity of every ordered pair of
// distinct users. sim(i, j) and sim(j, i) are computed separately. The matrix
// must not contain predictions yet.
func NewSimilarityTable(m *dataset.RatingMatrix, metric Metric) *SimilarityTable {
	n := m.CountUsers()
	table := &SimilarityTable{metric: metric, sims: make([][]float64, n)}
	for i := range table.sims {
		table.sims[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				table.sims[i][j] = Similarity(m, metric, i, j)
			}
		}
	}
	return table
}

func (t *SimilarityTable) Metric() Metric {
	return t.metric
}

func (t *SimilarityTable) CountUsers() int {
	return len(t.sims)
}

// At returns the similarity between two users. The similarity of a user to
// itself is 1.
func (t *SimilarityTable) At(i, j int) float64 {
	if i == j {
		return 1
	}
	return t.sims[i][j]
}

// Raw returns the stored similarity. Diagonal entries are never computed and
// stay 0.
func (t *SimilarityTable) Raw(i, j int) float64 {
	return t.sims[i][j]
}
