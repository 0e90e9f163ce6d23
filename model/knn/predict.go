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
)

// Formula selects how neighbor ratings are aggregated into a prediction.
type Formula int

const (
	// Simple is the similarity weighted average of neighbor ratings.
	Simple Formula = iota
	// MeanCentered adds the weighted average deviation of neighbors from
	// their own means to the mean of the user.
	MeanCentered
)

func (f Formula) String() string {
	switch f {
	case Simple:
		return "simple"
	case MeanCentered:
		return "mean"
	default:
		return "unknown"
	}
}

// ParseFormula parses the name of a prediction formula.
func ParseFormula(name string) (Formula, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "simple":
		return Simple, nil
	case "mean", "mean_centered":
		return MeanCentered, nil
	default:
		return 0, errors.NotValidf("prediction %q (use simple or mean)", name)
	}
}

// Fallback tells why a prediction did not come from neighbors.
type Fallback string

const (
	NoFallback  Fallback = "none"
	NoNeighbors Fallback = "no_neighbors"
	ZeroWeight  Fallback = "zero_weight"
)

// Neighbor is a user who rated the target item.
type Neighbor struct {
	User       int
	Similarity float64
	Rating     float64
}

// Prediction is a predicted rating with the terms it was computed from.
type Prediction struct {
	Formula Formula
	Value   float64
	// Numerator is Σ(sim·r) for Simple and Σ(sim·(r-mean)) for MeanCentered.
	Numerator float64
	// Denominator is Σ|sim|.
	Denominator float64
	UserMean    float64
	// Adjustment is Numerator/Denominator for MeanCentered, 0 otherwise.
	Adjustment float64
	Clamped    bool
	Fallback   Fallback
}

func predict(m *dataset.RatingMatrix, formula Formula, user int, neighbors []Neighbor) Prediction {
	switch formula {
	case MeanCentered:
		return predictMeanCentered(m, user, neighbors)
	default:
		return predictSimple(m, user, neighbors)
	}
}

func predictSimple(m *dataset.RatingMatrix, user int, neighbors []Neighbor) Prediction {
	p := Prediction{Formula: Simple, UserMean: m.UserMean(user), Fallback: NoFallback}
	if len(neighbors) == 0 {
		p.Value, p.Fallback = p.UserMean, NoNeighbors
		return p
	}
	for _, n := range neighbors {
		p.Numerator += n.Similarity * n.Rating
		p.Denominator += math.Abs(n.Similarity)
	}
	if p.Denominator > 0 {
		p.Value = p.Numerator / p.Denominator
	} else {
		p.Value, p.Fallback = p.UserMean, ZeroWeight
	}
	return p
}

func predictMeanCentered(m *dataset.RatingMatrix, user int, neighbors []Neighbor) Prediction {
	p := Prediction{Formula: MeanCentered, UserMean: m.UserMean(user), Fallback: NoFallback}
	if len(neighbors) == 0 {
		p.Value, p.Fallback = p.UserMean, NoNeighbors
		return p
	}
	for _, n := range neighbors {
		p.Numerator += n.Similarity * (n.Rating - m.UserMean(n.User))
		p.Denominator += math.Abs(n.Similarity)
	}
	if p.Denominator > 0 {
		p.Adjustment = p.Numerator / p.Denominator
	} else {
		p.Fallback = ZeroWeight
	}
	p.Value = p.UserMean + p.Adjustment
	if clamped := math.Max(m.MinRating(), math.Min(m.MaxRating(), p.Value)); clamped != p.Value {
		p.Value, p.Clamped = clamped, true
	}
	return p
}
