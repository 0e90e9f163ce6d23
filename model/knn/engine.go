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
	"strings"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/knnfill/base/log"
	"github.com/gorse-io/knnfill/common/heap"
	"github.com/gorse-io/knnfill/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// FillMode decides where predictions are read from during a fill pass.
type FillMode int

const (
	// FillInPlace writes each prediction back before the next cell is
	// visited, so cells filled earlier serve as ratings for later cells of
	// the same item.
	FillInPlace FillMode = iota
	// FillSnapshot predicts every cell from the matrix as it was before the
	// pass and writes all predictions at the end.
	FillSnapshot
)

func (f FillMode) String() string {
	switch f {
	case FillInPlace:
		return "in_place"
	case FillSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// ParseFillMode parses the name of a fill mode.
func ParseFillMode(name string) (FillMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "in_place", "inplace", "":
		return FillInPlace, nil
	case "snapshot":
		return FillSnapshot, nil
	default:
		return 0, errors.NotValidf("fill mode %q (use in_place or snapshot)", name)
	}
}

// Config is the configuration of an engine.
type Config struct {
	Metric  Metric
	K       int
	Formula Formula
	Mode    FillMode
}

// Trace records how the prediction of a cell was made.
type Trace struct {
	User       int
	Item       int
	Neighbors  []Neighbor
	Prediction Prediction
}

// FillResult is the outcome of a fill pass.
type FillResult struct {
	// Traces are ordered by user, then by item.
	Traces   []Trace
	numItems int
	filled   *bitset.BitSet
}

// Filled checks whether a cell was filled by the pass.
func (r *FillResult) Filled(user, item int) bool {
	if user < 0 || item < 0 || item >= r.numItems {
		return false
	}
	return r.filled.Test(uint(user*r.numItems + item))
}

// Count returns the number of filled cells.
func (r *FillResult) Count() int {
	return int(r.filled.Count())
}

// UserTraces returns traces of cells filled for a user.
func (r *FillResult) UserTraces(user int) []Trace {
	return lo.Filter(r.Traces, func(t Trace, _ int) bool {
		return t.User == user
	})
}

// Recommendation is an item ranked by its (possibly predicted) rating.
type Recommendation struct {
	Item   int
	Rating float64
}

// Engine fills missing ratings by user-based k nearest neighbors.
//
// Engine is not safe for concurrent use. Fill and Fit must not run at the
// same time.
type Engine struct {
	config  Config
	matrix  *dataset.RatingMatrix
	sims    *SimilarityTable
	written bool
}

// NewEngine creates an engine owning the matrix.
func NewEngine(m *dataset.RatingMatrix, config Config) (*Engine, error) {
	if m == nil {
		return nil, errors.NotValidf("nil matrix")
	}
	if config.K <= 0 {
		return nil, errors.NotValidf("number of neighbors %d", config.K)
	}
	if config.Metric < Pearson || config.Metric > Euclidean {
		return nil, errors.NotValidf("metric %d", config.Metric)
	}
	if config.Formula < Simple || config.Formula > MeanCentered {
		return nil, errors.NotValidf("formula %d", config.Formula)
	}
	if config.Mode < FillInPlace || config.Mode > FillSnapshot {
		return nil, errors.NotValidf("fill mode %d", config.Mode)
	}
	return &Engine{config: config, matrix: m}, nil
}

func (e *Engine) Config() Config {
	return e.config
}

func (e *Engine) Matrix() *dataset.RatingMatrix {
	return e.matrix
}

// Fit computes similarities between all users. It must be called before any
// prediction is written back, otherwise it fails.
func (e *Engine) Fit() error {
	if e.written {
		return errors.Forbiddenf("fit after predictions were written")
	}
	start := time.Now()
	e.sims = NewSimilarityTable(e.matrix, e.config.Metric)
	n := e.matrix.CountUsers()
	SimilarityComputedTotal.WithLabelValues(e.config.Metric.String()).Add(float64(n * max(n-1, 0)))
	elapsed := time.Since(start)
	FitSeconds.Set(elapsed.Seconds())
	log.Logger().Info("fit similarities",
		zap.String("metric", e.config.Metric.String()),
		zap.Int("users", n),
		zap.Duration("elapsed", elapsed))
	return nil
}

// Similarities returns the similarity table, computing it if needed.
func (e *Engine) Similarities() (*SimilarityTable, error) {
	if err := e.ensureFit(); err != nil {
		return nil, errors.Trace(err)
	}
	return e.sims, nil
}

func (e *Engine) ensureFit() error {
	if e.sims != nil {
		return nil
	}
	return e.Fit()
}

func (e *Engine) checkCell(user, item int) error {
	if !e.matrix.ValidUser(user) {
		return errors.NotValidf("user %d out of range [0, %d)", user, e.matrix.CountUsers())
	}
	if !e.matrix.ValidItem(item) {
		return errors.NotValidf("item %d out of range [0, %d)", item, e.matrix.CountItems())
	}
	return nil
}

// Neighbors returns the k users most similar to user among those who rated
// item, ordered by decreasing similarity. Users with equal similarity are
// ordered by ascending id. Fewer than k users are returned if not enough
// users rated the item.
func (e *Engine) Neighbors(user, item, k int) ([]Neighbor, error) {
	if err := e.checkCell(user, item); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, errors.NotValidf("number of neighbors %d", k)
	}
	if err := e.ensureFit(); err != nil {
		return nil, errors.Trace(err)
	}
	return e.neighbors(e.matrix, user, item, k), nil
}

func (e *Engine) neighbors(src *dataset.RatingMatrix, user, item, k int) []Neighbor {
	filter := heap.NewTopKFilter[int, float64](k)
	for other := 0; other < src.CountUsers(); other++ {
		if other != user && !src.IsMissing(other, item) {
			filter.Push(other, e.sims.Raw(user, other))
		}
	}
	return lo.Map(filter.PopAll(), func(elem heap.Elem[int, float64], _ int) Neighbor {
		return Neighbor{User: elem.Value, Similarity: elem.Weight, Rating: src.Rating(elem.Value, item)}
	})
}

// Predict predicts the rating of a user to an item with the configured
// number of neighbors and formula. The matrix is not modified.
func (e *Engine) Predict(user, item int) (*Trace, error) {
	if err := e.checkCell(user, item); err != nil {
		return nil, err
	}
	if err := e.ensureFit(); err != nil {
		return nil, errors.Trace(err)
	}
	return e.predict(e.matrix, user, item), nil
}

func (e *Engine) predict(src *dataset.RatingMatrix, user, item int) *Trace {
	neighbors := e.neighbors(src, user, item, e.config.K)
	p := predict(src, e.config.Formula, user, neighbors)
	PredictionsTotal.WithLabelValues(p.Formula.String()).Inc()
	if p.Fallback != NoFallback {
		FallbacksTotal.WithLabelValues(string(p.Fallback)).Inc()
	}
	if p.Clamped {
		ClampedTotal.Inc()
	}
	return &Trace{User: user, Item: item, Neighbors: neighbors, Prediction: p}
}

// Fill predicts every missing cell, visiting users in ascending order and
// items in ascending order for each user, and writes predictions into the
// matrix. onPredict, if not nil, is called after each cell.
func (e *Engine) Fill(onPredict func(*Trace)) (*FillResult, error) {
	if err := e.ensureFit(); err != nil {
		return nil, errors.Trace(err)
	}
	start := time.Now()
	numUsers, numItems := e.matrix.CountUsers(), e.matrix.CountItems()
	result := &FillResult{
		Traces:   make([]Trace, 0, e.matrix.CountMissing()),
		numItems: numItems,
		filled:   bitset.New(uint(numUsers * numItems)),
	}
	src := e.matrix
	if e.config.Mode == FillSnapshot {
		src = e.matrix.Clone()
	}
	for user := 0; user < numUsers; user++ {
		for item := 0; item < numItems; item++ {
			if !src.IsMissing(user, item) {
				continue
			}
			trace := e.predict(src, user, item)
			if e.config.Mode == FillInPlace {
				e.matrix.SetRating(user, item, trace.Prediction.Value)
				e.written = true
			}
			result.filled.Set(uint(user*numItems + item))
			result.Traces = append(result.Traces, *trace)
			if onPredict != nil {
				onPredict(trace)
			}
		}
	}
	if e.config.Mode == FillSnapshot {
		for _, trace := range result.Traces {
			e.matrix.SetRating(trace.User, trace.Item, trace.Prediction.Value)
			e.written = true
		}
	}
	elapsed := time.Since(start)
	FillSeconds.Set(elapsed.Seconds())
	FilledCells.Set(float64(result.Count()))
	log.Logger().Info("fill missing ratings",
		zap.String("formula", e.config.Formula.String()),
		zap.String("mode", e.config.Mode.String()),
		zap.Int("k", e.config.K),
		zap.Int("filled", result.Count()),
		zap.Duration("elapsed", elapsed))
	return result, nil
}

// Recommend returns the n items with the highest ratings of a user, ties
// broken by ascending item id. Missing cells are skipped.
func (e *Engine) Recommend(user, n int) ([]Recommendation, error) {
	if !e.matrix.ValidUser(user) {
		return nil, errors.NotValidf("user %d out of range [0, %d)", user, e.matrix.CountUsers())
	}
	if n <= 0 {
		return nil, errors.NotValidf("number of recommendations %d", n)
	}
	filter := heap.NewTopKFilter[int, float64](n)
	for item := 0; item < e.matrix.CountItems(); item++ {
		if !e.matrix.IsMissing(user, item) {
			filter.Push(item, e.matrix.Rating(user, item))
		}
	}
	return lo.Map(filter.PopAll(), func(elem heap.Elem[int, float64], _ int) Recommendation {
		return Recommendation{Item: elem.Value, Rating: elem.Weight}
	}), nil
}
