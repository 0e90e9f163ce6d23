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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelMetric   = "metric"
	LabelFormula  = "formula"
	LabelFallback = "fallback"
)

var (
	SimilarityComputedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "knnfill",
		Subsystem: "engine",
		Name:      "similarity_computed_total",
	}, []string{LabelMetric})
	FitSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "knnfill",
		Subsystem: "engine",
		Name:      "fit_seconds",
	})
	PredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "knnfill",
		Subsystem: "engine",
		Name:      "predictions_total",
	}, []string{LabelFormula})
	FallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "knnfill",
		Subsystem: "engine",
		Name:      "fallbacks_total",
	}, []string{LabelFallback})
	ClampedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "knnfill",
		Subsystem: "engine",
		Name:      "clamped_total",
	})
	FillSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "knnfill",
		Subsystem: "engine",
		Name:      "fill_seconds",
	})
	FilledCells = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "knnfill",
		Subsystem: "engine",
		Name:      "filled_cells",
	})
)
