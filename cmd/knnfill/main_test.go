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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorse-io/knnfill/config"
	"github.com/gorse-io/knnfill/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMatrix(t *testing.T) *dataset.RatingMatrix {
	m, err := dataset.NewRatingMatrix(1, 5, [][]float64{
		{5, 3, dataset.Missing},
		{4, 3, 2},
		{1, 1, 5},
	})
	require.NoError(t, err)
	return m
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	conf := config.GetDefaultConfig()
	conf.Model.Neighbors = 1
	conf.Report.TracePath = filepath.Join(dir, "predictions.txt")
	conf.Metrics.File = filepath.Join(dir, "knnfill.prom")
	m := newTestMatrix(t)

	var buf bytes.Buffer
	require.NoError(t, run(&buf, conf, m, false))
	text := buf.String()
	assert.Contains(t, text, "Metric: Pearson correlation")
	assert.Contains(t, text, "Number of neighbors: 1")
	assert.Contains(t, text, "Prediction: Simple prediction")
	assert.Contains(t, text, "Predicted 1 missing ratings")
	assert.Contains(t, text, "2.000*")
	assert.Contains(t, text, "User 0 (top 3 recommended items):")
	assert.InDelta(t, 2.0, m.Rating(0, 2), 1e-9)

	trace, err := os.ReadFile(conf.Report.TracePath)
	require.NoError(t, err)
	assert.Contains(t, string(trace), "Calculation: (2.000) / (1.000) = 2.000")

	metrics, err := os.ReadFile(conf.Metrics.File)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "knnfill_engine_predictions_total")
}

func TestRunWithoutTrace(t *testing.T) {
	conf := config.GetDefaultConfig()
	conf.Model.Metric = "euclidean"
	conf.Model.Prediction = "mean"
	conf.Report.TracePath = ""
	conf.Report.TopN = 0

	var buf bytes.Buffer
	require.NoError(t, run(&buf, conf, newTestMatrix(t), false))
	assert.Contains(t, buf.String(), "Metric: Euclidean distance")
	assert.Contains(t, buf.String(), "Prediction: Difference with the mean")
	assert.NotContains(t, buf.String(), "Prediction trace written")
	assert.NotContains(t, buf.String(), "RECOMMENDATIONS")
}

func TestRunInvalidTemplate(t *testing.T) {
	conf := config.GetDefaultConfig()
	conf.Report.TracePath = filepath.Join(t.TempDir(), "predictions.txt")
	conf.Report.TraceTemplate = filepath.Join(t.TempDir(), "missing.j2")
	m := newTestMatrix(t)
	assert.Error(t, run(&bytes.Buffer{}, conf, m, false))
	// nothing is predicted when the template cannot be loaded
	assert.True(t, m.IsMissing(0, 2))
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCommand.SetOut(&buf)
	rootCommand.SetArgs([]string{"version"})
	require.NoError(t, rootCommand.Execute())
	assert.Contains(t, buf.String(), "Version:")
}
