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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gorse-io/knnfill/model/knn"
	"github.com/juju/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig("config.toml.template", nil)
	require.NoError(t, err)
	// [model]
	assert.Equal(t, "cosine", config.Model.Metric)
	assert.Equal(t, 2, config.Model.Neighbors)
	assert.Equal(t, "mean", config.Model.Prediction)
	// [fill]
	assert.Equal(t, "snapshot", config.Fill.Mode)
	// [report]
	assert.Equal(t, "trace.txt", config.Report.TracePath)
	assert.Equal(t, "", config.Report.TraceTemplate)
	assert.Equal(t, 3, config.Report.TopN)
	assert.Equal(t, 10, config.Report.MaxDisplaySize)
	// [metrics]
	assert.Equal(t, "knnfill.prom", config.Metrics.File)

	engineConfig, err := config.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, knn.Config{Metric: knn.Cosine, K: 2, Formula: knn.MeanCentered, Mode: knn.FillSnapshot}, engineConfig)
}

func TestLoadDefaultConfig(t *testing.T) {
	config, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), config)

	engineConfig, err := config.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, knn.Config{Metric: knn.Pearson, K: 3, Formula: knn.Simple, Mode: knn.FillInPlace}, engineConfig)
}

func TestBindEnv(t *testing.T) {
	t.Setenv("KNNFILL_MODEL_NEIGHBORS", "7")
	t.Setenv("KNNFILL_MODEL_METRIC", "euclidean")
	config, err := LoadConfig("config.toml.template", nil)
	require.NoError(t, err)
	assert.Equal(t, 7, config.Model.Neighbors)
	assert.Equal(t, "euclidean", config.Model.Metric)
	assert.Equal(t, "mean", config.Model.Prediction)
}

func TestBindFlags(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flagSet.StringP("metric", "m", "pearson", "")
	flagSet.IntP("neighbors", "k", 3, "")
	flagSet.StringP("prediction", "p", "simple", "")
	require.NoError(t, flagSet.Parse([]string{"-k", "4", "-p", "simple"}))

	config, err := LoadConfig("config.toml.template", flagSet)
	require.NoError(t, err)
	// changed flags override the file
	assert.Equal(t, 4, config.Model.Neighbors)
	assert.Equal(t, "simple", config.Model.Prediction)
	// unchanged flags do not
	assert.Equal(t, "cosine", config.Model.Metric)
}

func TestValidate(t *testing.T) {
	config := GetDefaultConfig()
	assert.NoError(t, config.Validate())

	config.Model.Neighbors = 0
	err := config.Validate()
	assert.True(t, errors.IsNotValid(err))
	assert.ErrorContains(t, err, "neighbors")

	config = GetDefaultConfig()
	config.Model.Metric = "jaccard"
	err = config.Validate()
	assert.True(t, errors.IsNotValid(err))
	assert.ErrorContains(t, err, "metric")

	config = GetDefaultConfig()
	config.Fill.Mode = "batch"
	assert.True(t, errors.IsNotValid(config.Validate()))

	config = GetDefaultConfig()
	config.Report.TopN = -1
	assert.True(t, errors.IsNotValid(config.Validate()))
}

func TestLoadInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[model]\nneighbors = -1\n"), 0644))
	_, err := LoadConfig(path, nil)
	assert.True(t, errors.IsNotValid(err))

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"), nil)
	assert.Error(t, err)
}
