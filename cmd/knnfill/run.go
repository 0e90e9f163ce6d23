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
	"fmt"
	"io"
	"os"

	"github.com/gorse-io/knnfill/base/log"
	"github.com/gorse-io/knnfill/config"
	"github.com/gorse-io/knnfill/dataset"
	"github.com/gorse-io/knnfill/model/knn"
	"github.com/gorse-io/knnfill/report"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

var (
	metricNames = map[knn.Metric]string{
		knn.Pearson:   "Pearson correlation",
		knn.Cosine:    "Cosine similarity",
		knn.Euclidean: "Euclidean distance",
	}
	formulaNames = map[knn.Formula]string{
		knn.Simple:       "Simple prediction",
		knn.MeanCentered: "Difference with the mean",
	}
)

func run(w io.Writer, conf *config.Config, m *dataset.RatingMatrix, showProgress bool) error {
	engineConfig, err := conf.EngineConfig()
	if err != nil {
		return errors.Trace(err)
	}
	engine, err := knn.NewEngine(m, engineConfig)
	if err != nil {
		return errors.Trace(err)
	}
	// parse the template before any work is done
	var traceWriter *report.TraceWriter
	if conf.Report.TracePath != "" {
		if traceWriter, err = report.LoadTraceWriter(conf.Report.TraceTemplate); err != nil {
			return errors.Trace(err)
		}
	}
	maxSize := conf.Report.MaxDisplaySize

	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, "RECOMMENDER SYSTEM - COLLABORATIVE FILTERING")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, "\n=== CONFIGURATION ===")
	fmt.Fprintf(w, "Metric: %s\n", metricNames[engineConfig.Metric])
	fmt.Fprintf(w, "Number of neighbors: %d\n", engineConfig.K)
	fmt.Fprintf(w, "Prediction: %s\n", formulaNames[engineConfig.Formula])
	fmt.Fprintf(w, "Fill mode: %s\n", engineConfig.Mode)

	fmt.Fprintln(w, "\n=== UTILITY MATRIX ===")
	if err = report.PrintMatrix(w, m, nil, maxSize); err != nil {
		return errors.Trace(err)
	}

	fmt.Fprintln(w, "\n=== SIMILARITIES ===")
	if err = engine.Fit(); err != nil {
		return errors.Trace(err)
	}
	sims, err := engine.Similarities()
	if err != nil {
		return errors.Trace(err)
	}
	if err = report.PrintSimilarities(w, sims, maxSize); err != nil {
		return errors.Trace(err)
	}

	fmt.Fprintln(w, "\n=== PREDICTIONS ===")
	var onPredict func(*knn.Trace)
	if showProgress {
		bar := progressbar.NewOptions(m.CountMissing(),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Predicting missing ratings"),
			progressbar.OptionClearOnFinish())
		onPredict = func(*knn.Trace) {
			_ = bar.Add(1)
		}
		defer func() { _ = bar.Finish() }()
	}
	result, err := engine.Fill(onPredict)
	if err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintf(w, "Predicted %d missing ratings\n", result.Count())
	if traceWriter != nil {
		if err = traceWriter.WriteFile(conf.Report.TracePath, m.CountUsers(), result); err != nil {
			return errors.Trace(err)
		}
		fmt.Fprintf(w, "Prediction trace written to %s\n", conf.Report.TracePath)
	}

	fmt.Fprintln(w, "\n=== UTILITY MATRIX WITH PREDICTIONS ===")
	if err = report.PrintMatrix(w, m, result, maxSize); err != nil {
		return errors.Trace(err)
	}

	if conf.Report.TopN > 0 {
		fmt.Fprintln(w, "\n=== RECOMMENDATIONS ===")
		for user := 0; user < m.CountUsers(); user++ {
			recommendations, err := engine.Recommend(user, conf.Report.TopN)
			if err != nil {
				return errors.Trace(err)
			}
			if err = report.PrintRecommendations(w, user, recommendations); err != nil {
				return errors.Trace(err)
			}
		}
	}

	if conf.Metrics.File != "" {
		if err = prometheus.WriteToTextfile(conf.Metrics.File, prometheus.DefaultGatherer); err != nil {
			return errors.Annotatef(err, "failed to write metrics to %s", conf.Metrics.File)
		}
		log.Logger().Info("write metrics", zap.String("path", conf.Metrics.File))
	}
	return nil
}
