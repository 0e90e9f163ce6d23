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

package report

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/gorse-io/knnfill/model/knn"
	"github.com/juju/errors"
	"github.com/nikolalohinski/gonja/v2"
	"github.com/nikolalohinski/gonja/v2/exec"
	"github.com/samber/lo"
)

// DefaultTraceTemplate renders one section per user and, for each filled
// cell, the selected neighbors and the calculation.
const DefaultTraceTemplate = `{% for user in users %}
--- User {{ user.id }} ---
{% for cell in user.cells %}
Prediction for Item {{ cell.item }}:
  Selected neighbors ({{ cell.count }}):
{% for n in cell.neighbors %}    User {{ n.user }} (similarity: {{ n.similarity }}, rating: {{ n.rating }})
{% endfor %}  Calculation: {{ cell.calculation }} = {{ cell.value }}
{% endfor %}{% endfor %}`

// TraceWriter renders prediction traces with a Jinja template.
type TraceWriter struct {
	template *exec.Template
}

// NewTraceWriter parses a trace template. An empty source selects
// DefaultTraceTemplate.
func NewTraceWriter(source string) (*TraceWriter, error) {
	if source == "" {
		source = DefaultTraceTemplate
	}
	template, err := gonja.FromString(source)
	if err != nil {
		return nil, errors.Annotate(err, "failed to parse trace template")
	}
	return &TraceWriter{template: template}, nil
}

// LoadTraceWriter parses a trace template file. An empty path selects
// DefaultTraceTemplate.
func LoadTraceWriter(path string) (*TraceWriter, error) {
	if path == "" {
		return NewTraceWriter("")
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return NewTraceWriter(string(source))
}

// Calculation describes how a prediction was computed.
func Calculation(p knn.Prediction) string {
	switch p.Formula {
	case knn.MeanCentered:
		return fmt.Sprintf("User mean (%s) + adjustment (%s)", formatRating(p.UserMean), formatRating(p.Adjustment))
	default:
		return fmt.Sprintf("(%s) / (%s)", formatRating(p.Numerator), formatRating(p.Denominator))
	}
}

func traceContext(numUsers int, result *knn.FillResult) map[string]any {
	users := lo.Times(numUsers, func(user int) map[string]any {
		cells := lo.Map(result.UserTraces(user), func(t knn.Trace, _ int) map[string]any {
			return map[string]any{
				"item":  t.Item,
				"count": len(t.Neighbors),
				"neighbors": lo.Map(t.Neighbors, func(n knn.Neighbor, _ int) map[string]any {
					return map[string]any{
						"user":       n.User,
						"similarity": formatRating(n.Similarity),
						"rating":     formatRating(n.Rating),
					}
				}),
				"calculation": Calculation(t.Prediction),
				"value":       formatRating(t.Prediction.Value),
				"fallback":    string(t.Prediction.Fallback),
				"clamped":     t.Prediction.Clamped,
			}
		})
		return map[string]any{"id": user, "cells": cells}
	})
	return map[string]any{"users": users, "count": result.Count()}
}

// Write renders the traces of a fill pass over a matrix of numUsers users.
func (tw *TraceWriter) Write(w io.Writer, numUsers int, result *knn.FillResult) error {
	ctx := exec.NewContext(traceContext(numUsers, result))
	if err := tw.template.Execute(w, ctx); err != nil {
		return errors.Annotate(err, "failed to execute trace template")
	}
	return nil
}

// WriteFile renders the traces of a fill pass into a file.
func (tw *TraceWriter) WriteFile(path string, numUsers int, result *knn.FillResult) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	buffered := bufio.NewWriter(file)
	if err = tw.Write(buffered, numUsers, result); err != nil {
		_ = file.Close()
		return errors.Trace(err)
	}
	if err = buffered.Flush(); err != nil {
		_ = file.Close()
		return errors.Trace(err)
	}
	return errors.Trace(file.Close())
}
