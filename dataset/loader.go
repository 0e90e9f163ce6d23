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

package dataset

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gorse-io/knnfill/base/log"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// MissingToken is the token of a missing rating in a utility matrix file.
const MissingToken = "-"

// LoadMatrix loads a utility matrix from a file. The first line is the
// minimum rating, the second line is the maximum rating, and each of the
// following non-blank lines holds the ratings of one user separated by
// whitespaces, with "-" for missing ratings.
func LoadMatrix(path string) (*RatingMatrix, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	m, err := ReadMatrix(file)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to load %s", path)
	}
	log.Logger().Info("load utility matrix",
		zap.String("path", path),
		zap.Int("users", m.CountUsers()),
		zap.Int("items", m.CountItems()),
		zap.Int("missing", m.CountMissing()))
	return m, nil
}

// ReadMatrix parses a utility matrix. See LoadMatrix for the format.
func ReadMatrix(r io.Reader) (*RatingMatrix, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNumber := 0
	readHeader := func(name string) (float64, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, errors.Trace(err)
			}
			return 0, errors.NotValidf("missing %s rating", name)
		}
		lineNumber++
		value, err := strconv.ParseFloat(strings.TrimSpace(scanner.Text()), 64)
		if err != nil {
			return 0, errors.Annotatef(err, "line %d: invalid %s rating", lineNumber, name)
		}
		return value, nil
	}
	minRating, err := readHeader("minimum")
	if err != nil {
		return nil, err
	}
	maxRating, err := readHeader("maximum")
	if err != nil {
		return nil, err
	}

	var rows [][]float64
	for scanner.Scan() {
		lineNumber++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		row := make([]float64, len(fields))
		for i, field := range fields {
			if field == MissingToken {
				row[i] = Missing
				continue
			}
			row[i], err = strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Annotatef(err, "line %d: invalid rating %q", lineNumber, field)
			}
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, errors.NotValidf("line %d with %d ratings (expected %d)", lineNumber, len(row), len(rows[0]))
		}
		rows = append(rows, row)
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}

	m, err := NewRatingMatrix(minRating, maxRating, rows)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if n := m.CountOutOfRange(); n > 0 {
		log.Logger().Warn("ratings out of range",
			zap.Int("count", n),
			zap.Float64("min_rating", minRating),
			zap.Float64("max_rating", maxRating))
	}
	return m, nil
}
