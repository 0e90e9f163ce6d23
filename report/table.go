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
	"fmt"
	"io"
	"strconv"

	"github.com/gorse-io/knnfill/dataset"
	"github.com/gorse-io/knnfill/model/knn"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// TooLarge is printed instead of a matrix with too many rows or columns.
const TooLarge = "Matrix too large, printing results only"

// PredictedMark follows the value of a predicted cell.
const PredictedMark = "*"

func formatRating(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// PrintMatrix renders a rating matrix. Cells filled by result are marked, and
// result might be nil. Matrices with maxSize or more users or items are not
// rendered.
func PrintMatrix(w io.Writer, m *dataset.RatingMatrix, result *knn.FillResult, maxSize int) error {
	if m.CountUsers() >= maxSize || m.CountItems() >= maxSize {
		_, err := fmt.Fprintln(w, TooLarge)
		return errors.Trace(err)
	}
	if _, err := fmt.Fprintf(w, "Users: %d, Items: %d, Range: [%v, %v]\n",
		m.CountUsers(), m.CountItems(), m.MinRating(), m.MaxRating()); err != nil {
		return errors.Trace(err)
	}
	table := tablewriter.NewWriter(w)
	header := append([]string{"User"}, lo.Times(m.CountItems(), func(i int) string {
		return fmt.Sprintf("Item%d", i)
	})...)
	table.Header(header)
	for user := 0; user < m.CountUsers(); user++ {
		row := make([]string, 0, m.CountItems()+1)
		row = append(row, fmt.Sprintf("U%d", user))
		for item := 0; item < m.CountItems(); item++ {
			switch {
			case m.IsMissing(user, item):
				row = append(row, dataset.MissingToken)
			case result != nil && result.Filled(user, item):
				row = append(row, formatRating(m.Rating(user, item))+PredictedMark)
			default:
				row = append(row, formatRating(m.Rating(user, item)))
			}
		}
		if err := table.Append(row); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}

// PrintSimilarities renders the similarity table. The diagonal is printed
// as 1.
func PrintSimilarities(w io.Writer, sims *knn.SimilarityTable, maxSize int) error {
	n := sims.CountUsers()
	if n >= maxSize {
		_, err := fmt.Fprintln(w, TooLarge)
		return errors.Trace(err)
	}
	table := tablewriter.NewWriter(w)
	header := append([]string{"User"}, lo.Times(n, func(i int) string {
		return fmt.Sprintf("U%d", i)
	})...)
	table.Header(header)
	for i := 0; i < n; i++ {
		row := append([]string{fmt.Sprintf("U%d", i)}, lo.Times(n, func(j int) string {
			return formatRating(sims.At(i, j))
		})...)
		if err := table.Append(row); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}

// PrintRecommendations lists the recommended items of a user.
func PrintRecommendations(w io.Writer, user int, recommendations []knn.Recommendation) error {
	if _, err := fmt.Fprintf(w, "User %d (top %d recommended items):\n", user, len(recommendations)); err != nil {
		return errors.Trace(err)
	}
	for i, r := range recommendations {
		if _, err := fmt.Fprintf(w, "  %d. Item %d (rating: %s)\n", i+1, r.Item, formatRating(r.Rating)); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}
