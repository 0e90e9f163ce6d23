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
	"fmt"

	"github.com/juju/errors"
	"github.com/samber/lo"
)

// Missing marks a cell without rating.
const Missing = -1.0

// RatingMatrix is a dense users × items matrix of explicit ratings. Cells
// equal to Missing have no rating. The shape is fixed after construction
// but ratings might be overwritten by predictions.
//
// RatingMatrix is not safe for concurrent use.
type RatingMatrix struct {
	numUsers  int
	numItems  int
	minRating float64
	maxRating float64
	ratings   [][]float64
}

// NewRatingMatrix creates a rating matrix from rows of ratings. Rows are
// copied. All rows must have the same length.
func NewRatingMatrix(minRating, maxRating float64, rows [][]float64) (*RatingMatrix, error) {
	if minRating > maxRating {
		return nil, errors.NotValidf("rating range [%v, %v]", minRating, maxRating)
	}
	m := &RatingMatrix{
		numUsers:  len(rows),
		minRating: minRating,
		maxRating: maxRating,
		ratings:   make([][]float64, len(rows)),
	}
	if len(rows) > 0 {
		m.numItems = len(rows[0])
	}
	for i, row := range rows {
		if len(row) != m.numItems {
			return nil, errors.NotValidf("row %d with %d ratings (expected %d)", i, len(row), m.numItems)
		}
		m.ratings[i] = append([]float64(nil), row...)
	}
	return m, nil
}

func (m *RatingMatrix) CountUsers() int {
	return m.numUsers
}

func (m *RatingMatrix) CountItems() int {
	return m.numItems
}

func (m *RatingMatrix) MinRating() float64 {
	return m.minRating
}

func (m *RatingMatrix) MaxRating() float64 {
	return m.maxRating
}

// Rating returns the rating of a user to an item, Missing if not rated.
func (m *RatingMatrix) Rating(user, item int) float64 {
	m.checkBounds(user, item)
	return m.ratings[user][item]
}

// SetRating overwrites the rating of a user to an item.
func (m *RatingMatrix) SetRating(user, item int, value float64) {
	m.checkBounds(user, item)
	m.ratings[user][item] = value
}

// IsMissing checks whether a user has not rated an item.
func (m *RatingMatrix) IsMissing(user, item int) bool {
	m.checkBounds(user, item)
	return m.ratings[user][item] == Missing
}

// UserMean returns the mean of all ratings given by a user. It returns 0 if
// the user has not rated anything.
func (m *RatingMatrix) UserMean(user int) float64 {
	m.checkUser(user)
	sum, count := 0.0, 0
	for _, rating := range m.ratings[user] {
		if rating != Missing {
			sum += rating
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// Row returns a copy of the ratings given by a user.
func (m *RatingMatrix) Row(user int) []float64 {
	m.checkUser(user)
	return append([]float64(nil), m.ratings[user]...)
}

// CountMissing returns the number of cells without rating.
func (m *RatingMatrix) CountMissing() int {
	return lo.SumBy(m.ratings, func(row []float64) int {
		return lo.Count(row, Missing)
	})
}

// CountOutOfRange returns the number of ratings outside [MinRating, MaxRating].
func (m *RatingMatrix) CountOutOfRange() int {
	return lo.SumBy(m.ratings, func(row []float64) int {
		return lo.CountBy(row, func(rating float64) bool {
			return rating != Missing && (rating < m.minRating || rating > m.maxRating)
		})
	})
}

// Clone returns a deep copy of the matrix.
func (m *RatingMatrix) Clone() *RatingMatrix {
	return &RatingMatrix{
		numUsers:  m.numUsers,
		numItems:  m.numItems,
		minRating: m.minRating,
		maxRating: m.maxRating,
		ratings: lo.Map(m.ratings, func(row []float64, _ int) []float64 {
			return append([]float64(nil), row...)
		}),
	}
}

// ValidUser checks whether user is a row of the matrix.
func (m *RatingMatrix) ValidUser(user int) bool {
	return user >= 0 && user < m.numUsers
}

// ValidItem checks whether item is a column of the matrix.
func (m *RatingMatrix) ValidItem(item int) bool {
	return item >= 0 && item < m.numItems
}

func (m *RatingMatrix) checkUser(user int) {
	if !m.ValidUser(user) {
		panic(fmt.Sprintf("dataset: user %d out of range [0, %d)", user, m.numUsers))
	}
}

func (m *RatingMatrix) checkBounds(user, item int) {
	m.checkUser(user)
	if !m.ValidItem(item) {
		panic(fmt.Sprintf("dataset: item %d out of range [0, %d)", item, m.numItems))
	}
}
