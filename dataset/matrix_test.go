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
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMatrix(t *testing.T) *RatingMatrix {
	m, err := NewRatingMatrix(1, 5, [][]float64{
		{5, 3, Missing},
		{4, 3, 2},
		{1, 1, 5},
		{Missing, Missing, Missing},
	})
	require.NoError(t, err)
	return m
}

func TestRatingMatrix(t *testing.T) {
	m := newTestMatrix(t)
	assert.Equal(t, 4, m.CountUsers())
	assert.Equal(t, 3, m.CountItems())
	assert.Equal(t, 1.0, m.MinRating())
	assert.Equal(t, 5.0, m.MaxRating())
	assert.Equal(t, 3.0, m.Rating(0, 1))
	assert.True(t, m.IsMissing(0, 2))
	assert.False(t, m.IsMissing(1, 2))
	assert.Equal(t, 4, m.CountMissing())

	m.SetRating(0, 2, 4.5)
	assert.False(t, m.IsMissing(0, 2))
	assert.Equal(t, 4.5, m.Rating(0, 2))
	assert.Equal(t, 3, m.CountMissing())
}

func TestRatingMatrixUserMean(t *testing.T) {
	m := newTestMatrix(t)
	assert.Equal(t, 4.0, m.UserMean(0))
	assert.Equal(t, 3.0, m.UserMean(1))
	assert.Equal(t, 7.0/3, m.UserMean(2))
	// user without ratings
	assert.Equal(t, 0.0, m.UserMean(3))
}

func TestRatingMatrixClone(t *testing.T) {
	m := newTestMatrix(t)
	c := m.Clone()
	c.SetRating(0, 2, 1)
	assert.True(t, m.IsMissing(0, 2))
	assert.Equal(t, 1.0, c.Rating(0, 2))
	assert.Equal(t, m.CountItems(), c.CountItems())

	row := m.Row(1)
	row[0] = 1
	assert.Equal(t, 4.0, m.Rating(1, 0))
}

func TestRatingMatrixOutOfRange(t *testing.T) {
	m := newTestMatrix(t)
	assert.Panics(t, func() { m.Rating(4, 0) })
	assert.Panics(t, func() { m.Rating(0, 3) })
	assert.Panics(t, func() { m.SetRating(-1, 0, 1) })
	assert.Panics(t, func() { m.IsMissing(0, -1) })
	assert.Panics(t, func() { m.UserMean(10) })
	assert.True(t, m.ValidUser(3))
	assert.False(t, m.ValidUser(4))
	assert.True(t, m.ValidItem(0))
	assert.False(t, m.ValidItem(3))
}

func TestNewRatingMatrixInvalid(t *testing.T) {
	_, err := NewRatingMatrix(5, 1, nil)
	assert.True(t, errors.IsNotValid(err))
	_, err = NewRatingMatrix(1, 5, [][]float64{{1, 2}, {3}})
	assert.True(t, errors.IsNotValid(err))

	m, err := NewRatingMatrix(1, 5, nil)
	assert.NoError(t, err)
	assert.Zero(t, m.CountUsers())
	assert.Zero(t, m.CountItems())
	assert.Zero(t, m.CountMissing())
}

func TestCountOutOfRange(t *testing.T) {
	m, err := NewRatingMatrix(1, 5, [][]float64{{0, 6, Missing, 3}})
	require.NoError(t, err)
	assert.Equal(t, 2, m.CountOutOfRange())
}
