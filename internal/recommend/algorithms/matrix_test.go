// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package algorithms

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recipewise/internal/recommend"
)

func TestBuildMatrix(t *testing.T) {
	ratings := ratingsOf(
		[3]float64{1, 10, 5},
		[3]float64{1, 11, 4},
		[3]float64{2, 10, 3},
		[3]float64{2, 12, 9}, // out of range
		[3]float64{3, 12, 2},
	)
	favorites := []recommend.Favorite{
		{UserID: 2, RecipeID: 11, CreatedAt: time.Now()},
		{UserID: 1, RecipeID: 10, CreatedAt: time.Now()}, // explicit rating wins
	}

	m, err := BuildMatrix(ratings, favorites, DefaultMatrixOptions(), 7)
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}

	if m.Version() != 7 {
		t.Errorf("Version() = %d, want 7", m.Version())
	}
	if got, want := m.Users(), []int64{1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("Users() = %v, want %v", got, want)
	}
	if got, want := m.Items(), []int64{10, 11, 12}; !reflect.DeepEqual(got, want) {
		t.Errorf("Items() = %v, want %v", got, want)
	}
	if m.NumRatings() != 5 {
		t.Errorf("NumRatings() = %d, want 5", m.NumRatings())
	}
	if r, _ := m.Rating(1, 10); r != 5 {
		t.Errorf("Rating(1, 10) = %v, want 5", r)
	}
	if r, ok := m.Rating(2, 11); !ok || r != FavoriteRating {
		t.Errorf("Rating(2, 11) = %v, %v, want favorite rating", r, ok)
	}
	if _, ok := m.Rating(2, 12); ok {
		t.Error("out-of-range rating entered the matrix")
	}
	if avg, _ := m.UserAverage(2); avg != 4 {
		t.Errorf("UserAverage(2) = %v, want 4", avg)
	}
	if avg, _ := m.ItemAverage(10); avg != 4 {
		t.Errorf("ItemAverage(10) = %v, want 4", avg)
	}
	wantGlobal := (5.0 + 4 + 3 + 5 + 2) / 5
	if m.GlobalAverage() != wantGlobal {
		t.Errorf("GlobalAverage() = %v, want %v", m.GlobalAverage(), wantGlobal)
	}
	if got, want := m.Sparsity(), 1-5.0/9.0; got != want {
		t.Errorf("Sparsity() = %v, want %v", got, want)
	}
}

func TestBuildMatrix_RatingsInRange(t *testing.T) {
	ratings := ratingsOf(
		[3]float64{1, 1, 0},
		[3]float64{1, 2, 5.5},
		[3]float64{1, 3, -2},
		[3]float64{1, 4, 1},
		[3]float64{1, 5, 5},
	)
	m, err := BuildMatrix(ratings, nil, DefaultMatrixOptions(), 1)
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}
	for _, u := range m.Users() {
		for item, r := range m.UserRatings(u) {
			if r < MinRating || r > MaxRating {
				t.Errorf("rating (%d, %d) = %v outside [1, 5]", u, item, r)
			}
		}
	}
}

func TestBuildMatrix_TwoPassFilter(t *testing.T) {
	// User 3 has one rating and is dropped first; recipe 30 then has only
	// one rating among qualifying users.
	ratings := ratingsOf(
		[3]float64{1, 10, 5}, [3]float64{1, 20, 4},
		[3]float64{2, 10, 3}, [3]float64{2, 20, 4}, [3]float64{2, 30, 5},
		[3]float64{3, 30, 5},
	)
	m, err := BuildMatrix(ratings, nil, MatrixOptions{MinUserRatings: 2, MinItemRatings: 2}, 1)
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}
	if m.HasUser(3) {
		t.Error("user 3 should be filtered")
	}
	if m.HasItem(30) {
		t.Error("recipe 30 should be filtered after user filtering")
	}
	if got, want := m.Items(), []int64{10, 20}; !reflect.DeepEqual(got, want) {
		t.Errorf("Items() = %v, want %v", got, want)
	}
}

func TestBuildMatrix_Since(t *testing.T) {
	ratings := ratingsOf([3]float64{1, 10, 5}, [3]float64{1, 11, 4})
	since := ratings[1].Timestamp
	m, err := BuildMatrix(ratings, nil, MatrixOptions{MinUserRatings: 1, MinItemRatings: 1, Since: since}, 1)
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}
	if m.HasItem(10) || !m.HasItem(11) {
		t.Errorf("Items() = %v, want only 11", m.Items())
	}
}

func TestBuildMatrix_Empty(t *testing.T) {
	tests := []struct {
		name    string
		ratings []recommend.Rating
		opts    MatrixOptions
	}{
		{"no ratings", nil, DefaultMatrixOptions()},
		{"all filtered", ratingsOf([3]float64{1, 10, 5}), MatrixOptions{MinUserRatings: 3, MinItemRatings: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildMatrix(tt.ratings, nil, tt.opts, 1)
			if !errors.Is(err, recommend.ErrEmptyMatrix) {
				t.Errorf("error = %v, want ErrEmptyMatrix", err)
			}
		})
	}
}

func TestRatingMatrix_AveragesRoundTrip(t *testing.T) {
	ratings := ratingsOf(
		[3]float64{1, 10, 4.5}, [3]float64{1, 11, 3.1}, [3]float64{1, 12, 2.7},
		[3]float64{2, 10, 1.3}, [3]float64{2, 12, 4.9},
		[3]float64{3, 11, 3.3}, [3]float64{3, 12, 4.1}, [3]float64{3, 13, 2.2},
	)
	favorites := []recommend.Favorite{{UserID: 2, RecipeID: 13}}

	first, err := BuildMatrix(ratings, favorites, DefaultMatrixOptions(), 1)
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}
	second, err := BuildMatrix(ratings, favorites, DefaultMatrixOptions(), 1)
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}

	if !reflect.DeepEqual(first.Averages(), second.Averages()) {
		t.Errorf("averages differ between identical builds:\n%+v\n%+v", first.Averages(), second.Averages())
	}
}

func TestRatingMatrix_WithRatings(t *testing.T) {
	base, err := BuildMatrix(ratingsOf(
		[3]float64{1, 10, 4}, [3]float64{2, 10, 2}, [3]float64{2, 11, 5},
	), nil, DefaultMatrixOptions(), 1)
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}

	next := base.withRatings(ratingsOf([3]float64{1, 11, 3}, [3]float64{3, 12, 5}, [3]float64{2, 10, 4}), 2)

	// Base must be untouched.
	if _, ok := base.Rating(1, 11); ok {
		t.Error("incremental update mutated the base snapshot")
	}
	if avg, _ := base.UserAverage(2); avg != 3.5 {
		t.Errorf("base UserAverage(2) = %v, want 3.5", avg)
	}

	full, err := BuildMatrix(ratingsOf(
		[3]float64{1, 10, 4}, [3]float64{2, 10, 4}, [3]float64{2, 11, 5},
		[3]float64{1, 11, 3}, [3]float64{3, 12, 5},
	), nil, DefaultMatrixOptions(), 2)
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}

	if next.NumRatings() != full.NumRatings() {
		t.Errorf("NumRatings() = %d, want %d", next.NumRatings(), full.NumRatings())
	}
	if !reflect.DeepEqual(next.Users(), full.Users()) || !reflect.DeepEqual(next.Items(), full.Items()) {
		t.Errorf("ids differ: users %v vs %v, items %v vs %v", next.Users(), full.Users(), next.Items(), full.Items())
	}
	for _, u := range full.Users() {
		a, _ := next.UserAverage(u)
		b, _ := full.UserAverage(u)
		if a != b {
			t.Errorf("UserAverage(%d) = %v, want %v", u, a, b)
		}
	}
	for _, i := range full.Items() {
		a, _ := next.ItemAverage(i)
		b, _ := full.ItemAverage(i)
		if a != b {
			t.Errorf("ItemAverage(%d) = %v, want %v", i, a, b)
		}
	}
	if next.GlobalAverage() != full.GlobalAverage() {
		t.Errorf("GlobalAverage() = %v, want %v", next.GlobalAverage(), full.GlobalAverage())
	}
}

// countingSource counts fetches.
type countingSource struct {
	*memRepo
	mu    sync.Mutex
	calls int
}

func (c *countingSource) Ratings(ctx context.Context, since time.Time) ([]recommend.Rating, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.memRepo.Ratings(ctx, since)
}

func TestMatrixBuilder_CurrentCachesSnapshot(t *testing.T) {
	repo := newMemRepo()
	repo.rate(1, 10, 5)
	repo.rate(2, 10, 4)
	src := &countingSource{memRepo: repo}

	b := NewMatrixBuilder(src, DefaultMatrixOptions(), time.Hour, 0, zerolog.Nop())
	ctx := context.Background()

	first, err := b.Current(ctx)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	second, err := b.Current(ctx)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if first != second {
		t.Error("Current() rebuilt a cached snapshot")
	}
	if src.calls != 1 {
		t.Errorf("source fetched %d times, want 1", src.calls)
	}

	var reasons []string
	b.OnInvalidate(func(reason string) { reasons = append(reasons, reason) })
	b.Invalidate("test")
	third, err := b.Current(ctx)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if third.Version() <= first.Version() {
		t.Errorf("version %d not greater than %d", third.Version(), first.Version())
	}
	if len(reasons) == 0 || reasons[0] != "test" {
		t.Errorf("invalidation hooks = %v, want first reason test", reasons)
	}
}

func TestMatrixBuilder_Update(t *testing.T) {
	repo := newMemRepo()
	repo.rate(1, 10, 5)
	b := NewMatrixBuilder(repo, DefaultMatrixOptions(), time.Hour, 0, zerolog.Nop())
	ctx := context.Background()

	base, err := b.Current(ctx)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	next := b.Update(base, []recommend.Rating{{UserID: 2, RecipeID: 10, Value: 3, Timestamp: time.Now()}})

	cur, err := b.Current(ctx)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if cur != next {
		t.Error("Update() did not install the new snapshot")
	}
	if base.HasUser(2) {
		t.Error("Update() mutated the base snapshot")
	}
}

func TestMatrixBuilder_EmptySource(t *testing.T) {
	b := NewMatrixBuilder(newMemRepo(), DefaultMatrixOptions(), time.Hour, 0, zerolog.Nop())
	if _, err := b.Current(context.Background()); !errors.Is(err, recommend.ErrEmptyMatrix) {
		t.Errorf("Current() error = %v, want ErrEmptyMatrix", err)
	}
}

func TestMatrixBuilder_Sync(t *testing.T) {
	repo := newMemRepo()
	repo.rate(1, 10, 5)
	repo.rate(2, 10, 4)
	repo.rate(2, 11, 3)
	b := NewMatrixBuilder(repo, DefaultMatrixOptions(), time.Hour, 0, zerolog.Nop())
	ctx := context.Background()

	first, err := b.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !first.Rebuilt() {
		t.Fatal("first Sync() merged into a missing snapshot")
	}

	idle, err := b.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if idle.Rebuilt() || idle.Matrix != first.Matrix || len(idle.Ratings) != 0 {
		t.Errorf("Sync() with no new ratings = %+v, want the unchanged snapshot", idle)
	}

	repo.rate(1, 11, 4)
	repo.favorite(3, 10)
	repo.favorite(2, 11)

	merged, err := b.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if merged.Rebuilt() || merged.Base != first.Matrix {
		t.Fatal("Sync() did not merge into the current snapshot")
	}
	if len(merged.Ratings) != 2 {
		t.Errorf("merged %d ratings, want 2 (favorite of a rated pair skipped)", len(merged.Ratings))
	}
	if got := merged.Unseen(); len(got) != 2 {
		t.Errorf("Unseen() = %v, want both merged pairs", got)
	}
	if r, ok := merged.Matrix.Rating(3, 10); !ok || r != FavoriteRating {
		t.Errorf("Rating(3, 10) = %v, %v, want favorite rating", r, ok)
	}
	if merged.Matrix.Version() <= first.Matrix.Version() {
		t.Errorf("version %d not greater than %d", merged.Matrix.Version(), first.Matrix.Version())
	}

	cur, err := b.Current(ctx)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if cur != merged.Matrix {
		t.Error("Sync() did not install the merged snapshot")
	}
}
