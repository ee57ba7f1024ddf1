package estimate

import (
	"context"
	"testing"

	"github.com/harliandi/go-quadtree/pkg/quadtree"
)

func quadrantTree(t *testing.T, threshold float64) *quadtree.Tree {
	t.Helper()
	rows := make([][]quadtree.Pixel, 4)
	for y := range rows {
		rows[y] = make([]quadtree.Pixel, 4)
		for x := range rows[y] {
			if x >= 2 {
				rows[y][x] = quadtree.Pixel{R: 200, G: 10, B: 10}
			}
		}
	}
	g, err := quadtree.GridFromRows(rows)
	if err != nil {
		t.Fatal(err)
	}
	return quadtree.NewBuilder(g, quadtree.Params{Method: quadtree.Variance, Threshold: threshold, MinBlockSize: 1}).Build()
}

func TestDefaultModel(t *testing.T) {
	m := DefaultModel()
	tests := []struct {
		leaves int
		want   int64
	}{
		{0, 8},
		{1, 27},
		{4, 8 + 4*19},
		{1000, 8 + 1000*19},
	}
	for _, tt := range tests {
		if got := m.Estimate(tt.leaves, "png", 1); got != tt.want {
			t.Errorf("Estimate(%d) = %d, want %d", tt.leaves, got, tt.want)
		}
	}
}

func TestModel_CorrectionFactors(t *testing.T) {
	m := Model{
		BaseOverhead:        10,
		BytesPerLeaf:        10,
		FormatFactors:       map[string]float64{"jpeg": 0.5},
		MinBlockCoefficient: 0.25,
	}
	if got := m.Estimate(9, "jpeg", 1); got != 50 {
		t.Errorf("jpeg factor: got %d, want 50", got)
	}
	if got := m.Estimate(9, "png", 1); got != 100 {
		t.Errorf("no factor: got %d, want 100", got)
	}
	// log2(16) = 4, factor 1 + 0.25*4 = 2
	if got := m.Estimate(9, "png", 16); got != 200 {
		t.Errorf("min block factor: got %d, want 200", got)
	}
}

func TestModel_Measurer(t *testing.T) {
	m := DefaultModel()
	split := quadrantTree(t, 0)
	flat := quadrantTree(t, 16256.25)

	ms := m.Measurer("png", 1)
	a, err := ms.Measure(context.Background(), split)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := ms.Measure(context.Background(), flat)
	if a <= b {
		t.Errorf("split tree size %d should exceed single-leaf size %d", a, b)
	}
	if b != 27 {
		t.Errorf("single leaf size = %d, want 27", b)
	}
	if got := m.EstimateTree(nil, "png", 1); got != 8 {
		t.Errorf("EstimateTree(nil) = %d, want 8", got)
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		size, original int64
		want           float64
	}{
		{50, 100, 0.5},
		{0, 100, 1},
		{200, 100, -1},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := Ratio(tt.size, tt.original); got != tt.want {
			t.Errorf("Ratio(%d, %d) = %v, want %v", tt.size, tt.original, got, tt.want)
		}
	}
}
