package bucket

import (
	"math"
	"math/rand"
	"testing"
)

func TestChooseTracksOccupancy(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	d := NewDataset([]Bucket{{5, 6}, {6, 7}, {8, 9}, {15, 16}})
	counts := []int{10, 30, 40, 20}
	for i, c := range counts {
		for k := 0; k < c; k++ {
			d.Put(i, Example{Source: []int{4}, Target: []int{5}})
		}
	}

	draws := 20000
	hist := make([]int, len(counts))
	for n := 0; n < draws; n++ {
		hist[d.Choose(rng)]++
	}
	for i, c := range counts {
		want := float64(c) / 100.0
		got := float64(hist[i]) / float64(draws)
		if math.Abs(got-want) > 0.02 {
			t.Fatalf("bucket %d selected with frequency %.3f, want %.3f±0.02", i, got, want)
		}
	}
}

func TestChooseSkipsEmptyBuckets(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	d := NewDataset([]Bucket{{3, 3}, {6, 6}})
	d.Put(1, Example{Source: []int{4}, Target: []int{5}})
	for n := 0; n < 100; n++ {
		if got := d.Choose(rng); got != 1 {
			t.Fatalf("draw %d picked empty bucket %d", n, got)
		}
	}
}

func TestChoosePanicsOnEmptyDataset(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Choose on an empty dataset did not panic")
		}
	}()
	d := NewDataset([]Bucket{{3, 3}})
	d.Choose(rand.New(rand.NewSource(1)))
}

func TestFit(t *testing.T) {
	buckets := []Bucket{{5, 6}, {6, 7}, {8, 9}, {15, 16}}
	cases := []struct {
		n    int
		want int
		ok   bool
	}{
		{3, 0, true},
		{5, 0, true},
		{6, 1, true},
		{8, 2, true},
		{15, 3, true},
		{16, 3, false},
		{20, 3, false},
	}
	for _, c := range cases {
		got, ok := Fit(buckets, c.n)
		if got != c.want || ok != c.ok {
			t.Fatalf("Fit(%d) = (%d, %v), want (%d, %v)", c.n, got, ok, c.want, c.ok)
		}
	}
}

func TestAddPicksSmallestFittingBucket(t *testing.T) {
	d := NewDataset([]Bucket{{5, 6}, {6, 7}, {8, 9}, {15, 16}})
	cases := []struct {
		src, tgt int
		want     int // -1 = dropped
	}{
		{2, 3, 0},
		{4, 5, 0},
		{5, 5, 1},
		{4, 6, 1},
		{7, 8, 2},
		{14, 15, 3},
		{15, 15, -1},
		{3, 16, -1},
	}
	for _, c := range cases {
		ex := Example{Source: make([]int, c.src), Target: make([]int, c.tgt)}
		before := d.Sizes()
		added := d.Add(ex)
		if c.want < 0 {
			if added {
				t.Fatalf("example (%d,%d) should have been dropped", c.src, c.tgt)
			}
			continue
		}
		if !added {
			t.Fatalf("example (%d,%d) was dropped, want bucket %d", c.src, c.tgt, c.want)
		}
		if d.Len(c.want) != before[c.want]+1 {
			t.Fatalf("example (%d,%d) not placed in bucket %d", c.src, c.tgt, c.want)
		}
	}
}
