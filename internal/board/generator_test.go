package board

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func testPool(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('A' + i))
	}
	return out
}

func TestGeneratePairsEverySymbolTwice(t *testing.T) {
	pool := testPool(26)
	for _, dim := range []int{2, 4, 6} {
		b, err := Generate(dim, pool, SeededRand(uint64(dim)))
		if err != nil {
			t.Fatalf("Generate(%d): %v", dim, err)
		}
		if len(b.Cards) != dim*dim {
			t.Fatalf("Generate(%d): got %d cards, want %d", dim, len(b.Cards), dim*dim)
		}
		counts := map[string]int{}
		for i, c := range b.Cards {
			if c.Position != i {
				t.Errorf("card %d has position %d", i, c.Position)
			}
			if c.Face != Hidden {
				t.Errorf("card %d starts %s, want hidden", i, c.Face)
			}
			counts[c.Symbol]++
		}
		if len(counts) != dim*dim/2 {
			t.Errorf("Generate(%d): %d distinct symbols, want %d", dim, len(counts), dim*dim/2)
		}
		for sym, n := range counts {
			if n != 2 {
				t.Errorf("Generate(%d): symbol %q appears %d times", dim, sym, n)
			}
		}
	}
}

func TestGenerateRejectsBadDimension(t *testing.T) {
	for _, dim := range []int{-2, 0, 1, 3, 5} {
		_, err := Generate(dim, testPool(26), SeededRand(1))
		if !errors.Is(err, ErrInvalidDimension) {
			t.Errorf("Generate(%d): err = %v, want ErrInvalidDimension", dim, err)
		}
	}
}

func TestGenerateInsufficientSymbols(t *testing.T) {
	// Duplicates do not count toward the distinct pool.
	pool := []string{"a", "b", "c", "a", "b", "c", "d", "d"}
	_, err := Generate(4, pool, SeededRand(1))
	if !errors.Is(err, ErrInsufficientSymbols) {
		t.Fatalf("err = %v, want ErrInsufficientSymbols", err)
	}
	if _, err := Generate(2, pool, SeededRand(1)); err != nil {
		t.Fatalf("Generate(2): %v", err)
	}

	// Dimensions whose square overflows int must still be rejected.
	for _, dim := range []int{1 << 32, 3037000500, 1 << 62} {
		b, err := Generate(dim, testPool(10), SeededRand(1))
		if !errors.Is(err, ErrInsufficientSymbols) || len(b.Cards) != 0 {
			t.Fatalf("Generate(%d): err=%v cards=%d, want ErrInsufficientSymbols", dim, err, len(b.Cards))
		}
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	in := []int{1, 2, 2, 3, 4, 5, 5, 5, 9}
	orig := append([]int(nil), in...)
	rng := SeededRand(42)
	for trial := 0; trial < 50; trial++ {
		out := Shuffle(in, rng)
		got := append([]int(nil), out...)
		sort.Ints(got)
		want := append([]int(nil), orig...)
		sort.Ints(want)
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("trial %d: %v is not a permutation of %v", trial, out, orig)
			}
		}
	}
	for i := range in {
		if in[i] != orig[i] {
			t.Fatalf("Shuffle mutated its input: %v", in)
		}
	}
}

func TestShuffleDistribution(t *testing.T) {
	const trials = 30000
	rng := SeededRand(7)
	var firstPos [4]int
	for i := 0; i < trials; i++ {
		out := Shuffle([]int{0, 1, 2, 3}, rng)
		firstPos[out[0]]++
	}
	expected := trials / 4
	for v, n := range firstPos {
		if n < expected*9/10 || n > expected*11/10 {
			t.Errorf("value %d led %d times, want about %d", v, n, expected)
		}
	}
}

func TestPickRandomWithoutRepetition(t *testing.T) {
	pool := testPool(10)
	picks := PickRandom(pool, 8, SeededRand(3))
	if len(picks) != 8 {
		t.Fatalf("got %d picks", len(picks))
	}
	seen := map[string]bool{}
	for _, p := range picks {
		if seen[p] {
			t.Fatalf("symbol %q picked twice", p)
		}
		seen[p] = true
	}
	if got := PickRandom(pool, 99, SeededRand(3)); len(got) != len(pool) {
		t.Fatalf("oversized pick returned %d items", len(got))
	}
}

func TestEmbeddedSymbolsFillDefaultBoard(t *testing.T) {
	pool, err := readSymbols("")
	if err != nil {
		t.Fatalf("readSymbols: %v", err)
	}
	if len(pool) != 10 {
		t.Fatalf("embedded pool has %d symbols, want 10", len(pool))
	}
	if MaxDimension(pool) != 4 {
		t.Fatalf("MaxDimension = %d, want 4", MaxDimension(pool))
	}
	if _, err := Generate(4, pool, NewRand()); err != nil {
		t.Fatalf("Generate(4) with embedded pool: %v", err)
	}
}

func TestReadSymbolsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.txt")
	if err := os.WriteFile(path, []byte("# faces\nx\n\ny\nx\n  z  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	pool, err := readSymbols(path)
	if err != nil {
		t.Fatalf("readSymbols: %v", err)
	}
	want := []string{"x", "y", "z"}
	if len(pool) != len(want) {
		t.Fatalf("pool = %v, want %v", pool, want)
	}
	for i := range want {
		if pool[i] != want[i] {
			t.Fatalf("pool = %v, want %v", pool, want)
		}
	}
	if _, err := readSymbols(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestBoardAllMatched(t *testing.T) {
	b, _ := Generate(2, testPool(2), SeededRand(1))
	if b.AllMatched() {
		t.Fatal("fresh board reports all matched")
	}
	for i := range b.Cards {
		b.Cards[i].Face = Matched
	}
	if !b.AllMatched() {
		t.Fatal("fully matched board not detected")
	}
	if (Board{}).AllMatched() {
		t.Fatal("empty board reports all matched")
	}
}
