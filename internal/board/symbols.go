// internal/board/symbols.go
//
// Symbol pool management for board generation.
//
// Initialization behavior (LoadSymbols):
//   1. If SYMBOLS_FILE is set, load one symbol per line from that file.
//   2. Otherwise fall back to the embedded default pool (assets/symbols.txt).
//
// Constraints:
//   • Blank lines and "#" comments are skipped.
//   • Duplicates are dropped (first occurrence wins).
//   • The pool is loaded once per process (sync.Once).

package board

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/robalobadob/concentration/assets"
)

var (
	symbolsOnce sync.Once
	symbols     []string
	symbolsErr  error
)

// LoadSymbols loads the process-wide symbol pool exactly once.
// path overrides the embedded default when non-empty.
func LoadSymbols(path string) ([]string, error) {
	symbolsOnce.Do(func() {
		symbols, symbolsErr = readSymbols(path)
	})
	return symbols, symbolsErr
}

// readSymbols reads a pool from path, or the embedded list if path is empty.
func readSymbols(path string) ([]string, error) {
	var list []string
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open symbols file: %w", err)
		}
		defer f.Close()
		if list, err = assets.ReadLines(f); err != nil {
			return nil, fmt.Errorf("read symbols file: %w", err)
		}
	} else {
		var err error
		if list, err = assets.SymbolList(); err != nil {
			return nil, fmt.Errorf("read embedded symbols: %w", err)
		}
	}
	list = distinct(list)
	if len(list) == 0 {
		return nil, errors.New("board: symbol pool is empty")
	}
	return list, nil
}

// MaxDimension returns the largest even dimension the pool can fill.
func MaxDimension(pool []string) int {
	n := len(distinct(pool))
	d := 0
	for next := 2; next*next/2 <= n; next += 2 {
		d = next
	}
	return d
}
