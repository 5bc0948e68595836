// assets/embed.go
//
// Embedded default data for the game server.
//   - symbols.txt: default card symbol pool, one symbol per line.
//
// Lines that are blank or start with "#" are skipped.

package assets

import (
	"bufio"
	"embed"
	"io"
	"strings"
)

//go:embed symbols.txt
var FS embed.FS

// ReadLines parses one entry per line, trimming whitespace and skipping
// blank and "#" comment lines.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// SymbolList returns the embedded default symbol pool.
func SymbolList() ([]string, error) {
	f, err := FS.Open("symbols.txt")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLines(f)
}
