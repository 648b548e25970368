package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Columns returns the result names with key first and the rest sorted.
func Columns(res map[string][]float64, key string) []string {
	cols := make([]string, 0, len(res))
	for name := range res {
		if name != key {
			cols = append(cols, name)
		}
	}
	sort.Strings(cols)
	if _, ok := res[key]; ok {
		cols = append([]string{key}, cols...)
	}
	return cols
}

// WriteTable writes results as tab-separated columns with a header line.
// Rows run over the sweep variable key.
func WriteTable(w io.Writer, res map[string][]float64, key string) error {
	rows, ok := res[key]
	if !ok {
		return fmt.Errorf("no %s column: %w", key, ErrNoData)
	}
	cols := Columns(res, key)

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# "+strings.Join(cols, "\t"))
	fields := make([]string, len(cols))
	for i := range rows {
		for c, name := range cols {
			col := res[name]
			if i < len(col) {
				fields[c] = strconv.FormatFloat(col[i], 'g', 10, 64)
			} else {
				fields[c] = "NaN"
			}
		}
		fmt.Fprintln(bw, strings.Join(fields, "\t"))
	}
	return bw.Flush()
}

// SaveTable writes the table to path.
func SaveTable(path string, res map[string][]float64, key string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTable(f, res, key); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
