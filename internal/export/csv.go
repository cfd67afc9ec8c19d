package export

import (
	"bytes"
	"strconv"
	"strings"
)

const bom = "\ufeff"

type sheet struct {
	rows [][]string
}

func (s *sheet) row(cells ...string) {
	s.rows = append(s.rows, cells)
}

func (s *sheet) blank() {
	s.row("")
}

// bytes renders every cell quoted, cells joined by commas and rows by a
// bare newline, prefixed with a byte-order mark.
func (s *sheet) bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString(bom)
	for i, row := range s.rows {
		if i > 0 {
			buf.WriteByte('\n')
		}
		for j, cell := range row {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(cell, `"`, `""`))
			buf.WriteByte('"')
		}
	}
	return buf.Bytes()
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func share(count, total int) string {
	return strconv.FormatFloat(float64(count)/float64(max(total, 1))*100, 'f', 2, 64) + "%"
}
