package harmonics

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// Coefficient is one row of a coefficient table.
type Coefficient struct {
	L           int     `json:"l"`
	M           int     `json:"m"`
	Value       float64 `json:"coefficient"`
	Uncertainty float64 `json:"uncertainty"`
}

// CoefficientTable is an immutable list of rows as supplied by the caller.
type CoefficientTable struct {
	Rows []Coefficient
	maxL int
}

// NewCoefficientTable validates rows and returns a table. Rows must satisfy
// l ≥ 0 and |m| ≤ l, and each (l, m) may appear once.
func NewCoefficientTable(rows []Coefficient) (*CoefficientTable, error) {
	if len(rows) == 0 {
		return nil, errors.New(errors.CodeEmptyTable, "coefficient table has no rows")
	}
	seen := make(map[[2]int]struct{}, len(rows))
	maxL := 0
	for i, row := range rows {
		if row.L < 0 || row.M < -row.L || row.M > row.L {
			return nil, errors.New(errors.CodeMalformedTable, "order out of range for degree").
				WithDetailf("row=%d l=%d m=%d", i+1, row.L, row.M)
		}
		if math.IsNaN(row.Value) || math.IsInf(row.Value, 0) {
			return nil, errors.New(errors.CodeMalformedTable, "coefficient is not finite").
				WithDetailf("row=%d l=%d m=%d", i+1, row.L, row.M)
		}
		key := [2]int{row.L, row.M}
		if _, dup := seen[key]; dup {
			return nil, errors.New(errors.CodeMalformedTable, "duplicate (l, m) pair").
				WithDetailf("row=%d l=%d m=%d", i+1, row.L, row.M)
		}
		seen[key] = struct{}{}
		if row.L > maxL {
			maxL = row.L
		}
	}
	out := make([]Coefficient, len(rows))
	copy(out, rows)
	return &CoefficientTable{Rows: out, maxL: maxL}, nil
}

// ParseTable reads the whitespace-delimited "l m coefficient uncertainty"
// format. Text after '#' and blank lines are ignored.
func ParseTable(r io.Reader) (*CoefficientTable, error) {
	var rows []Coefficient
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 4 {
			return nil, errors.New(errors.CodeMalformedTable, "expected 4 columns: l m coefficient uncertainty").
				WithDetailf("line=%d columns=%d", line, len(fields))
		}
		var nums [4]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeMalformedTable, "column is not numeric").
					WithDetailf("line=%d column=%d value=%q", line, i+1, f)
			}
			nums[i] = v
		}
		l, okL := integral(nums[0])
		m, okM := integral(nums[1])
		if !okL || !okM {
			return nil, errors.New(errors.CodeMalformedTable, "degree and order must be integers").
				WithDetailf("line=%d l=%v m=%v", line, nums[0], nums[1])
		}
		rows = append(rows, Coefficient{L: l, M: m, Value: nums[2], Uncertainty: nums[3]})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeMalformedTable, "failed to read coefficient table")
	}
	return NewCoefficientTable(rows)
}

func integral(v float64) (int, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, false
	}
	return int(v), true
}

// MaxL returns the highest degree in the table.
func (t *CoefficientTable) MaxL() int {
	return t.maxL
}

// CheckAgainstCache rejects a table whose degree exceeds the cached basis.
func (t *CoefficientTable) CheckAgainstCache(maxLToCache int) error {
	if t.maxL > maxLToCache {
		return errors.MaxLMismatch(t.maxL, maxLToCache)
	}
	return nil
}

// Vector returns the coefficients laid out in canonical (l, m) order up to
// MaxL, BasisLen(MaxL) entries long. Pairs absent from the table are zero,
// so a complete sorted table yields exactly its coefficient column.
func (t *CoefficientTable) Vector() []float64 {
	out := make([]float64, BasisLen(t.maxL))
	for _, row := range t.Rows {
		out[Index(row.L, row.M)] = row.Value
	}
	return out
}
