package preprocess

import (
	"fmt"

	"github.com/Skufu/GlycoRisk/internal/features"
)

// scaler standardises numeric columns with fitted mean and scale.
type scaler struct {
	name    string
	columns []string
	mean    []float64
	scale   []float64
}

func (s *scaler) width() int { return len(s.columns) }

func (s *scaler) namesOut() []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = s.name + "__" + c
	}
	return out
}

func (s *scaler) apply(row Row, out []float64) error {
	for i, col := range s.columns {
		v, err := lookup(row, col, features.Numeric)
		if err != nil {
			return err
		}
		out[i] = (v.Num - s.mean[i]) / s.scale[i]
	}
	return nil
}

// oneHot expands each categorical column into one indicator per fitted
// category. Unknown categories are an error.
type oneHot struct {
	name       string
	columns    []string
	categories [][]string
	index      []map[string]int
	n          int
}

func newOneHot(name string, columns []string, categories [][]string) (*oneHot, error) {
	o := &oneHot{name: name, columns: columns, categories: categories}
	for i, cats := range categories {
		idx := make(map[string]int, len(cats))
		for _, c := range cats {
			if _, dup := idx[c]; dup {
				return nil, fmt.Errorf("duplicate category %q for %q", c, columns[i])
			}
			idx[c] = o.n
			o.n++
		}
		o.index = append(o.index, idx)
	}
	return o, nil
}

func (o *oneHot) width() int { return o.n }

func (o *oneHot) namesOut() []string {
	out := make([]string, 0, o.n)
	for i, col := range o.columns {
		for _, c := range o.categories[i] {
			out = append(out, o.name+"__"+col+"_"+c)
		}
	}
	return out
}

func (o *oneHot) apply(row Row, out []float64) error {
	for i, col := range o.columns {
		v, err := lookup(row, col, features.Categorical)
		if err != nil {
			return err
		}
		pos, ok := o.index[i][v.Str]
		if !ok {
			return fmt.Errorf("%w: found unknown category %q in column %q", ErrSchemaMismatch, v.Str, col)
		}
		out[pos] = 1
	}
	return nil
}

type passthrough struct {
	name    string
	columns []string
}

func (p *passthrough) width() int { return len(p.columns) }

func (p *passthrough) namesOut() []string {
	out := make([]string, len(p.columns))
	for i, c := range p.columns {
		out[i] = p.name + "__" + c
	}
	return out
}

func (p *passthrough) apply(row Row, out []float64) error {
	for i, col := range p.columns {
		v, err := lookup(row, col, features.Numeric)
		if err != nil {
			return err
		}
		out[i] = v.Num
	}
	return nil
}
