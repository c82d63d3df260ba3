package bhtsne

import "fmt"

// Symmetrize turns conditional probabilities P(j|i) into the joint
// distribution P_ij = (P(j|i) + P(i|j)) / 2, renormalized to total mass 1.
//
// Every undirected pair is stored in both rows with the same value. Pairs
// stored in both directions are merged; pairs stored in one direction keep
// their single value. Self loops are not allowed.
func Symmetrize(p *SparseAffinity) (*SparseAffinity, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := p.N

	// Count entries per output row. A mirrored pair is seen from both
	// sides and counts once per side; a one-sided pair adds to both rows.
	rowCounts := make([]int, n)
	for i := 0; i < n; i++ {
		cols, _ := p.Row(i)
		for _, j := range cols {
			if j == i {
				return nil, fmt.Errorf("bhtsne: %w: self loop at row %d", ErrMalformedAffinity, i)
			}
			rowCounts[i]++
			if _, mirrored := p.Lookup(j, i); !mirrored {
				rowCounts[j]++
			}
		}
	}

	sym := &SparseAffinity{N: n, RowOffsets: make([]int, n+1)}
	for i := 0; i < n; i++ {
		sym.RowOffsets[i+1] = sym.RowOffsets[i] + rowCounts[i]
	}
	nnz := sym.RowOffsets[n]
	sym.ColIndices = make([]int, nnz)
	sym.Values = make([]float64, nnz)

	// offset[i] is the next free slot in output row i.
	offset := make([]int, n)
	put := func(row, col int, v float64) {
		at := sym.RowOffsets[row] + offset[row]
		sym.ColIndices[at] = col
		sym.Values[at] = v
		offset[row]++
	}

	for i := 0; i < n; i++ {
		cols, vals := p.Row(i)
		for m, j := range cols {
			pji, mirrored := p.Lookup(j, i)
			switch {
			case mirrored && i < j:
				// Written once, from the lower index.
				put(i, j, vals[m]+pji)
				put(j, i, vals[m]+pji)
			case !mirrored:
				put(i, j, vals[m])
				put(j, i, vals[m])
			}
		}
	}

	var total float64
	for m := range sym.Values {
		sym.Values[m] /= 2
		total += sym.Values[m]
	}
	if total > 0 {
		sym.Scale(1 / total)
	}

	for i := 0; i < n; i++ {
		if offset[i] != rowCounts[i] {
			panic(fmt.Sprintf("bhtsne: symmetrize filled %d of %d slots in row %d", offset[i], rowCounts[i], i))
		}
	}
	return sym, nil
}
