package lexical

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// SparseVector is a row of the term-weight matrix: column indices in ascending
// order with their weights.
type SparseVector struct {
	Indices []uint32
	Values  []float64
}

func (s *SparseVector) Len() int           { return len(s.Indices) }
func (s *SparseVector) Less(i, j int) bool { return s.Indices[i] < s.Indices[j] }
func (s *SparseVector) Swap(i, j int) {
	s.Indices[i], s.Indices[j] = s.Indices[j], s.Indices[i]
	s.Values[i], s.Values[j] = s.Values[j], s.Values[i]
}

// Matrix is a compressed sparse row matrix with one row per chunk.
type Matrix struct {
	cols    int
	indptr  []uint64
	indices []uint32
	data    []float64
}

func newMatrix(cols int) *Matrix {
	return &Matrix{cols: cols, indptr: []uint64{0}}
}

func (m *Matrix) appendRow(row SparseVector) {
	m.indices = append(m.indices, row.Indices...)
	m.data = append(m.data, row.Values...)
	m.indptr = append(m.indptr, uint64(len(m.indices)))
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int {
	return len(m.indptr) - 1
}

// Cols returns the number of columns.
func (m *Matrix) Cols() int {
	return m.cols
}

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int {
	return len(m.data)
}

// Dot returns the dot product of every row with q, which must be dense with
// Cols() entries.
func (m *Matrix) Dot(q []float64) []float64 {
	out := make([]float64, m.Rows())
	for r := range out {
		var sum float64
		for p := m.indptr[r]; p < m.indptr[r+1]; p++ {
			sum += m.data[p] * q[m.indices[p]]
		}
		out[r] = sum
	}
	return out
}

// dense expands v into a slice of Cols() entries.
func (m *Matrix) dense(v SparseVector) []float64 {
	q := make([]float64, m.cols)
	for i, j := range v.Indices {
		q[j] = v.Values[i]
	}
	return q
}

const (
	matrixMagic   = "KBTF"
	matrixVersion = uint32(1)
)

var errBadMatrix = errors.New("malformed matrix artifact")

// MarshalBinary encodes the matrix little-endian: magic, version, rows, cols,
// nnz, then indptr, indices and data.
func (m *Matrix) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(matrixMagic)
	header := []uint64{uint64(matrixVersion), uint64(m.Rows()), uint64(m.cols), uint64(m.NNZ())}
	for _, v := range []any{header, m.indptr, m.indices, m.data} {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("encode matrix: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a matrix written by MarshalBinary.
func (m *Matrix) UnmarshalBinary(b []byte) error {
	r := bytes.NewReader(b)
	magic := make([]byte, len(matrixMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != matrixMagic {
		return fmt.Errorf("%w: bad magic", errBadMatrix)
	}
	header := make([]uint64, 4)
	if err := binary.Read(r, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("%w: read header: %v", errBadMatrix, err)
	}
	if uint32(header[0]) != matrixVersion {
		return fmt.Errorf("%w: unsupported version %d", errBadMatrix, header[0])
	}
	rows, cols, nnz := header[1], header[2], header[3]
	// Each row pointer takes 8 bytes and each entry 12; reject counts the
	// payload cannot hold before sizing any slice.
	avail := uint64(r.Len())
	if rows >= avail/8 || nnz > avail/12 || cols > math.MaxUint32 {
		return fmt.Errorf("%w: truncated payload", errBadMatrix)
	}
	indptr := make([]uint64, rows+1)
	indices := make([]uint32, nnz)
	data := make([]float64, nnz)
	for _, v := range []any{indptr, indices, data} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("%w: %v", errBadMatrix, err)
		}
	}
	if indptr[0] != 0 || indptr[rows] != nnz {
		return fmt.Errorf("%w: inconsistent row pointers", errBadMatrix)
	}
	for i := uint64(0); i < rows; i++ {
		if indptr[i] > indptr[i+1] {
			return fmt.Errorf("%w: inconsistent row pointers", errBadMatrix)
		}
	}
	for _, j := range indices {
		if uint64(j) >= cols {
			return fmt.Errorf("%w: column %d out of range", errBadMatrix, j)
		}
	}
	m.cols = int(cols)
	m.indptr = indptr
	m.indices = indices
	m.data = data
	return nil
}
