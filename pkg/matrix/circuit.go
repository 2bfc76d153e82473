package matrix

import (
	"fmt"

	"github.com/edp1096/sparse"
)

type CircuitMatrix struct {
	Size     int
	matrix   *sparse.Matrix
	rhs      []float64
	solution []float64
	config   *sparse.Configuration

	// first out-of-range stamp since the last Clear
	stampErr error
}

func NewMatrix(size int) (*CircuitMatrix, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid matrix size %d", size)
	}

	config := &sparse.Configuration{
		Real:                    true,
		Complex:                 false,
		SeparatedComplexVectors: false,
		Expandable:              true,
		Translate:               true,
		ModifiedNodal:           true,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %w", err)
	}

	return &CircuitMatrix{
		Size:     size,
		matrix:   mat,
		rhs:      make([]float64, size+1), // 1-based indexing
		solution: make([]float64, size+1),
		config:   config,
	}, nil
}

// SetupElements allocates every (i, j) element once so that later stamps do
// not grow the sparse structure between solves.
func (m *CircuitMatrix) SetupElements() {
	for i := 1; i <= m.Size; i++ {
		for j := 1; j <= m.Size; j++ {
			m.matrix.GetElement(int64(i), int64(j))
		}
	}
}

func (m *CircuitMatrix) AddElement(i, j int, value float64) {
	if i <= 0 || j <= 0 || i > m.Size || j > m.Size {
		m.outOfRange("element (%d,%d)", i, j)
		return
	}
	e := m.matrix.GetElement(int64(i), int64(j))
	if e == nil {
		m.outOfRange("element (%d,%d)", i, j)
		return
	}
	e.Real += value
}

func (m *CircuitMatrix) AddRHS(i int, value float64) {
	if i <= 0 || i > m.Size {
		m.outOfRange("rhs %d", i)
		return
	}
	m.rhs[i] += value
}

func (m *CircuitMatrix) outOfRange(format string, args ...any) {
	if m.stampErr == nil {
		m.stampErr = fmt.Errorf("matrix index out of bounds: %s, size=%d", fmt.Sprintf(format, args...), m.Size)
	}
}

func (m *CircuitMatrix) LoadGmin(gmin float64) {
	if gmin == 0 {
		return
	}
	// Diags is indexed internally once the matrix has been reordered, so go
	// through the translated lookup.
	for i := 1; i <= m.Size; i++ {
		m.AddElement(i, i, gmin)
	}
}

func (m *CircuitMatrix) Clear() {
	m.matrix.Clear()
	for i := range m.rhs {
		m.rhs[i] = 0
	}
	m.stampErr = nil
}

func (m *CircuitMatrix) Solve() error {
	if m.stampErr != nil {
		return m.stampErr
	}

	if err := m.matrix.Factor(); err != nil {
		return fmt.Errorf("matrix factorization failed: %w", err)
	}

	solution, err := m.matrix.Solve(m.rhs)
	if err != nil {
		return fmt.Errorf("matrix solve failed: %w", err)
	}
	m.solution = solution

	return nil
}

func (m *CircuitMatrix) RHS() []float64 {
	return m.rhs
}

// Solution returns the last solution vector, indexed like the matrix
// (element 0 is unused).
func (m *CircuitMatrix) Solution() []float64 {
	return m.solution
}

func (m *CircuitMatrix) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
		m.matrix = nil
	}
}
