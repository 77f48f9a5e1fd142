package geom

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/flightpath/internal/check"
)

// Mat4 dimensions.
const (
	Rows     = 4
	Cols     = 4
	Elements = Rows * Cols
)

// Mat4 is a 4x4 matrix stored in row-major order. The zero value is the
// zero matrix.
type Mat4 struct {
	data [Elements]float64
}

// NewMat4 builds a matrix from 16 values in row-major order.
func NewMat4(values ...float64) (Mat4, error) {
	var m Mat4
	if err := m.SetMatrix(values...); err != nil {
		return Mat4{}, err
	}
	return m, nil
}

// MustMat4 is NewMat4 for literal matrices; it panics on a wrong count.
func MustMat4(values ...float64) Mat4 {
	m, err := NewMat4(values...)
	if err != nil {
		panic(err)
	}
	return m
}

// Identity returns the 4x4 identity matrix.
func Identity() Mat4 {
	var m Mat4
	for i := 0; i < Rows; i++ {
		m.data[i*Cols+i] = 1
	}
	return m
}

// SetMatrix overwrites all 16 entries (row-major).
func (m *Mat4) SetMatrix(values ...float64) error {
	if err := check.Ensure(len(values) == Elements,
		"length of value list (%d) does not match matrix dimensions %dx%d", len(values), Rows, Cols); err != nil {
		return err
	}
	copy(m.data[:], values)
	return nil
}

func (m Mat4) At(row, col int) float64 {
	return m.data[row*Cols+col]
}

func (m *Mat4) Set(row, col int, v float64) {
	m.data[row*Cols+col] = v
}

// Values returns a copy of the entries in row-major order.
func (m Mat4) Values() []float64 {
	out := make([]float64, Elements)
	copy(out, m.data[:])
	return out
}

// Column returns the upper three entries of column col.
func (m Mat4) Column(col int) Vec3 {
	return Vec3{X: m.At(0, col), Y: m.At(1, col), Z: m.At(2, col)}
}

// SetColumn overwrites the upper three entries of column col; row 3 is left
// unchanged.
func (m *Mat4) SetColumn(col int, v Vec3) {
	m.Set(0, col, v.X)
	m.Set(1, col, v.Y)
	m.Set(2, col, v.Z)
}

func (m Mat4) Add(o Mat4) Mat4 {
	var c Mat4
	for i := range m.data {
		c.data[i] = m.data[i] + o.data[i]
	}
	return c
}

func (m Mat4) Sub(o Mat4) Mat4 {
	var c Mat4
	for i := range m.data {
		c.data[i] = m.data[i] - o.data[i]
	}
	return c
}

func (m Mat4) Scale(s float64) Mat4 {
	var c Mat4
	for i := range m.data {
		c.data[i] = m.data[i] * s
	}
	return c
}

// Mul returns the matrix product m·b.
func (m Mat4) Mul(b Mat4) Mat4 {
	var c Mat4
	for i := 0; i < Rows; i++ {
		a0, a1, a2, a3 := m.At(i, 0), m.At(i, 1), m.At(i, 2), m.At(i, 3)
		for j := 0; j < Cols; j++ {
			c.data[i*Cols+j] = a0*b.At(0, j) + a1*b.At(1, j) + a2*b.At(2, j) + a3*b.At(3, j)
		}
	}
	return c
}

// MulVec applies m to the point p (homogeneous w = 1).
func (m Mat4) MulVec(p Vec3) Vec3 {
	return Vec3{
		X: m.At(0, 0)*p.X + m.At(0, 1)*p.Y + m.At(0, 2)*p.Z + m.At(0, 3),
		Y: m.At(1, 0)*p.X + m.At(1, 1)*p.Y + m.At(1, 2)*p.Z + m.At(1, 3),
		Z: m.At(2, 0)*p.X + m.At(2, 1)*p.Y + m.At(2, 2)*p.Z + m.At(2, 3),
	}
}

// Dense copies m into a gonum matrix.
func (m Mat4) Dense() *mat.Dense {
	return mat.NewDense(Rows, Cols, m.Values())
}

// FromDense copies the top-left 4x4 block of d.
func FromDense(d mat.Matrix) Mat4 {
	var m Mat4
	for i := 0; i < Rows; i++ {
		for j := 0; j < Cols; j++ {
			m.Set(i, j, d.At(i, j))
		}
	}
	return m
}

// Inverse returns m⁻¹, or an error when m is singular.
func (m Mat4) Inverse() (Mat4, error) {
	var inv mat.Dense
	if err := inv.Inverse(m.Dense()); err != nil {
		return Mat4{}, fmt.Errorf("invert matrix: %w", err)
	}
	return FromDense(&inv), nil
}

// String prints the matrix one row per line.
func (m Mat4) String() string {
	var sb strings.Builder
	for i := 0; i < Rows; i++ {
		for j := 0; j < Cols; j++ {
			fmt.Fprintf(&sb, " %12.4f", m.At(i, j))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
