// Package schema has the data containers, constants and sentinel errors
// shared by all parts of evoked.
package schema

import (
	"fmt"
	"math"
)

// Tensor is a dense row-major float64 array with an arbitrary number of
// dimensions. The first axis is always the trial axis for EEG (X), stimulus
// (Y) and raw-score (Fy) data, so slicing and gathering along axis 0 is the
// only structural operation it needs to support. Model adapters view 2-D
// windows of a Tensor through gonum mat types for the linear algebra.
type Tensor struct {
	Shape []int     // Dimension sizes, outermost first
	Data  []float64 // Row-major backing storage, len == product(Shape)
}

// NewTensor allocates a zero-filled tensor with the given shape.
func NewTensor(shape ...int) *Tensor {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: make([]float64, n)}
}

// NDim returns the number of dimensions.
func (t *Tensor) NDim() int { return len(t.Shape) }

// Size returns the total number of elements.
func (t *Tensor) Size() int { return len(t.Data) }

// stride returns the number of elements spanned by one step of axis d.
func (t *Tensor) stride(d int) int {
	n := 1
	for i := d + 1; i < len(t.Shape); i++ {
		n *= t.Shape[i]
	}
	return n
}

// offset converts a multi-index into a flat position in Data.
func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.Shape) {
		panic(fmt.Sprintf("tensor: %d indices for %d dimensions", len(idx), len(t.Shape)))
	}
	pos := 0
	for d, i := range idx {
		if i < 0 || i >= t.Shape[d] {
			panic(fmt.Sprintf("tensor: index %d out of range for axis %d (size %d)", i, d, t.Shape[d]))
		}
		pos = pos*t.Shape[d] + i
	}
	return pos
}

// At returns the element at the given multi-index.
func (t *Tensor) At(idx ...int) float64 { return t.Data[t.offset(idx)] }

// Set writes the element at the given multi-index.
func (t *Tensor) Set(v float64, idx ...int) { t.Data[t.offset(idx)] = v }

// Clone returns a deep copy. Inputs are copied before any in-place transform,
// so callers always own what they mutate.
func (t *Tensor) Clone() *Tensor {
	c := NewTensor(t.Shape...)
	copy(c.Data, t.Data)
	return c
}

// Fill sets every element to v.
func (t *Tensor) Fill(v float64) {
	for i := range t.Data {
		t.Data[i] = v
	}
}

// FillNaN sets every element to NaN. Used to mark raw-score positions that
// no model ever predicted (trials excluded from both train and test).
func (t *Tensor) FillNaN() { t.Fill(math.NaN()) }

// Row returns the contiguous sub-block for index i of axis 0, shared with
// the tensor's backing storage.
func (t *Tensor) Row(i int) []float64 {
	n := t.stride(0)
	return t.Data[i*n : (i+1)*n]
}

// SelectRows gathers the axis-0 entries whose mask is true into a new tensor.
func (t *Tensor) SelectRows(mask []bool) *Tensor {
	if len(mask) != t.Shape[0] {
		panic(fmt.Sprintf("tensor: mask length %d != axis-0 size %d", len(mask), t.Shape[0]))
	}
	n := 0
	for _, m := range mask {
		if m {
			n++
		}
	}
	shape := append([]int(nil), t.Shape...)
	shape[0] = n
	out := NewTensor(shape...)
	j := 0
	for i, m := range mask {
		if m {
			copy(out.Row(j), t.Row(i))
			j++
		}
	}
	return out
}

// ConcatOutputs joins tensors along the last axis. All other axes must agree.
// Used to append virtual stimulus outputs to Y.
func ConcatOutputs(parts ...*Tensor) *Tensor {
	if len(parts) == 0 {
		panic("tensor: concat of nothing")
	}
	last := len(parts[0].Shape) - 1
	total := 0
	for _, p := range parts {
		total += p.Shape[last]
	}
	shape := append([]int(nil), parts[0].Shape...)
	shape[last] = total
	out := NewTensor(shape...)

	rows := out.Size() / total
	pos := 0
	for _, p := range parts {
		w := p.Shape[last]
		for r := 0; r < rows; r++ {
			copy(out.Data[r*total+pos:r*total+pos+w], p.Data[r*w:(r+1)*w])
		}
		pos += w
	}
	return out
}

// MeanSquare returns mean(x^2) over all elements, ignoring NaNs. Zero for an
// empty tensor. Signal scale used to derive the generic-linear regularizer.
func (t *Tensor) MeanSquare() float64 {
	sum, n := 0.0, 0
	for _, v := range t.Data {
		if math.IsNaN(v) {
			continue
		}
		sum += v * v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
