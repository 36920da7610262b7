package fum

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFTShift moves the zero frequency of an h*w plane to its center.
func FFTShift(plane []complex128, h, w int) []complex128 {
	return roll2(plane, h, w, h/2, w/2)
}

// IFFTShift undoes FFTShift, also for odd sizes.
func IFFTShift(plane []complex128, h, w int) []complex128 {
	return roll2(plane, h, w, -(h / 2), -(w / 2))
}

func roll2(plane []complex128, h, w, dy, dx int) []complex128 {
	out := make([]complex128, len(plane))
	for y := 0; y < h; y++ {
		ty := mod(y+dy, h)
		for x := 0; x < w; x++ {
			out[ty*w+mod(x+dx, w)] = plane[y*w+x]
		}
	}
	return out
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}

// fft2 is an in-place 2-D transform done as rows then columns. The
// inverse is not normalized.
type fft2 struct {
	h, w   int
	rows   *fourier.CmplxFFT
	cols   *fourier.CmplxFFT
	rowBuf []complex128
	colBuf []complex128
	colOut []complex128
}

func newFFT2(h, w int) *fft2 {
	return &fft2{
		h:      h,
		w:      w,
		rows:   fourier.NewCmplxFFT(w),
		cols:   fourier.NewCmplxFFT(h),
		rowBuf: make([]complex128, w),
		colBuf: make([]complex128, h),
		colOut: make([]complex128, h),
	}
}

func (f *fft2) transform(plane []complex128, inverse bool) {
	for y := 0; y < f.h; y++ {
		row := plane[y*f.w : (y+1)*f.w]
		copy(f.rowBuf, row)
		if inverse {
			f.rows.Sequence(row, f.rowBuf)
		} else {
			f.rows.Coefficients(row, f.rowBuf)
		}
	}

	for x := 0; x < f.w; x++ {
		for y := 0; y < f.h; y++ {
			f.colBuf[y] = plane[y*f.w+x]
		}
		if inverse {
			f.cols.Sequence(f.colOut, f.colBuf)
		} else {
			f.cols.Coefficients(f.colOut, f.colBuf)
		}
		for y := 0; y < f.h; y++ {
			plane[y*f.w+x] = f.colOut[y]
		}
	}
}

// FourierFilter scales the centered [H/2-t, H/2+t) x [W/2-t, W/2+t)
// square of every channel's shifted spectrum by scale and returns the
// real part of the inverse transform. The square is clipped to the plane.
func FourierFilter(x *Tensor, threshold int, scale float64) *Tensor {
	h, w := x.Height(), x.Width()
	out := x.Clone()
	if h == 0 || w == 0 {
		return out
	}

	f := newFFT2(h, w)
	n := float64(h * w)
	crow, ccol := h/2, w/2
	y0, y1 := clampInt(crow-threshold, 0, h), clampInt(crow+threshold, 0, h)
	x0, x1 := clampInt(ccol-threshold, 0, w), clampInt(ccol+threshold, 0, w)

	spectrum := make([]complex128, h*w)
	for b := 0; b < x.Batch(); b++ {
		for c := 0; c < x.Channels(); c++ {
			plane := out.Plane(b, c)
			for i, v := range plane {
				spectrum[i] = complex(float64(v), 0)
			}

			f.transform(spectrum, false)
			shifted := FFTShift(spectrum, h, w)
			for yy := y0; yy < y1; yy++ {
				for xx := x0; xx < x1; xx++ {
					shifted[yy*w+xx] *= complex(scale, 0)
				}
			}
			spectrum = IFFTShift(shifted, h, w)
			f.transform(spectrum, true)

			for i := range plane {
				plane[i] = float32(real(spectrum[i]) / n)
			}
		}
	}

	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
