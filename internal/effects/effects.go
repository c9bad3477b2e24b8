package effects

import (
	"fmt"
	"math"
	"strings"
)

type OpKind int

const (
	OpScale OpKind = iota
	OpCrop
	OpPad
)

func (k OpKind) String() string {
	switch k {
	case OpScale:
		return "scale"
	case OpCrop:
		return "crop"
	case OpPad:
		return "pad"
	default:
		return "unknown"
	}
}

// Op is one geometric step. W/H is the frame size after the step,
// X/Y the offset of the crop window (crop) or of the content (pad).
type Op struct {
	Kind OpKind
	W, H int
	X, Y int
}

// Plan turns a SrcW x SrcH frame into exactly DstW x DstH.
type Plan struct {
	SrcW, SrcH int
	DstW, DstH int
	Ops        []Op
}

// Normalize builds the vertical normalization plan:
// fit height, then center-crop the width, or when the frame is too narrow,
// fit width and center-crop or letterbox the height.
func Normalize(srcW, srcH, dstW, dstH int) Plan {
	p := Plan{SrcW: srcW, SrcH: srcH, DstW: dstW, DstH: dstH}

	if srcW <= 0 || srcH <= 0 {
		p.Ops = []Op{{Kind: OpScale, W: dstW, H: dstH}}
		return p
	}

	w, h := srcW, srcH
	if h != dstH {
		w = scaleDim(srcW, dstH, srcH)
		h = dstH
		p.Ops = append(p.Ops, Op{Kind: OpScale, W: w, H: h})
	}

	switch {
	case w > dstW:
		p.Ops = append(p.Ops, Op{Kind: OpCrop, W: dstW, H: dstH, X: (w - dstW) / 2, Y: 0})
	case w < dstW:
		// Масштаб по ширине вместо высоты
		h = scaleDim(srcH, dstW, srcW)
		w = dstW
		p.Ops = p.Ops[:0]
		if w != srcW || h != srcH {
			p.Ops = append(p.Ops, Op{Kind: OpScale, W: w, H: h})
		}
		if h > dstH {
			p.Ops = append(p.Ops, Op{Kind: OpCrop, W: dstW, H: dstH, X: 0, Y: (h - dstH) / 2})
		} else if h < dstH {
			p.Ops = append(p.Ops, Op{Kind: OpPad, W: dstW, H: dstH, X: 0, Y: (dstH - h) / 2})
		}
	}

	return p
}

// scaleDim returns round(v * num / den), never below 1.
func scaleDim(v, num, den int) int {
	r := int(math.Round(float64(v) * float64(num) / float64(den)))
	if r < 1 {
		r = 1
	}
	return r
}

// Identity reports whether the source already has the target size.
func (p Plan) Identity() bool {
	return len(p.Ops) == 0
}

// Size returns the frame size after every step has been applied.
func (p Plan) Size() (int, int) {
	w, h := p.SrcW, p.SrcH
	for _, op := range p.Ops {
		w, h = op.W, op.H
	}
	return w, h
}

// Filter renders the plan as an FFmpeg filter chain.
func (p Plan) Filter(padColor string) string {
	if padColor == "" {
		padColor = "black"
	}

	parts := make([]string, 0, len(p.Ops)+1)
	for _, op := range p.Ops {
		switch op.Kind {
		case OpScale:
			parts = append(parts, fmt.Sprintf("scale=%d:%d:flags=bicubic", op.W, op.H))
		case OpCrop:
			parts = append(parts, fmt.Sprintf("crop=%d:%d:%d:%d", op.W, op.H, op.X, op.Y))
		case OpPad:
			parts = append(parts, fmt.Sprintf("pad=%d:%d:%d:%d:color=%s", op.W, op.H, op.X, op.Y, padColor))
		}
	}
	parts = append(parts, "setsar=1")
	return strings.Join(parts, ",")
}

func (p Plan) String() string {
	if p.Identity() {
		return fmt.Sprintf("%dx%d (as is)", p.SrcW, p.SrcH)
	}
	steps := make([]string, len(p.Ops))
	for i, op := range p.Ops {
		steps[i] = fmt.Sprintf("%s %dx%d", op.Kind, op.W, op.H)
	}
	return fmt.Sprintf("%dx%d -> %s", p.SrcW, p.SrcH, strings.Join(steps, " -> "))
}
