package analysis

import "iter"

const (
	DefaultWindowSize = 1024
	DefaultHopSize    = 512
)

// Window 采样缓冲区中的一个定长窗口，Samples 与原缓冲区共享，不可修改
type Window struct {
	Index   int
	Start   int
	Samples []float64
}

// Energy 窗口内采样绝对值的平均值
func (w Window) Energy() float64 {
	if len(w.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range w.Samples {
		if s < 0 {
			s = -s
		}
		sum += s
	}
	return sum / float64(len(w.Samples))
}

// Windower 将单声道缓冲区切分为重叠窗口，不修改缓冲区，可重复迭代
type Windower struct {
	samples []float64
	size    int
	hop     int
}

// NewWindower 创建分窗器；非正数的大小使用默认值
func NewWindower(samples []float64, size, hop int) *Windower {
	if size <= 0 {
		size = DefaultWindowSize
	}
	if hop <= 0 {
		hop = DefaultHopSize
	}
	return &Windower{samples: samples, size: size, hop: hop}
}

func (w *Windower) Size() int { return w.size }
func (w *Windower) Hop() int  { return w.hop }

// Len 完整窗口的数量
func (w *Windower) Len() int {
	if len(w.samples) < w.size {
		return 0
	}
	return (len(w.samples)-w.size)/w.hop + 1
}

// Windows 按顺序产出每个完整窗口
func (w *Windower) Windows() iter.Seq[Window] {
	return func(yield func(Window) bool) {
		for i, start := 0, 0; start+w.size <= len(w.samples); i, start = i+1, start+w.hop {
			if !yield(Window{Index: i, Start: start, Samples: w.samples[start : start+w.size : start+w.size]}) {
				return
			}
		}
	}
}

// Energies 按顺序产出每个窗口的能量
func (w *Windower) Energies() iter.Seq[float64] {
	return func(yield func(float64) bool) {
		for win := range w.Windows() {
			if !yield(win.Energy()) {
				return
			}
		}
	}
}
