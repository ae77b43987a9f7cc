package analysis

import "iter"

const (
	EnergyThreshold   = 0.1
	MinBeatGapSeconds = 0.3
	FallbackBPM       = 120.0
	MinBPM            = 60.0
	MaxBPM            = 200.0
)

// BeatEstimator 根据窗口能量序列估算节拍速度
type BeatEstimator struct {
	SampleRate int
	HopSize    int
}

// NewBeatEstimator 创建节拍估算器，hopSize 为相邻窗口的采样间隔
func NewBeatEstimator(sampleRate, hopSize int) BeatEstimator {
	if hopSize <= 0 {
		hopSize = DefaultHopSize
	}
	return BeatEstimator{SampleRate: sampleRate, HopSize: hopSize}
}

// Beats 返回能量超过阈值且距上一拍至少 MinBeatGapSeconds 的窗口时间（秒）
// 第一拍同样从第 0 个采样开始计算间隔
func (e BeatEstimator) Beats(energies iter.Seq[float64]) []float64 {
	if e.SampleRate <= 0 {
		return nil
	}
	minGap := MinBeatGapSeconds * float64(e.SampleRate)
	var (
		beats []float64
		last  int
		i     int
	)
	for energy := range energies {
		offset := i * e.HopSize
		i++
		if energy <= EnergyThreshold {
			continue
		}
		if float64(offset-last) < minGap {
			continue
		}
		beats = append(beats, float64(offset)/float64(e.SampleRate))
		last = offset
	}
	return beats
}

// Estimate 估算 BPM，限制在 [MinBPM, MaxBPM]；不足两拍时返回 FallbackBPM
func (e BeatEstimator) Estimate(energies iter.Seq[float64]) float64 {
	return BPMFromBeats(e.Beats(energies))
}

// BPMFromBeats 由节拍时间的平均间隔换算 BPM
func BPMFromBeats(beats []float64) float64 {
	if len(beats) < 2 {
		return FallbackBPM
	}
	var total float64
	for i := 1; i < len(beats); i++ {
		total += beats[i] - beats[i-1]
	}
	avg := total / float64(len(beats)-1)
	if avg <= 0 {
		return FallbackBPM
	}
	return min(max(60/avg, MinBPM), MaxBPM)
}
