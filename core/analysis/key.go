package analysis

import (
	"math"

	"github.com/mjibson/go-dsp/window"
)

const DefaultFFTSize = 8192

// PitchClasses 按 MIDI 音级排列的调名
var PitchClasses = [12]string{
	"C", "C#/Db", "D", "D#/Eb", "E", "F", "F#/Gb", "G", "G#/Ab", "A", "A#/Bb", "B",
}

// Chromagram 将加 Hann 窗后的开头采样归入 12 个音级
// 第 i 个 bin 视为频率 i*sampleRate/fftSize，幅值直接取自时域缓冲区，不做变换
func Chromagram(samples []float64, sampleRate, fftSize int) [12]float64 {
	var chroma [12]float64
	if fftSize <= 0 {
		fftSize = DefaultFFTSize
	}
	if sampleRate <= 0 {
		return chroma
	}

	buf := make([]float64, fftSize)
	n := copy(buf, samples)
	if n > 0 {
		window.Apply(buf[:n], window.Hann)
	}

	for i := 1; i < fftSize/2; i++ {
		freq := float64(i) * float64(sampleRate) / float64(fftSize)
		chroma[PitchClass(freq)] += math.Abs(buf[i])
	}
	return chroma
}

// PitchClass 以 A4 = 440 Hz 为基准，返回最近的十二平均律音级
func PitchClass(freq float64) int {
	midi := math.Floor(12*math.Log2(freq/440) + 69 + 0.5)
	pc := int(math.Mod(midi, 12))
	if pc < 0 {
		pc += 12
	}
	return pc
}

// EstimateKey 返回能量最强的音级；并列或静音时为 "C"
func EstimateKey(samples []float64, sampleRate, fftSize int) string {
	chroma := Chromagram(samples, sampleRate, fftSize)
	best := 0
	for i := 1; i < len(chroma); i++ {
		if chroma[i] > chroma[best] {
			best = i
		}
	}
	return PitchClasses[best]
}
