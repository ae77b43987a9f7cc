package mixer

import "DHX/model"

// Volumes 根据推子位置 x 和主音量计算两侧音量
// 推子越过中点之前，两侧都保持主音量
func Volumes(x, master float64) (left, right float64) {
	left = master * (1 - max(0, (x-0.5)*2))
	right = master * (1 - max(0, (0.5-x)*2))
	return left, right
}

// volumeScale 相对主音量的比例，同步到曲目记录
func volumeScale(v, master float64) float64 {
	if master <= 0 {
		return 0
	}
	return v / master
}

// recomputeVolumes 重新计算并设置两侧音量
func (c *Coordinator) recomputeVolumes() {
	left, right := Volumes(c.crossfader, c.master)
	c.decks[model.DeckLeft].SetVolume(left, volumeScale(left, c.master))
	c.decks[model.DeckRight].SetVolume(right, volumeScale(right, c.master))
}

// SetCrossfader 设置推子位置，限制在 [0,1]
func (c *Coordinator) SetCrossfader(x float64) error {
	return c.do(func() {
		c.crossfader = clamp01(x)
		c.recomputeVolumes()
		c.changed()
	})
}

// SetMasterVolume 设置主音量，限制在 [0,1]
func (c *Coordinator) SetMasterVolume(v float64) error {
	return c.do(func() {
		c.master = clamp01(v)
		c.recomputeVolumes()
		c.changed()
	})
}
