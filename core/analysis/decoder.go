package analysis

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// PCM 解码后的音频，只保留第一个声道
type PCM struct {
	Samples    []float64
	SampleRate int
}

// Duration 返回时长（秒）
func (p *PCM) Duration() float64 {
	if p == nil || p.SampleRate <= 0 {
		return 0
	}
	return float64(len(p.Samples)) / float64(p.SampleRate)
}

// Decoder 音频解码接口
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*PCM, error)
}

// DecodeError 无法解码的音频数据
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("decode audio: %v", e.Err)
	}
	return fmt.Sprintf("decode %s audio: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError 判断 err 是否包含 *DecodeError
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

var errEmptyInput = errors.New("empty input")

// LooksLikeMP3 通过 ID3v2 标签或 MPEG 帧同步判断是否为 MP3
func LooksLikeMP3(data []byte) bool {
	if len(data) >= 3 && string(data[:3]) == "ID3" {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

// MP3Decoder 进程内解码 MP3
type MP3Decoder struct{}

// Decode 返回归一化到 [-1, 1] 的左声道
func (MP3Decoder) Decode(ctx context.Context, data []byte) (*PCM, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Format: "mp3", Err: errEmptyInput}
	}
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Format: "mp3", Err: err}
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, &DecodeError{Format: "mp3", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// go-mp3 固定输出 16 位小端立体声
	frames := len(raw) / 4
	if frames == 0 {
		return nil, &DecodeError{Format: "mp3", Err: errors.New("no audio frames")}
	}
	samples := make([]float64, frames)
	for i := range frames {
		left := int16(binary.LittleEndian.Uint16(raw[i*4:]))
		samples[i] = float64(left) / 32768.0
	}
	return &PCM{Samples: samples, SampleRate: d.SampleRate()}, nil
}

// MP3Duration 根据帧索引计算时长，不解码采样
func MP3Duration(data []byte) (float64, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, &DecodeError{Format: "mp3", Err: err}
	}
	if d.SampleRate() <= 0 || d.Length() <= 0 {
		return 0, nil
	}
	return float64(d.Length()/4) / float64(d.SampleRate()), nil
}

// ChainDecoder MP3 走进程内解码，其余格式交给 ffmpeg
type ChainDecoder struct {
	MP3      Decoder
	Fallback Decoder
}

// NewChainDecoder 创建组合解码器；ffmpegPath 为空时不启用 ffmpeg
func NewChainDecoder(ffmpegPath string) *ChainDecoder {
	c := &ChainDecoder{MP3: MP3Decoder{}}
	if ffmpegPath != "" {
		c.Fallback = NewFFmpegDecoder(ffmpegPath)
	}
	return c
}

func (c *ChainDecoder) Decode(ctx context.Context, data []byte) (*PCM, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: errEmptyInput}
	}
	if LooksLikeMP3(data) && c.MP3 != nil {
		pcm, err := c.MP3.Decode(ctx, data)
		if err == nil || c.Fallback == nil {
			return pcm, err
		}
	}
	if c.Fallback == nil {
		return nil, &DecodeError{Err: errors.New("unsupported container")}
	}
	return c.Fallback.Decode(ctx, data)
}
