package analysis

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

const ffmpegSampleRate = 44100

// FFmpegDecoder 通过 ffmpeg 解码任意容器格式
type FFmpegDecoder struct {
	ffmpegPath string
	sampleRate int
}

// NewFFmpegDecoder 创建 FFmpeg 解码器
func NewFFmpegDecoder(ffmpegPath string) *FFmpegDecoder {
	return &FFmpegDecoder{ffmpegPath: ffmpegPath, sampleRate: ffmpegSampleRate}
}

// Decode 转换为 32 位浮点 PCM，只保留第一个声道
func (d *FFmpegDecoder) Decode(ctx context.Context, data []byte) (*PCM, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Format: "ffmpeg", Err: errEmptyInput}
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-af", "pan=mono|c0=c0",
		"-ar", strconv.Itoa(d.sampleRate),
		"-f", "f32le",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, d.ffmpegPath, args...)
	cmd.Stdin = bytes.NewReader(data)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &DecodeError{Format: "ffmpeg", Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))}
	}

	raw := out.Bytes()
	if len(raw) < 4 {
		return nil, &DecodeError{Format: "ffmpeg", Err: errors.New("no audio frames")}
	}
	samples := make([]float64, len(raw)/4)
	for i := range samples {
		samples[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
	}
	return &PCM{Samples: samples, SampleRate: d.sampleRate}, nil
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration 使用 ffprobe 获取文件或 URL 的时长
func ProbeDuration(ctx context.Context, ffmpegPath, input string) (float64, error) {
	ffprobePath := strings.Replace(ffmpegPath, "ffmpeg", "ffprobe", 1)

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		input,
	}

	cmd := exec.CommandContext(ctx, ffprobePath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed for %s: %w\nFFprobe Error: %s", input, err, stderr.String())
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &probe); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output for %s: %w", input, err)
	}
	if probe.Format.Duration == "" {
		return 0, fmt.Errorf("duration not found in ffprobe output for %s", input)
	}

	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q for %s: %w", probe.Format.Duration, input, err)
	}
	return duration, nil
}
