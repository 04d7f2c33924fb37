package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV 表示数据不是可解码的 WAV。
var ErrInvalidWAV = errors.New("无效的 WAV 数据")

const wavFormatPCM = 1

// DecodeWAV 将 WAV 字节流解码为 Buffer。
// 整数 PCM 按 2^(位深-1) 归一化，8 位 WAV 为无符号样本。
func DecodeWAV(data []byte) (*Buffer, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: 缺少 RIFF/WAVE 头或 fmt 块 (%d 字节)", ErrInvalidWAV, len(data))
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: 不支持的编码格式 %d", ErrInvalidWAV, d.WavAudioFormat)
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}

	bitDepth := int(d.BitDepth)
	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: 不支持的位深 %d", ErrInvalidWAV, bitDepth)
	}
	sampleRate := int(d.SampleRate)
	channels := int(d.NumChans)
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: 采样率 %d / 声道数 %d", ErrInvalidWAV, sampleRate, channels)
	}

	samples := make([]float32, len(pcm.Data))
	if bitDepth == 8 {
		for i, v := range pcm.Data {
			samples[i] = float32(v-128) / 128
		}
	} else {
		scale := float64(int64(1) << (bitDepth - 1))
		for i, v := range pcm.Data {
			samples[i] = float32(float64(v) / scale)
		}
	}

	return &Buffer{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}

// EncodeWAV 将 Buffer 以整数 PCM 写为 WAV。bitDepth 支持 16、24、32。
// 由 DecodeWAV 解码得到的同位深样本可以无损写回。
func EncodeWAV(w io.WriteSeeker, buf *Buffer, bitDepth int) error {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("不支持的位深: %d", bitDepth)
	}
	if buf == nil || buf.SampleRate <= 0 || buf.Channels <= 0 {
		return fmt.Errorf("无效的音频格式")
	}

	scale := float64(int64(1) << (bitDepth - 1))
	data := make([]int, len(buf.Samples))
	for i, s := range buf.Samples {
		v := math.Round(float64(s) * scale)
		data[i] = int(max(-scale, min(scale-1, v)))
	}

	format := &goaudio.Format{SampleRate: buf.SampleRate, NumChannels: buf.Channels}
	e := wav.NewEncoder(w, format.SampleRate, bitDepth, format.NumChannels, wavFormatPCM)
	if err := e.Write(&goaudio.IntBuffer{Format: format, Data: data, SourceBitDepth: bitDepth}); err != nil {
		return fmt.Errorf("写入 WAV 数据失败: %w", err)
	}
	if err := e.Close(); err != nil {
		return fmt.Errorf("写入 WAV 头失败: %w", err)
	}
	return nil
}
