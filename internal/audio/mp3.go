package audio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// DecodeMP3 将 MP3 数据解码为单声道 Buffer。
// go-mp3 总是输出立体声 S16LE，左右声道取平均得到单声道。
func DecodeMP3(data []byte) (*Buffer, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("MP3 解码失败: %w", err)
	}

	pcmData, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("读取 PCM 数据失败: %w", err)
	}

	return &Buffer{Samples: stereoToMono(BytesToInt16(pcmData)), SampleRate: decoder.SampleRate(), Channels: 1}, nil
}

// stereoToMono 把交错的 L/R int16 样本平均为单声道 float32，多出的半帧丢弃。
func stereoToMono(pcm []int16) []float32 {
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		mono := (float32(pcm[2*i]) + float32(pcm[2*i+1])) / 2
		samples[i] = mono / 32768
	}
	return samples
}
