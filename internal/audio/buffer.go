package audio

import "time"

// Buffer 是解码后的一段音频：交错排列的 float32 样本（范围 [-1.0, 1.0]）及其格式。
// 创建后不再修改，播放时整体交给驱动层。
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames 返回帧数（每帧包含 Channels 个样本）。
func (b *Buffer) Frames() int {
	if b == nil || b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration 返回播放时长。
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}
