package tts

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"

	"github.com/iabetor/vvsay/internal/audio"
	"github.com/iabetor/vvsay/internal/logger"
)

// EdgeEngine 使用微软 Edge TTS 合成语音，不需要本机引擎。
type EdgeEngine struct {
	voice string
}

// NewEdgeEngine 创建指定语音的 Edge TTS 引擎。
func NewEdgeEngine(voice string) *EdgeEngine {
	return &EdgeEngine{voice: voice}
}

// Synthesize 收集 Edge TTS 流式返回的 MP3 块并解码为单声道音频。
func (e *EdgeEngine) Synthesize(ctx context.Context, text string) (*audio.Buffer, error) {
	logger.Debugf("[tts] edge-tts: 正在合成 %d 个字符，语音=%s", len([]rune(text)), e.voice)

	comm, err := edge.NewCommunicate(text, edge.WithVoice(e.voice))
	if err != nil {
		return nil, fmt.Errorf("[tts] edge-tts 创建实例失败: %w", err)
	}
	ch, err := comm.Stream()
	if err != nil {
		return nil, fmt.Errorf("[tts] edge-tts 开始流式合成失败: %w", err)
	}

	data, err := collectMP3(ctx, ch)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("[tts] edge-tts: 未收到音频数据")
	}

	buf, err := audio.DecodeMP3(data)
	if err != nil {
		return nil, fmt.Errorf("[tts] edge-tts: %w", err)
	}
	logger.Debugf("[tts] edge-tts: %d 字节 MP3 → %d 帧, %d Hz", len(data), buf.Frames(), buf.SampleRate)
	return buf, nil
}

// collectMP3 拼接流中的 audio 消息。ctx 取消后继续读空 ch，
// 让 edge-tts 的发送协程能够退出，但不再保留数据。
func collectMP3(ctx context.Context, ch <-chan map[string]interface{}) ([]byte, error) {
	var mp3Buf bytes.Buffer
	for msg := range ch {
		if ctx.Err() != nil {
			continue
		}
		if msgType, _ := msg["type"].(string); msgType != "audio" {
			continue
		}
		if data, ok := msg["data"].([]byte); ok {
			mp3Buf.Write(data)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return mp3Buf.Bytes(), nil
}
