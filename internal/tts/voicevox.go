package tts

import (
	"context"

	"github.com/iabetor/vvsay/internal/audio"
)

// voiceGetter 是 VoiceVoxEngine 依赖的 voicevox.Client 方法。
type voiceGetter interface {
	GetVoice(ctx context.Context, text string, speaker int) (*audio.Buffer, error)
}

// VoiceVoxEngine 使用本机 VOICEVOX 引擎合成语音。
type VoiceVoxEngine struct {
	client  voiceGetter
	speaker int
}

// NewVoiceVoxEngine 创建使用固定话者的 VOICEVOX 引擎。
func NewVoiceVoxEngine(client voiceGetter, speaker int) *VoiceVoxEngine {
	return &VoiceVoxEngine{client: client, speaker: speaker}
}

// Synthesize 实现 Engine。
func (e *VoiceVoxEngine) Synthesize(ctx context.Context, text string) (*audio.Buffer, error) {
	return e.client.GetVoice(ctx, text, e.speaker)
}
