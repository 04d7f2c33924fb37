package tts

import (
	"context"
	"fmt"
	"time"

	"github.com/iabetor/vvsay/internal/audio"
	"github.com/iabetor/vvsay/internal/config"
	"github.com/iabetor/vvsay/internal/voicevox"
)

// Engine 定义语音合成后端接口。
type Engine interface {
	// Synthesize 将文本转换为可直接播放的音频。
	Synthesize(ctx context.Context, text string) (*audio.Buffer, error)
}

// NewEngine 按 tts.engine 创建合成引擎。requestID 会附加到发往 VOICEVOX 的请求上。
func NewEngine(cfg *config.Config, requestID string) (Engine, error) {
	switch cfg.TTS.Engine {
	case "voicevox", "":
		client, err := voicevox.NewClient(cfg.VoiceVox.BaseURL,
			voicevox.WithTimeout(time.Duration(cfg.VoiceVox.Timeout)*time.Second),
			voicevox.WithIgnoreStatus(cfg.VoiceVox.IgnoreStatus),
			voicevox.WithRequestID(requestID),
		)
		if err != nil {
			return nil, err
		}
		return NewVoiceVoxEngine(client, cfg.VoiceVox.SpeakerID()), nil
	case "edge":
		return NewEdgeEngine(cfg.TTS.Edge.Voice), nil
	case "tencent":
		engine, err := NewTencentEngine(TencentConfig{
			SecretID:  cfg.TTS.Tencent.SecretID,
			SecretKey: cfg.TTS.Tencent.SecretKey,
			VoiceType: cfg.TTS.Tencent.VoiceType,
			Region:    cfg.TTS.Tencent.Region,
		})
		if err != nil {
			return nil, err
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("[tts] 未知的引擎: %s", cfg.TTS.Engine)
	}
}
