package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iabetor/vvsay/internal/audio"
	"github.com/iabetor/vvsay/internal/config"
	"github.com/iabetor/vvsay/internal/logger"
	"github.com/iabetor/vvsay/internal/tts"
)

// ErrEmptyText 表示输入只有空白，没有可合成的内容。
var ErrEmptyText = errors.New("输入内容为空")

// Pipeline 把合成引擎和播放器串联起来：文本 → 音频 → 输出设备。
type Pipeline struct {
	engine  tts.Engine
	player  *audio.Player
	backend audio.Backend // 由 FromConfig 打开时持有，Close 时释放
}

// New 用已创建好的引擎和播放器组装 Pipeline。
func New(engine tts.Engine, player *audio.Player) *Pipeline {
	return &Pipeline{engine: engine, player: player}
}

// FromConfig 根据配置打开音频驱动、选定输出设备并创建合成引擎。
// 输出设备先于引擎确定，设备不存在时不会发出任何网络请求。
func FromConfig(cfg *config.Config, requestID string) (*Pipeline, error) {
	backend, err := audio.OpenBackend(cfg.Audio.Driver, cfg.Audio.Backends)
	if err != nil {
		return nil, fmt.Errorf("初始化音频驱动失败: %w", err)
	}
	p, err := build(cfg, backend, requestID)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return p, nil
}

func build(cfg *config.Config, backend audio.Backend, requestID string) (*Pipeline, error) {
	player, err := audio.NewPlayer(backend, cfg.Audio.Device, cfg.Audio.HostAPI)
	if err != nil {
		return nil, err
	}

	engine, err := tts.NewEngine(cfg, requestID)
	if err != nil {
		return nil, fmt.Errorf("初始化语音合成引擎失败: %w", err)
	}

	logger.Infof("[pipeline] 引擎=%s, 输出设备=%s", cfg.TTS.Engine, player.Device())
	p := New(engine, player)
	p.backend = backend
	return p, nil
}

// Device 返回播放使用的输出设备。
func (p *Pipeline) Device() audio.Device {
	return p.player.Device()
}

// Synthesize 只合成不播放。
func (p *Pipeline) Synthesize(ctx context.Context, text string) (*audio.Buffer, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	buf, err := p.engine.Synthesize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("语音合成失败: %w", err)
	}
	return buf, nil
}

// Speak 合成 text 并在输出设备上播放，阻塞直到播放结束。
// 返回合成得到的音频，便于调用方另行保存。
func (p *Pipeline) Speak(ctx context.Context, text string) (*audio.Buffer, error) {
	buf, err := p.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := p.player.Play(ctx, buf); err != nil {
		return buf, err
	}
	return buf, nil
}

// Close 释放 FromConfig 打开的音频驱动。
func (p *Pipeline) Close() {
	if p.backend != nil {
		p.backend.Close()
		p.backend = nil
	}
}
