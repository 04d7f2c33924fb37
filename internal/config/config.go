package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 是 vvsay 的顶层配置结构。
type Config struct {
	VoiceVox VoiceVoxConfig `yaml:"voicevox"`
	TTS      TTSConfig      `yaml:"tts"`
	Audio    AudioConfig    `yaml:"audio"`
	Log      LogConfig      `yaml:"log"`
	// Prompt 读取输入前打印的提示语。
	Prompt string `yaml:"prompt"`
}

// VoiceVoxConfig VOICEVOX 引擎连接配置。
type VoiceVoxConfig struct {
	BaseURL string `yaml:"base_url"`
	// Speaker 话者 ID。0 是合法的话者，所以用指针区分“未设置”。
	Speaker *int `yaml:"speaker"`
	// Timeout 单次 HTTP 请求超时（秒），0 表示不设超时。
	Timeout int `yaml:"timeout"`
	// IgnoreStatus 为 true 时合成接口的非 2xx 状态码只记录日志，响应体照常交给 WAV 解码。
	IgnoreStatus bool `yaml:"ignore_status"`
}

// SpeakerID 返回话者 ID，未设置时为 1。
func (v VoiceVoxConfig) SpeakerID() int {
	if v.Speaker == nil {
		return 1
	}
	return *v.Speaker
}

// TTSConfig 语音合成引擎选择。
type TTSConfig struct {
	Engine  string        `yaml:"engine"` // voicevox, edge, tencent
	Edge    EdgeConfig    `yaml:"edge"`
	Tencent TencentConfig `yaml:"tencent"`
}

// EdgeConfig Edge TTS 配置。
type EdgeConfig struct {
	Voice string `yaml:"voice"`
}

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID  string `yaml:"secret_id"`
	SecretKey string `yaml:"secret_key"`
	VoiceType int64  `yaml:"voice_type"`
	Region    string `yaml:"region"`
}

// AudioConfig 输出设备配置。
type AudioConfig struct {
	// Driver 音频驱动层: malgo 或 portaudio（需要 -tags portaudio 构建）。
	Driver string `yaml:"driver"`
	// Device 输出设备名称，按子串匹配。
	Device string `yaml:"device"`
	// HostAPI 设备所属的 host API 编号，与 Device 同时匹配。
	HostAPI int `yaml:"host_api"`
	// Backends malgo 的后端列表，HostAPI 即列表下标；为空使用 miniaudio 默认顺序。
	Backends []string `yaml:"backends"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// Default 返回全部使用默认值的配置。
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}
	return Parse(data, path)
}

// LoadOrDefault 与 Load 相同，但文件不存在时返回默认配置。
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse 解析 YAML 内容，name 仅用于错误信息。
func Parse(data []byte, name string) (*Config, error) {
	expanded := os.Expand(string(data), os.Getenv)

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", name, err)
	}

	setDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("配置文件 %s 无效: %w", name, err)
	}
	return cfg, nil
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.VoiceVox.BaseURL == "" {
		cfg.VoiceVox.BaseURL = "http://127.0.0.1:50021/"
	}
	if cfg.VoiceVox.Speaker == nil {
		speaker := 1
		cfg.VoiceVox.Speaker = &speaker
	}
	if cfg.TTS.Engine == "" {
		cfg.TTS.Engine = "voicevox"
	}
	if cfg.TTS.Edge.Voice == "" {
		cfg.TTS.Edge.Voice = "ja-JP-NanamiNeural"
	}
	if cfg.Audio.Driver == "" {
		cfg.Audio.Driver = "malgo"
	}
	if cfg.Audio.Device == "" {
		cfg.Audio.Device = "スピーカー"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "話す内容："
	}

	// 去除密钥两端可能的空白（环境变量展开后常见）
	cfg.TTS.Tencent.SecretID = strings.TrimSpace(cfg.TTS.Tencent.SecretID)
	cfg.TTS.Tencent.SecretKey = strings.TrimSpace(cfg.TTS.Tencent.SecretKey)
}

func (c *Config) validate() error {
	switch c.TTS.Engine {
	case "voicevox", "edge", "tencent":
	default:
		return fmt.Errorf("未知的 tts.engine: %s", c.TTS.Engine)
	}
	if c.VoiceVox.SpeakerID() < 0 {
		return fmt.Errorf("voicevox.speaker 不能为负数: %d", c.VoiceVox.SpeakerID())
	}
	if c.Audio.HostAPI < 0 {
		return fmt.Errorf("audio.host_api 不能为负数: %d", c.Audio.HostAPI)
	}
	return nil
}
