package audio

import (
	"context"
	"fmt"

	"github.com/iabetor/vvsay/internal/logger"
)

// Backend 抽象音频驱动层：设备枚举和在指定设备上开始播放。
// 测试中可以用固定设备列表替换真实硬件。
type Backend interface {
	// Devices 枚举当前系统的输出设备，每次调用都重新查询。
	Devices() ([]Device, error)
	// Start 在 dev 上开始异步播放 buf，立即返回。
	Start(dev Device, buf *Buffer) (Playback, error)
	// Close 释放驱动层资源。
	Close()
}

// Playback 是一次正在进行的播放。
type Playback interface {
	// Done 在全部样本播放完毕（或播放因错误终止）后关闭。
	Done() <-chan struct{}
	// Err 返回导致播放终止的错误，只在 Done 关闭后有意义。
	Err() error
	// Stop 停止播放并释放设备，可重复调用。
	Stop()
}

// Player 持有选定的输出设备，在该设备上阻塞式播放音频。
// 设备在构造时确定，之后每次播放都显式传给驱动层。
type Player struct {
	backend Backend
	device  Device
}

// NewPlayer 在 backend 枚举的设备中选定输出设备。
// 名称按子串匹配，host API 按编号精确匹配，取第一个满足条件的设备；
// 找不到时返回 *DeviceNotFoundError。backend 的生命周期仍由调用方负责。
func NewPlayer(backend Backend, name string, hostAPI int) (*Player, error) {
	devices, err := backend.Devices()
	if err != nil {
		return nil, fmt.Errorf("枚举音频设备失败: %w", err)
	}

	dev, err := FindDevice(devices, name, hostAPI)
	if err != nil {
		return nil, err
	}

	logger.Infof("[audio] 输出设备: %s", dev)
	return &Player{backend: backend, device: dev}, nil
}

// Device 返回选定的输出设备。
func (p *Player) Device() Device {
	return p.device
}

// Play 在选定设备上播放 buf，阻塞直到播放完成或 ctx 被取消。
func (p *Player) Play(ctx context.Context, buf *Buffer) error {
	if buf == nil || len(buf.Samples) == 0 {
		return nil
	}
	if buf.SampleRate <= 0 || buf.Channels <= 0 {
		return fmt.Errorf("无效的音频格式: 采样率 %d, 声道数 %d", buf.SampleRate, buf.Channels)
	}

	pb, err := p.backend.Start(p.device, buf)
	if err != nil {
		return fmt.Errorf("启动播放失败: %w", err)
	}
	defer pb.Stop()

	logger.Debugf("[audio] 开始播放 %s, %d Hz, %d 声道", buf.Duration(), buf.SampleRate, buf.Channels)

	select {
	case <-ctx.Done():
		logger.Info("[audio] 播放被取消")
		return ctx.Err()
	case <-pb.Done():
		if err := pb.Err(); err != nil {
			return fmt.Errorf("播放失败: %w", err)
		}
		logger.Info("[audio] 播放完成")
		return nil
	}
}
