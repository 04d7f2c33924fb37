//go:build portaudio

package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const portAudioFramesPerBuffer = 1024

// PortAudioBackend 使用 PortAudio 枚举和驱动输出设备。
// host API 编号与 PortAudio 自身的 host API 下标一致。
type PortAudioBackend struct{}

func openPortAudio() (Backend, error) {
	return NewPortAudioBackend()
}

// NewPortAudioBackend 初始化 PortAudio。
func NewPortAudioBackend() (*PortAudioBackend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("初始化 PortAudio 失败: %w", err)
	}
	return &PortAudioBackend{}, nil
}

// Devices 枚举所有具有输出声道的设备，Index 为 PortAudio 设备下标。
func (b *PortAudioBackend) Devices() ([]Device, error) {
	apis, err := portaudio.HostApis()
	if err != nil {
		return nil, fmt.Errorf("查询 host API 失败: %w", err)
	}
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("查询设备失败: %w", err)
	}

	var devices []Device
	for i, info := range infos {
		if info.MaxOutputChannels == 0 {
			continue
		}
		devices = append(devices, Device{
			Name:    info.Name,
			HostAPI: hostAPIIndex(apis, info.HostApi),
			Index:   i,
			handle:  info,
		})
	}
	return devices, nil
}

func hostAPIIndex(apis []*portaudio.HostApiInfo, api *portaudio.HostApiInfo) int {
	if api == nil {
		return -1
	}
	for i, a := range apis {
		if a == api || a.Name == api.Name {
			return i
		}
	}
	return -1
}

// Start 以阻塞写入模式打开输出流，并在后台 goroutine 中逐块写入样本。
func (b *PortAudioBackend) Start(dev Device, buf *Buffer) (Playback, error) {
	info, ok := dev.handle.(*portaudio.DeviceInfo)
	if !ok {
		return nil, fmt.Errorf("设备 %s 不是由 portaudio 枚举的", dev)
	}

	params := portaudio.HighLatencyParameters(nil, info)
	params.Output.Channels = buf.Channels
	params.SampleRate = float64(buf.SampleRate)
	params.FramesPerBuffer = portAudioFramesPerBuffer

	out := make([]float32, portAudioFramesPerBuffer*buf.Channels)
	stream, err := portaudio.OpenStream(params, out)
	if err != nil {
		return nil, fmt.Errorf("打开输出流失败: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("启动输出流失败: %w", err)
	}

	pb := &portAudioPlayback{stream: stream, done: make(chan struct{})}
	go pb.run(buf.Samples, out)
	return pb, nil
}

// Close 终止 PortAudio。
func (b *PortAudioBackend) Close() {
	_ = portaudio.Terminate()
}

type portAudioPlayback struct {
	stream   *portaudio.Stream
	done     chan struct{}
	err      error
	stopOnce sync.Once
}

func (p *portAudioPlayback) run(samples, out []float32) {
	defer close(p.done)
	for pos := 0; pos < len(samples); {
		n := copy(out, samples[pos:])
		clear(out[n:])
		pos += n
		if err := p.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			p.err = err
			return
		}
	}
}

func (p *portAudioPlayback) Done() <-chan struct{} { return p.done }

func (p *portAudioPlayback) Err() error { return p.err }

func (p *portAudioPlayback) Stop() {
	p.stopOnce.Do(func() {
		select {
		case <-p.done:
			// 正常结束时等待缓冲区播完
			_ = p.stream.Stop()
		default:
			_ = p.stream.Abort()
			<-p.done
		}
		_ = p.stream.Close()
	})
}
