package audio

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/iabetor/vvsay/internal/logger"
)

var malgoBackends = map[string]malgo.Backend{
	"wasapi":     malgo.BackendWasapi,
	"dsound":     malgo.BackendDsound,
	"winmm":      malgo.BackendWinmm,
	"coreaudio":  malgo.BackendCoreaudio,
	"sndio":      malgo.BackendSndio,
	"audio4":     malgo.BackendAudio4,
	"oss":        malgo.BackendOss,
	"pulseaudio": malgo.BackendPulseaudio,
	"alsa":       malgo.BackendAlsa,
	"jack":       malgo.BackendJack,
	"aaudio":     malgo.BackendAaudio,
	"opensl":     malgo.BackendOpensl,
	"webaudio":   malgo.BackendWebaudio,
	"null":       malgo.BackendNull,
}

// MalgoBackend 使用 malgo (miniaudio) 枚举和驱动输出设备。
// 每个配置的后端对应一个 miniaudio 上下文，host API 编号就是后端在列表中的下标。
type MalgoBackend struct {
	contexts []*malgo.AllocatedContext
}

type malgoHandle struct {
	ctx *malgo.AllocatedContext
	id  malgo.DeviceID
}

// NewMalgoBackend 按名称列表初始化 miniaudio 上下文。
// names 为空时使用 miniaudio 的默认后端顺序，所有设备的 host API 为 0。
// 单个后端初始化失败只记录警告并保留空位，保证其余后端的编号不变。
func NewMalgoBackend(names []string) (*MalgoBackend, error) {
	if len(names) == 0 {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return nil, fmt.Errorf("初始化播放上下文失败: %w", err)
		}
		return &MalgoBackend{contexts: []*malgo.AllocatedContext{ctx}}, nil
	}

	b := &MalgoBackend{contexts: make([]*malgo.AllocatedContext, len(names))}
	ok := 0
	for i, name := range names {
		backend, known := malgoBackends[strings.ToLower(name)]
		if !known {
			b.Close()
			return nil, fmt.Errorf("未知的 malgo 后端 %q，可选: %s", name, strings.Join(MalgoBackendNames(), ", "))
		}
		ctx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, nil)
		if err != nil {
			logger.Warnf("[audio] 后端 %s (host api %d) 不可用: %v", name, i, err)
			continue
		}
		b.contexts[i] = ctx
		ok++
	}
	if ok == 0 {
		return nil, errors.New("没有可用的音频后端")
	}
	return b, nil
}

// MalgoBackendNames 返回 audio.backends 可用的后端名称。
func MalgoBackendNames() []string {
	names := make([]string, 0, len(malgoBackends))
	for name := range malgoBackends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Devices 枚举所有上下文中的播放设备。
func (b *MalgoBackend) Devices() ([]Device, error) {
	var devices []Device
	for api, ctx := range b.contexts {
		if ctx == nil {
			continue
		}
		infos, err := ctx.Devices(malgo.Playback)
		if err != nil {
			return nil, fmt.Errorf("查询播放设备失败 (host api %d): %w", api, err)
		}
		for i := range infos {
			devices = append(devices, Device{
				Name:    infos[i].Name(),
				HostAPI: api,
				Index:   len(devices),
				handle:  &malgoHandle{ctx: ctx, id: infos[i].ID},
			})
		}
	}
	return devices, nil
}

// Start 在 dev 上以 S16 格式开始播放 buf。
func (b *MalgoBackend) Start(dev Device, buf *Buffer) (Playback, error) {
	h, ok := dev.handle.(*malgoHandle)
	if !ok {
		return nil, fmt.Errorf("设备 %s 不是由 malgo 枚举的", dev)
	}

	pcmBytes := Float32ToBytes(buf.Samples)
	channels := uint32(buf.Channels)
	pos := 0
	pb := &malgoPlayback{done: make(chan struct{})}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = channels
	deviceConfig.Playback.DeviceID = h.id.Pointer()
	deviceConfig.SampleRate = uint32(buf.SampleRate)
	deviceConfig.PeriodSizeInFrames = 512
	deviceConfig.Periods = 2

	callbacks := malgo.DeviceCallbacks{
		Data: func(outputSamples, inputSamples []byte, frameCount uint32) {
			out := outputSamples[:min(len(outputSamples), int(frameCount)*int(channels)*2)]
			n := copy(out, pcmBytes[pos:])
			clear(out[n:])
			pos += n
			// 数据全部交给设备后，下一个周期再通知完成，保证最后一段被实际播出
			if n == 0 {
				pb.finish()
			}
		},
	}

	device, err := malgo.InitDevice(h.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("初始化播放设备失败: %w", err)
	}
	pb.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("启动播放设备失败: %w", err)
	}
	return pb, nil
}

// Close 释放所有 miniaudio 上下文。
func (b *MalgoBackend) Close() {
	for i, ctx := range b.contexts {
		if ctx == nil {
			continue
		}
		_ = ctx.Uninit()
		ctx.Free()
		b.contexts[i] = nil
	}
}

type malgoPlayback struct {
	device   *malgo.Device
	done     chan struct{}
	doneOnce sync.Once
	stopOnce sync.Once
}

func (p *malgoPlayback) finish() {
	p.doneOnce.Do(func() { close(p.done) })
}

func (p *malgoPlayback) Done() <-chan struct{} { return p.done }

func (p *malgoPlayback) Err() error { return nil }

func (p *malgoPlayback) Stop() {
	p.stopOnce.Do(func() {
		_ = p.device.Stop()
		p.device.Uninit()
		p.finish()
	})
}
