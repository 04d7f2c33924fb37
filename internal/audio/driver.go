package audio

import "fmt"

// OpenBackend 按驱动名称打开音频驱动层。
// backends 只对 malgo 有效，见 NewMalgoBackend。
func OpenBackend(driver string, backends []string) (Backend, error) {
	switch driver {
	case "", "malgo":
		return NewMalgoBackend(backends)
	case "portaudio":
		return openPortAudio()
	default:
		return nil, fmt.Errorf("未知的音频驱动: %s", driver)
	}
}
