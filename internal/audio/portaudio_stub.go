//go:build !portaudio

package audio

import "errors"

func openPortAudio() (Backend, error) {
	return nil, errors.New("未启用 portaudio 驱动，请使用 -tags portaudio 重新构建")
}
