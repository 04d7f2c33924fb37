package audio

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// ErrDeviceNotFound 表示没有设备同时满足名称和 host API 条件。
var ErrDeviceNotFound = errors.New("找不到输出设备")

// Device 是驱动层枚举出的一个输出设备。
type Device struct {
	Name    string
	HostAPI int // 设备所属音频子系统的编号，用于区分不同后端下的同名设备
	Index   int // 在本次枚举结果中的全局序号

	// handle 由具体驱动层填充，打开设备时使用。
	handle interface{}
}

func (d Device) String() string {
	return fmt.Sprintf("#%d %q (host api %d)", d.Index, d.Name, d.HostAPI)
}

// DeviceNotFoundError 记录查找失败时请求的设备条件。
type DeviceNotFoundError struct {
	Name    string
	HostAPI int
}

func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("%s: '%s' (host api %d)", ErrDeviceNotFound, e.Name, e.HostAPI)
}

// Is 使 errors.Is(err, ErrDeviceNotFound) 成立。
func (e *DeviceNotFoundError) Is(target error) bool {
	return target == ErrDeviceNotFound
}

// FindDevice 按枚举顺序线性查找第一个名称包含 name 且 host API 等于 hostAPI 的设备。
func FindDevice(devices []Device, name string, hostAPI int) (Device, error) {
	for _, d := range devices {
		if strings.Contains(d.Name, name) && d.HostAPI == hostAPI {
			return d, nil
		}
	}
	return Device{}, &DeviceNotFoundError{Name: name, HostAPI: hostAPI}
}

// ListDevices 把驱动层枚举到的全部输出设备以表格形式写入 w。
func ListDevices(w io.Writer, backend Backend) error {
	devices, err := backend.Devices()
	if err != nil {
		return fmt.Errorf("枚举音频设备失败: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tHOST API\tNAME")
	for _, d := range devices {
		fmt.Fprintf(tw, "%d\t%d\t%s\n", d.Index, d.HostAPI, d.Name)
	}
	return tw.Flush()
}
