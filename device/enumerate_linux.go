//go:build linux

package device

import (
	"path/filepath"
	"sort"
)

// enumerateNodes walks /dev/hidraw* the way spec §4.2's list() is
// described: "walk the OS HID surface". Node ordering is sorted so
// list() returns a stable, deterministic sequence across calls.
func enumerateNodes() ([]string, error) {
	nodes, err := filepath.Glob("/dev/hidraw*")
	if err != nil {
		return nil, err
	}
	sort.Strings(nodes)
	return nodes, nil
}

// interfaceNumber recovers the USB interface number for a hidraw node
// via /sys/class/hidraw/<node>/device, as spec §6 describes. Best
// effort: an unresolvable symlink yields -1, not an error, since it
// never blocks enumeration of the rest of the device set.
func interfaceNumber(node string) int {
	base := filepath.Base(node)
	sysPath := filepath.Join("/sys/class/hidraw", base, "device")
	resolved, err := filepath.EvalSymlinks(sysPath)
	if err != nil {
		return -1
	}
	ifaceDir := filepath.Base(filepath.Dir(resolved))
	var iface int
	if n, _ := sscanfInterfaceSuffix(ifaceDir, &iface); n != 1 {
		return -1
	}
	return iface
}

// sscanfInterfaceSuffix parses the trailing ":<config>.<iface>" USB
// interface-descriptor suffix conventionally present in the sysfs
// device path (e.g. "3-1:1.0" -> interface 0).
func sscanfInterfaceSuffix(s string, out *int) (int, error) {
	idx := -1
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			idx = i
			break
		}
	}
	if idx == -1 || idx == len(s)-1 {
		return 0, nil
	}
	val := 0
	for _, c := range s[idx+1:] {
		if c < '0' || c > '9' {
			return 0, nil
		}
		val = val*10 + int(c-'0')
	}
	*out = val
	return 1, nil
}
