//go:build !linux

package device

func enumerateNodes() ([]string, error) { return nil, ErrUnsupportedPlatform }

func interfaceNumber(node string) int { return -1 }
