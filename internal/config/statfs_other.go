//go:build !linux && !darwin

package config

import "errors"

var errNoStatfs = errors.New("free space probe not supported on this platform")

func availableBytes(string) (uint64, error) {
	return 0, errNoStatfs
}

func isNoSpace(error) bool { return false }

func isReadOnly(error) bool { return false }
