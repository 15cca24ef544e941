//go:build !linux && !darwin && !freebsd

package api

import "errors"

func diskSpace(string) (free, total uint64, err error) {
	return 0, 0, errors.New("not supported on this platform")
}
