//go:build !linux

package cdev

import "ledfx-go/errcode"

// Open is only available on Linux.
func Open(chip string, offset int, opts ...Option) (*Pin, error) {
	return nil, &errcode.E{C: errcode.Unsupported, Op: "cdev.open", Msg: "gpio character device needs linux"}
}
