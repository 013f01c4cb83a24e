//go:build linux

package cdev

import (
	"github.com/warthog618/go-gpiocdev"

	"ledfx-go/errcode"
)

const consumer = "ledfx"

// Open requests offset on chip (a name such as "gpiochip0" or a /dev path)
// as an input; the controller switches it to output on Begin.
func Open(chip string, offset int, opts ...Option) (*Pin, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, errcode.Wrap(errcode.UnknownPin, "cdev.open", err)
	}
	l, err := c.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithConsumer(consumer))
	if err != nil {
		_ = c.Close()
		return nil, errcode.Wrap(errcode.UnknownPin, "cdev.open", err)
	}
	return newPin(&gpiodLine{chip: c, line: l}, opts...), nil
}

type gpiodLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpiodLine) SetValue(v int) error { return g.line.SetValue(v) }
func (g *gpiodLine) Output(v int) error   { return g.line.Reconfigure(gpiocdev.AsOutput(v)) }
func (g *gpiodLine) Input() error         { return g.line.Reconfigure(gpiocdev.AsInput) }

func (g *gpiodLine) Close() error {
	err := g.line.Close()
	if cerr := g.chip.Close(); err == nil {
		err = cerr
	}
	return err
}
