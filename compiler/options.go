package compiler

import (
	"github.com/xyproto/env/v2"
)

type (
	Options struct {
		// SpillAll sends every register to a spill slot.
		SpillAll bool

		// KeepDead disables dead instruction elimination.
		KeepDead bool

		// NoCopyProp disables copy and target propagation.
		NoCopyProp bool

		// Regs limits the palette. Zero means all of it.
		Regs int
	}
)

// OptionsFromEnv reads option defaults from ILOCC_* variables.
func OptionsFromEnv() Options {
	return Options{
		SpillAll:   env.Bool("ILOCC_SPILL_ALL"),
		KeepDead:   env.Bool("ILOCC_KEEP_DEAD"),
		NoCopyProp: env.Bool("ILOCC_NO_COPY_PROP"),
		Regs:       env.Int("ILOCC_REGS", 0),
	}
}

func (o Options) palette(n int) int {
	if o.Regs > 0 && o.Regs < n {
		return o.Regs
	}

	return n
}
