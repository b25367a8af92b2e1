package generation

import (
	"errors"
	"fmt"

	"github.com/linkval/nvldiag/pkg/model"
)

// Encoder errors. Callers classify both as invalid arguments.
var (
	ErrEomMode  = errors.New("EOM mode not encodable")
	ErrEomRange = errors.New("EOM parameter out of range")
)

// eomWord describes a configuration word layout: a mode code followed by
// the error and block counts.
type eomWord struct {
	modes    map[model.EomMode]uint32
	errShift uint
	errBits  uint
	blkShift uint
	blkBits  uint
}

func (w eomWord) encode(mode model.EomMode, numErrors, numBlocks uint32) (uint32, error) {
	code, ok := w.modes[mode]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrEomMode, mode)
	}
	if maxErr := uint32(1)<<w.errBits - 1; numErrors > maxErr {
		return 0, fmt.Errorf("%w: numErrors %d > %d", ErrEomRange, numErrors, maxErr)
	}
	if maxBlk := uint32(1)<<w.blkBits - 1; numBlocks > maxBlk {
		return 0, fmt.Errorf("%w: numBlocks %d > %d", ErrEomRange, numBlocks, maxBlk)
	}
	return code | numErrors<<w.errShift | numBlocks<<w.blkShift, nil
}

// NRZ register word: mode [2:0], errors [6:4], blocks [11:8].
var eomWordNvl2 = eomWord{
	modes:    map[model.EomMode]uint32{model.EomModeX: 0, model.EomModeY: 1},
	errShift: 4, errBits: 3,
	blkShift: 8, blkBits: 4,
}

// Firmware word: mode [3:0], errors [7:4], blocks [12:8].
var eomWordNvl3 = eomWord{
	modes: map[model.EomMode]uint32{
		model.EomModeX:  0x0,
		model.EomModeXL: 0x1,
		model.EomModeXH: 0x2,
		model.EomModeY:  0x3,
	},
	errShift: 4, errBits: 4,
	blkShift: 8, blkBits: 5,
}

// PAM4 word: mode [3:0], errors [11:4], blocks [19:12].
var eomWordNvl4 = eomWord{
	modes: map[model.EomMode]uint32{
		model.EomModeX:  0x0,
		model.EomModeXL: 0x1,
		model.EomModeXH: 0x2,
		model.EomModeY:  0x3,
		model.EomModeYU: 0x4,
		model.EomModeYM: 0x5,
		model.EomModeYL: 0x6,
	},
	errShift: 4, errBits: 8,
	blkShift: 12, blkBits: 8,
}

// EncodeEomNvl2 encodes the NRZ configuration register word.
func EncodeEomNvl2(mode model.EomMode, numErrors, numBlocks uint32) (uint32, error) {
	return eomWordNvl2.encode(mode, numErrors, numBlocks)
}

// EncodeEomNvl3 encodes the firmware EOM setup word.
func EncodeEomNvl3(mode model.EomMode, numErrors, numBlocks uint32) (uint32, error) {
	return eomWordNvl3.encode(mode, numErrors, numBlocks)
}

// EncodeEomNvl4 encodes the PAM4 EOM word.
func EncodeEomNvl4(mode model.EomMode, numErrors, numBlocks uint32) (uint32, error) {
	return eomWordNvl4.encode(mode, numErrors, numBlocks)
}
