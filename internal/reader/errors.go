package reader

import (
	"fmt"

	"github.com/intunewithnature/evtxkit/internal/format"
)

func errRecordTooLarge(size uint32, limit int) error {
	return fmt.Errorf("record size %d exceeds limit %d: %w", size, limit, format.ErrRecordInvalid)
}

func errRecordPastFreeSpace(size, freeSpace uint32) error {
	return fmt.Errorf("record size %d runs past free space 0x%X: %w", size, freeSpace, format.ErrRecordInvalid)
}

func errRecordOrder(id, last uint64) error {
	return fmt.Errorf("record id %d not above %d: %w", id, last, format.ErrRecordInvalid)
}
