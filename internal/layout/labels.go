package layout

import (
	"strconv"
	"strings"

	"github.com/iliyamo/studyroom-seating/internal/model"
)

// NextSeatLabel returns one more than the largest numeric label among the
// SEAT nodes, or "1" when there is none.  Labels that are not plain
// non-negative integers, or do not fit in 32 bits, are ignored so the
// sequence can always be continued.
func NextSeatLabel(nodes []model.LayoutNode) string {
	return strconv.FormatUint(maxSeatNumber(nodes)+1, 10)
}

func maxSeatNumber(nodes []model.LayoutNode) uint64 {
	var top uint64
	for _, n := range nodes {
		if n.Kind != model.KindSeat {
			continue
		}
		if v, ok := seatNumber(n.Label); ok && v > top {
			top = v
		}
	}
	return top
}

func seatNumber(label string) (uint64, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(label), 10, 32)
	return v, err == nil
}
