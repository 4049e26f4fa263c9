package datewindow

import (
	"strings"

	"github.com/nao1215/deliverycal/internal/model"
)

// timePattern captures hour, minute and meridiem.
const timePattern = `(\d{1,2})(?:[:.](\d{2}))? ?(am|pm|a\.m\.?|p\.m\.?)?`

type clockText struct {
	hour     string
	minute   string
	meridiem string
}

func (c clockText) meridiemKey() string {
	return strings.ReplaceAll(c.meridiem, ".", "")
}

// parseTimeRange converts two clock texts into an ordered pair.
// At least one side must carry am/pm, or both must use HH:MM, so that day
// ranges such as "12-15" are never read as times. A side without am/pm
// borrows it from the other side and falls back to the opposite one when
// borrowing would not keep start before end ("10 - 2pm" is 10:00-14:00).
func parseTimeRange(start, end clockText) (model.Clock, model.Clock, bool) {
	sm, em := start.meridiemKey(), end.meridiemKey()
	if sm == "" && em == "" && (start.minute == "" || end.minute == "") {
		return model.Clock{}, model.Clock{}, false
	}

	candidates := [][2]string{{sm, em}}
	switch {
	case sm == "" && em != "":
		candidates = [][2]string{{em, em}, {opposite(em), em}}
	case sm != "" && em == "":
		candidates = [][2]string{{sm, sm}, {sm, opposite(sm)}}
	}

	for _, c := range candidates {
		s, ok := toClock(start, c[0])
		if !ok {
			continue
		}
		e, ok := toClock(end, c[1])
		if !ok {
			continue
		}
		if e.Minutes() > s.Minutes() {
			return s, e, true
		}
	}
	return model.Clock{}, model.Clock{}, false
}

func opposite(meridiem string) string {
	if meridiem == "am" {
		return "pm"
	}
	return "am"
}

// toClock interprets c with the given meridiem; an empty meridiem means
// 24-hour time.
func toClock(c clockText, meridiem string) (model.Clock, bool) {
	h, m := atoi(c.hour), atoi(c.minute)
	switch meridiem {
	case "am", "pm":
		if h < 1 || h > 12 {
			return model.Clock{}, false
		}
		h %= 12
		if meridiem == "pm" {
			h += 12
		}
	}
	clk, err := model.NewClock(h, m)
	if err != nil {
		return model.Clock{}, false
	}
	return clk, true
}
