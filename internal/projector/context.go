package projector

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/metno/gobufr/internal/wsi"
)

// obsContext is one subset's accumulated projection state, reset at the
// start of every subset per spec.md §4.6's context initialization.
type obsContext struct {
	lat, lon, height float64

	sensorLevel       int
	sensorLevelActive int

	platformChecked bool
	platformSkip    bool // set true once the gate decides to skip this subset

	wigosID           wsi.ID
	platformName      string
	platformStrings   []string // trimmed F=0,X=1 string values seen so far
	blockNumber       *int
	stationNumber     *int

	year, month, day, hour, min, sec int
	haveDate                         bool

	periodUpdate bool
	period       string

	sumFunction bool // set by a 3 02 034/040/045 sequence marker

	prevDescriptorSet bool
	prevDescriptor    uint32 // packed descriptor id of the previously processed element
}

func newObsContext() *obsContext {
	return &obsContext{
		lat:    math.NaN(),
		lon:    math.NaN(),
		height: math.NaN(),
	}
}

func (ctx *obsContext) measDatetime() time.Time {
	return time.Date(ctx.year, time.Month(ctx.month), ctx.day, ctx.hour, ctx.min, ctx.sec, 0, time.UTC)
}

// periodDescriptors maps a 0 04 0YY time-period-or-displacement Y code to
// its ISO 8601 duration prefix/unit, resolving spec.md §4.6's garbled
// literal unit-letter list onto the standard P../PT.. duration grammar
// (Y/M/D date components prefixed "P"; H/M/S time components prefixed
// "PT").
var periodDescriptors = map[uint8]struct{ prefix, unit string }{
	21: {"P", "Y"},
	22: {"P", "M"},
	23: {"P", "D"},
	73: {"P", "D"},
	24: {"PT", "H"},
	74: {"PT", "H"},
	25: {"PT", "M"},
	75: {"PT", "M"},
	26: {"PT", "S"},
	16: {"PT", "M"},
	86: {"PT", "S"},
}

func (ctx *obsContext) applyPeriodDisplacement(y uint8, val int) {
	switch y {
	case 21:
		ctx.setDatetime(ctx.measDatetime().AddDate(val, 0, 0))
	case 22:
		ctx.setDatetime(ctx.measDatetime().AddDate(0, val, 0))
	case 23, 73:
		ctx.setDatetime(ctx.measDatetime().AddDate(0, 0, val))
	case 24, 74:
		ctx.setDatetime(ctx.measDatetime().Add(time.Duration(val) * time.Hour))
	case 25, 75, 16:
		ctx.setDatetime(ctx.measDatetime().Add(time.Duration(val) * time.Minute))
	case 26, 86:
		ctx.setDatetime(ctx.measDatetime().Add(time.Duration(val) * time.Second))
	}
}

func (ctx *obsContext) setDatetime(t time.Time) {
	ctx.year, ctx.month, ctx.day = t.Year(), int(t.Month()), t.Day()
	ctx.hour, ctx.min, ctx.sec = t.Hour(), t.Minute(), t.Second()
}

// recomputeWMO promotes block+station into a legacy-WMO WIGOS local id
// once both are known, mirroring the source's setWmoId call site.
func (ctx *obsContext) recomputeWMO() {
	if ctx.blockNumber == nil || ctx.stationNumber == nil {
		return
	}
	ctx.wigosID.SetWMO(*ctx.blockNumber*1000 + *ctx.stationNumber)
}

// formatCoord renders v with the given positive/negative direction
// letters, 5 decimal places, matching spec.md §8 scenario 5's worked
// example ("S34.50000", "E138.60000").
func formatCoord(v float64, pos, neg byte) string {
	dir := pos
	if v < 0 {
		dir = neg
	}
	return fmt.Sprintf("%c%.5f", dir, math.Abs(v))
}

// synthesizeShadowWIGOS builds a shadow WIGOS id when the platform-check
// gate finds no usable WIGOS local id, per spec.md §4.6 step 3.
func synthesizeShadowWIGOS(ctx *obsContext) wsi.ID {
	id := wsi.Zero
	parts := strings.SplitN(defaultShadowWigos, "-", 4)
	if len(parts) >= 1 {
		if v, err := strconv.Atoi(parts[0]); err == nil {
			id.Series = v
		}
	}
	if len(parts) >= 2 {
		if v, err := strconv.ParseUint(parts[1], 10, 32); err == nil {
			id.SetIssuer(uint16(v))
		}
	}
	if len(parts) >= 3 {
		if v, err := strconv.ParseUint(parts[2], 10, 32); err == nil {
			id.SetIssueNum(uint16(v))
		}
	}

	var names []string
	for _, s := range ctx.platformStrings {
		if t := strings.TrimSpace(s); t != "" {
			names = append(names, t)
		}
	}
	local := strings.Join(names, "_")
	if len(local) > wsi.LocalMaxLen {
		local = local[:wsi.LocalMaxLen]
	}
	if local == "" {
		// Not capped: spec.md §8 scenario 5 expects the full lat/lon
		// encoding to survive even past the 16-char WIGOS local-id
		// length the source otherwise enforces for parsed ids.
		local = formatCoord(ctx.lat, 'N', 'S') + formatCoord(ctx.lon, 'E', 'W')
	}
	id.Local = local
	return id
}
