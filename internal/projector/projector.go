// Package projector implements the ESOH semantic projection: walking a
// decoder.DecodedMessage's expanded descriptors per subset and emitting
// GeoJSON-shaped observation messages, enriched by an Oscar station lookup.
package projector

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/metno/gobufr/internal/config"
	"github.com/metno/gobufr/internal/decoder"
	"github.com/metno/gobufr/internal/descriptor"
	"github.com/metno/gobufr/internal/logbuf"
	"github.com/metno/gobufr/internal/oscar"
)

// outputVersion tags the emitted message schema; the source has no
// analogous field to ground this on, so it is a fixed constant rather than
// anything derived from the BUFR envelope.
const outputVersion = "v1"

// Geometry is the GeoJSON Point geometry the projector always emits.
// Coordinates follow GeoJSON's own [lon, lat, height] axis order.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// Content is properties.content: the CF-named, unit-tagged observed value.
type Content struct {
	Encoding     string `json:"encoding"`
	StandardName string `json:"standard_name"`
	Unit         string `json:"unit"`
	Size         int    `json:"size"`
	Value        string `json:"value"`
	Code         *int   `json:"code,omitempty"`
}

// Properties is the GeoJSON Feature's properties object.
type Properties struct {
	Datetime     string  `json:"datetime"`
	Period       string  `json:"period,omitempty"`
	Platform     string  `json:"platform"`
	PlatformName string  `json:"platform_name,omitempty"`
	Content      Content `json:"content"`
}

func platformGateExcluded(id descriptor.Id) bool {
	if id.X == 10 || id.X == 22 {
		switch id.Y {
		case 55, 56, 67:
			return true
		}
	}
	switch id.X {
	case 25, 31, 35:
		return true
	}
	return false
}

// Project walks every subset of msg and returns the finite, strictly-
// ordered slice of JSON observation strings produced, per spec.md §4.6.
func Project(msg *decoder.DecodedMessage, template json.RawMessage, oscarReg oscar.StationLookup, window config.TimeWindow, log *logbuf.Buffer) []string {
	bufrID := fmt.Sprintf("%d-%d-%d", msg.Section1.Centre, msg.Section1.DataCategory, msg.Section1.Time.Unix())

	var out []string
	var envelopeOutputs []string // shared across subsets; see duplicate suppression below

	for s, descs := range msg.ExpandedPerSubset {
		projectSubset(msg, s, descs, bufrID, template, oscarReg, window, log, &out, &envelopeOutputs)
	}
	return out
}

func warnf(log *logbuf.Buffer, bufrID, format string, args ...any) {
	if log != nil {
		log.Warnf("projector", bufrID, format, args...)
	}
}

func projectSubset(msg *decoder.DecodedMessage, subsetIdx int, descs []descriptor.Descriptor, bufrID string, template json.RawMessage, oscarReg oscar.StationLookup, window config.TimeWindow, log *logbuf.Buffer, out, envelopeOutputs *[]string) {
	ctx := newObsContext()
	emitSeq := 0
	skip := false

	for _, desc := range descs {
		id := desc.ID

		if id.F == 3 {
			switch id.Decimal() {
			case 302034, 302040, 302045:
				ctx.sumFunction = true
			}
			continue
		}
		if id.F != 0 {
			continue
		}
		if skip {
			continue
		}

		if ctx.sensorLevelActive > 0 {
			ctx.sensorLevelActive--
		} else {
			ctx.sensorLevel = 0
		}
		ctx.periodUpdate = false

		strVal := msg.String(desc)
		if strVal == decoder.MissingString {
			ctx.prevDescriptorSet = true
			ctx.prevDescriptor = id.Packed()
			continue
		}

		if !ctx.platformChecked && id.X >= 10 && !platformGateExcluded(id) {
			ctx.platformChecked = true
			if !ctx.haveDate {
				warnf(log, bufrID, "subset %d: missing datetime, skipping", subsetIdx)
				skip = true
			} else if !window.Accept(ctx.measDatetime()) {
				warnf(log, bufrID, "subset %d: datetime %s outside acceptance window, skipping", subsetIdx, ctx.measDatetime())
				skip = true
			} else {
				if oscarReg != nil {
					if st, ok := oscarReg.Lookup(ctx.wigosID); ok {
						ctx.wigosID = st.WIGOS
						if math.IsNaN(ctx.lat) {
							ctx.lat = st.Latitude
						}
						if math.IsNaN(ctx.lon) {
							ctx.lon = st.Longitude
						}
						if ctx.platformName == "" {
							ctx.platformName = st.Name
						}
					}
				}
				if math.IsNaN(ctx.lat) || math.IsNaN(ctx.lon) {
					warnf(log, bufrID, "subset %d: missing geolocation, skipping", subsetIdx)
					skip = true
				} else if ctx.wigosID.Local == "" {
					ctx.wigosID = synthesizeShadowWIGOS(ctx)
				}
			}
			if skip {
				continue
			}
		}

		dispatchElement(ctx, msg, desc, strVal)
		if id.X == 1 && id.Y == 101 {
			if v, missing := msg.Int(desc); !missing {
				if _, ok := lookupCountryCode(int(v)); !ok {
					warnf(log, bufrID, "subset %d: unknown BUFR state identifier %d, WIGOS issuer set to 0", subsetIdx, v)
				}
			}
		}

		if isEmissionTrigger(id) {
			emitSeq++
			featureID := fmt.Sprintf("%s-%d-%d", bufrID, subsetIdx, emitSeq)
			dup := id.X == 10 && (id.Y == 4 || id.Y == 51)
			if s := buildFeature(featureID, ctx, msg, desc, strVal, template); s != "" {
				if dup && containsString(*envelopeOutputs, s) {
					warnf(log, bufrID, "subset %d: duplicate pressure emission, skipping", subsetIdx)
				} else {
					*out = append(*out, s)
					*envelopeOutputs = append(*envelopeOutputs, s)
				}
			}
		}

		ctx.prevDescriptorSet = true
		ctx.prevDescriptor = id.Packed()
	}
}

func containsString(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

// isEmissionTrigger reports whether id is one of the observation-value
// descriptors that produce an output message, per spec.md §4.6 step 4.
func isEmissionTrigger(id descriptor.Id) bool {
	switch id.X {
	case 10:
		switch id.Y {
		case 4, 51:
			return true
		}
	case 11:
		switch id.Y {
		case 1, 2:
			return true
		}
	case 12:
		switch id.Y {
		case 1, 3, 101, 103:
			return true
		}
	case 13:
		if id.Y == 3 {
			return true
		}
	case 22:
		switch id.Y {
		case 42, 43, 45:
			return true
		}
	}
	return false
}

// dispatchElement mutates ctx according to id's (X,Y) per spec.md §4.6
// step 4; emission-triggering descriptors are also read here but their
// value formatting happens in buildFeature.
func dispatchElement(ctx *obsContext, msg *decoder.DecodedMessage, desc descriptor.Descriptor, strVal string) {
	id := desc.ID
	switch id.X {
	case 1:
		dispatchPlatform(ctx, msg, desc, strVal)
	case 4:
		dispatchDatetime(ctx, msg, desc)
	case 5:
		v, missing := msg.Real(desc)
		if missing {
			return
		}
		switch id.Y {
		case 1, 2:
			ctx.lat = v
		case 12, 15, 16:
			if !math.IsNaN(ctx.lat) {
				ctx.lat += v
			}
		}
	case 6:
		v, missing := msg.Real(desc)
		if missing {
			return
		}
		switch id.Y {
		case 1, 2:
			ctx.lon = v
		case 12, 15, 16:
			if !math.IsNaN(ctx.lon) {
				ctx.lon += v
			}
		}
	case 7:
		switch id.Y {
		case 1, 2, 7, 10, 30:
			if v, missing := msg.Real(desc); !missing {
				ctx.height = v
			}
		case 62:
			if v, missing := msg.Real(desc); !missing {
				ctx.height = -v
			}
		case 31, 32, 33:
			if v, missing := msg.Int(desc); !missing {
				ctx.sensorLevel = int(v)
				if msg.Section1.DataCategory <= 1 {
					ctx.sensorLevelActive = 2
				}
			}
		}
	case 10:
		if id.Y == 9 {
			if v, missing := msg.Real(desc); !missing {
				ctx.height = v
			}
		}
	}
}

func dispatchPlatform(ctx *obsContext, msg *decoder.DecodedMessage, desc descriptor.Descriptor, strVal string) {
	ctx.platformStrings = append(ctx.platformStrings, strVal)
	id := desc.ID
	switch id.Y {
	case 1:
		if v, missing := msg.Int(desc); !missing {
			b := int(v)
			ctx.blockNumber = &b
			ctx.recomputeWMO()
		}
	case 2:
		if v, missing := msg.Int(desc); !missing {
			st := int(v)
			ctx.stationNumber = &st
			ctx.recomputeWMO()
		}
	case 15, 18, 19:
		ctx.platformName = strVal
	case 101:
		if v, missing := msg.Int(desc); !missing {
			if iso, ok := lookupCountryCode(int(v)); ok {
				ctx.wigosID.SetIssuer(uint16(iso))
			} else {
				ctx.wigosID.SetIssuer(0)
			}
		}
	case 102:
		ctx.wigosID.SetLocal(strVal)
	case 125:
		if v, missing := msg.Int(desc); !missing {
			ctx.wigosID.Series = int(v)
		}
	case 126:
		if v, missing := msg.Int(desc); !missing {
			ctx.wigosID.SetIssuer(uint16(v))
		}
	case 127:
		if v, missing := msg.Int(desc); !missing {
			ctx.wigosID.SetIssueNum(uint16(v))
		}
	case 128:
		ctx.wigosID.SetLocal(strVal)
	}
}

func dispatchDatetime(ctx *obsContext, msg *decoder.DecodedMessage, desc descriptor.Descriptor) {
	id := desc.ID
	if kind, ok := periodDescriptors[id.Y]; ok {
		v, missing := msg.Int(desc)
		if missing {
			return
		}
		keepSign := (msg.Section1.DataCategory == 2 && msg.Section1.IntDataSubcategory == 1) ||
			(ctx.prevDescriptorSet && ctx.prevDescriptor == id.Packed())
		val := int(v)
		if !keepSign && val > 0 {
			val = -val
		}
		ctx.applyPeriodDisplacement(id.Y, val)
		ctx.periodUpdate = true
		abs := val
		if abs < 0 {
			abs = -abs
		}
		ctx.period = fmt.Sprintf("%s%d%s", kind.prefix, abs, kind.unit)
		return
	}

	v, missing := msg.Int(desc)
	if missing {
		return
	}
	switch id.Y {
	case 1:
		ctx.year = int(v)
	case 2:
		ctx.month = int(v)
	case 3:
		ctx.day = int(v)
		ctx.haveDate = ctx.day != 0
	case 4:
		ctx.hour = int(v)
	case 5:
		ctx.min = int(v)
	case 6:
		ctx.sec = int(v)
	}
}

// buildFeature formats desc's value and merges a Feature document over
// template, per spec.md §4.6's message-assembly step.
func buildFeature(id string, ctx *obsContext, msg *decoder.DecodedMessage, desc descriptor.Descriptor, strVal string, template json.RawMessage) string {
	var fallbackName, fallbackUnit string
	if desc.Meta != nil {
		fallbackName, fallbackUnit = desc.Meta.Name, desc.Meta.Unit
	}
	name, unit := cfNameFor(desc.ID, fallbackName, fallbackUnit)

	content := Content{
		Encoding:     "utf-8",
		StandardName: name,
		Unit:         unit,
		Size:         len(strVal),
		Value:        strVal,
	}
	if desc.Meta != nil && desc.Meta.Unit == descriptor.UnitCodeTable {
		if v, missing := msg.Int(desc); !missing {
			code := int(v)
			content.Code = &code
		}
	}

	props := Properties{
		Datetime:     ctx.measDatetime().Format("2006-01-02T15:04:05+00:00"),
		Platform:     ctx.wigosID.String(),
		PlatformName: applyReplChars(ctx.platformName),
		Content:      content,
	}
	if ctx.period != "" {
		props.Period = ctx.period
	}

	geom := Geometry{Type: "Point", Coordinates: []float64{ctx.lon, ctx.lat, ctx.height}}

	base := map[string]json.RawMessage{}
	if len(template) > 0 {
		_ = json.Unmarshal(template, &base)
	}
	idBytes, _ := json.Marshal(id)
	versionBytes, _ := json.Marshal(outputVersion)
	typeBytes, _ := json.Marshal("Feature")
	geomBytes, _ := json.Marshal(geom)
	propsBytes, _ := json.Marshal(props)

	base["id"] = idBytes
	base["version"] = versionBytes
	base["type"] = typeBytes
	base["geometry"] = geomBytes
	base["properties"] = propsBytes

	b, err := json.Marshal(base)
	if err != nil {
		return ""
	}
	return string(b)
}
