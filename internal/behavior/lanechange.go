package behavior

import (
	"errors"
	"fmt"
)

var ErrUnmappedMode = errors.New("behavior: no translation for mode")

// LaneChangeMode is a lane-change driving style.
type LaneChangeMode int

const (
	LaneChangeDefault LaneChangeMode = iota
	LaneChangeOff
	LaneChangeFollowRoute
	LaneChangeAggressive
	LaneChangeCooperative
	LaneChangeCautious
	LaneChangePassive
)

var laneChangeNames = map[LaneChangeMode]string{
	LaneChangeDefault:     "default",
	LaneChangeOff:         "off",
	LaneChangeFollowRoute: "follow_route",
	LaneChangeAggressive:  "aggressive",
	LaneChangeCooperative: "cooperative",
	LaneChangeCautious:    "cautious",
	LaneChangePassive:     "passive",
}

func (m LaneChangeMode) String() string {
	if s, ok := laneChangeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("LaneChangeMode(%d)", int(m))
}

// ParseLaneChangeMode resolves a style by name.
func ParseLaneChangeMode(name string) (LaneChangeMode, error) {
	for m, s := range laneChangeNames {
		if s == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: lane change %q", ErrUnmappedMode, name)
}

// RespectOtherDrivers selects how lane changes regard surrounding traffic (bits 8 and 9).
type RespectOtherDrivers int

const (
	DoNotRespect RespectOtherDrivers = iota
	AvoidCollisions
	RespectGapsAdaptSpeed
	RespectGapsDoNotAdaptSpeed
)

// LaneChangeMask builds a lane-change mode. For every change kind the lower
// bit lets the engine perform the change unless it conflicts with a
// requested change, the upper bit lets it override requested changes.
type LaneChangeMask struct {
	bits uint16
}

func (m *LaneChangeMask) Strategic(enabled, override bool) *LaneChangeMask {
	return m.pair(0, enabled, override)
}

func (m *LaneChangeMask) Cooperative(enabled, override bool) *LaneChangeMask {
	return m.pair(2, enabled, override)
}

func (m *LaneChangeMask) Speed(enabled, override bool) *LaneChangeMask {
	return m.pair(4, enabled, override)
}

func (m *LaneChangeMask) RightDrive(enabled, override bool) *LaneChangeMask {
	return m.pair(6, enabled, override)
}

func (m *LaneChangeMask) Sublane(enabled, override bool) *LaneChangeMask {
	return m.pair(10, enabled, override)
}

// Respect sets bits 8 and 9. Unknown values return ErrUnmappedMode and leave m unchanged.
func (m *LaneChangeMask) Respect(r RespectOtherDrivers) (*LaneChangeMask, error) {
	var low, high bool
	switch r {
	case DoNotRespect:
	case AvoidCollisions:
		low = true
	case RespectGapsAdaptSpeed:
		high = true
	case RespectGapsDoNotAdaptSpeed:
		low, high = true, true
	default:
		return m, fmt.Errorf("%w: respect other drivers %d", ErrUnmappedMode, int(r))
	}
	m.set(8, low)
	m.set(9, high)
	return m, nil
}

func (m *LaneChangeMask) Int() int {
	return int(m.bits)
}

func (m *LaneChangeMask) pair(base uint, enabled, override bool) *LaneChangeMask {
	on, off := base, base+1
	if override {
		on, off = base+1, base
	}
	m.set(on, enabled)
	m.set(off, false)
	return m
}

func (m *LaneChangeMask) set(bit uint, v bool) {
	if v {
		m.bits |= 1 << bit
	} else {
		m.bits &^= 1 << bit
	}
}

// LaneChangeBits translates a style into its lane-change mask.
func LaneChangeBits(mode LaneChangeMode) (int, error) {
	m := &LaneChangeMask{}
	m.Sublane(true, false)
	respect := DoNotRespect
	switch mode {
	case LaneChangeOff:
		m.Sublane(false, false)
		respect = RespectGapsAdaptSpeed
	case LaneChangeFollowRoute:
		m.Sublane(false, false)
		m.Strategic(true, false)
		respect = RespectGapsAdaptSpeed
	case LaneChangeAggressive:
		m.Strategic(true, false).Speed(true, false)
	case LaneChangeCautious:
		m.Strategic(true, false).Cooperative(true, false).Speed(true, false).RightDrive(true, false)
		respect = RespectGapsDoNotAdaptSpeed
	case LaneChangeDefault, LaneChangeCooperative, LaneChangePassive:
		m.Strategic(true, false).Cooperative(true, false).Speed(true, false).RightDrive(true, false)
		respect = RespectGapsAdaptSpeed
	default:
		return 0, fmt.Errorf("%w: lane change %s", ErrUnmappedMode, mode)
	}
	if _, err := m.Respect(respect); err != nil {
		return 0, err
	}
	return m.Int(), nil
}
