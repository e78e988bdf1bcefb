package behavior

import "fmt"

// SpeedMode is a speed-following driving style.
type SpeedMode int

const (
	SpeedDefault SpeedMode = iota
	SpeedAggressive
	SpeedNormal
	SpeedCautious
	SpeedSpeeder
)

var speedNames = map[SpeedMode]string{
	SpeedDefault:    "default",
	SpeedAggressive: "aggressive",
	SpeedNormal:     "normal",
	SpeedCautious:   "cautious",
	SpeedSpeeder:    "speeder",
}

func (m SpeedMode) String() string {
	if s, ok := speedNames[m]; ok {
		return s
	}
	return fmt.Sprintf("SpeedMode(%d)", int(m))
}

func ParseSpeedMode(name string) (SpeedMode, error) {
	for m, s := range speedNames {
		if s == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: speed %q", ErrUnmappedMode, name)
}

// SpeedMask builds a speed mode, one flag per bit.
type SpeedMask struct {
	bits uint8
}

func (m *SpeedMask) SafeSpeed(v bool) *SpeedMask           { return m.set(0, v) }
func (m *SpeedMask) MaxAcceleration(v bool) *SpeedMask     { return m.set(1, v) }
func (m *SpeedMask) MaxDeceleration(v bool) *SpeedMask     { return m.set(2, v) }
func (m *SpeedMask) RightOfWay(v bool) *SpeedMask          { return m.set(3, v) }
func (m *SpeedMask) BrakeHardAtRedLight(v bool) *SpeedMask { return m.set(4, v) }

func (m *SpeedMask) Int() int {
	return int(m.bits)
}

func (m *SpeedMask) set(bit uint, v bool) *SpeedMask {
	if v {
		m.bits |= 1 << bit
	} else {
		m.bits &^= 1 << bit
	}
	return m
}

// SpeedBits translates a style into its speed mask.
func SpeedBits(mode SpeedMode) (int, error) {
	m := &SpeedMask{}
	switch mode {
	case SpeedAggressive:
		m.MaxAcceleration(true).MaxDeceleration(true)
	case SpeedNormal:
		m.SafeSpeed(true).MaxAcceleration(true).MaxDeceleration(true).RightOfWay(true)
	case SpeedSpeeder:
		m.SafeSpeed(false).MaxAcceleration(true).MaxDeceleration(true).RightOfWay(true).BrakeHardAtRedLight(false)
	case SpeedCautious, SpeedDefault:
		m.SafeSpeed(true).MaxAcceleration(true).MaxDeceleration(true).RightOfWay(true).BrakeHardAtRedLight(true)
	default:
		return 0, fmt.Errorf("%w: speed %s", ErrUnmappedMode, mode)
	}
	return m.Int(), nil
}
