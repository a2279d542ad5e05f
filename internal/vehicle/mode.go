package vehicle

import "fmt"

// CustomMode is the PX4 custom_mode field carried in a HEARTBEAT. The main
// mode occupies bits 16..23 and the sub mode bits 24..31.
type CustomMode uint32

// MainMode is a PX4 main flight mode.
type MainMode uint8

const (
	MainModeManual MainMode = iota + 1
	MainModeAltitudeControl
	MainModePositionControl
	MainModeAuto
	MainModeAcro
	MainModeOffboard
	MainModeStabilized
	MainModeRattitude
)

func (m MainMode) String() string {
	switch m {
	case MainModeManual:
		return "MANUAL"
	case MainModeAltitudeControl:
		return "ALTCTL"
	case MainModePositionControl:
		return "POSCTL"
	case MainModeAuto:
		return "AUTO"
	case MainModeAcro:
		return "ACRO"
	case MainModeOffboard:
		return "OFFBOARD"
	case MainModeStabilized:
		return "STABILIZED"
	case MainModeRattitude:
		return "RATTITUDE"
	default:
		return fmt.Sprintf("MainMode(%d)", uint8(m))
	}
}

// PX4 AUTO sub modes used by this package.
const (
	AutoSubModeLoiter uint8 = 3
)

// ManualTakeover is the custom mode reported once the pilot flips the RC mode
// switch to Position control. Seeing it means the human has taken the vehicle
// back and autonomous control must stop at once. Its raw value is 196608.
const ManualTakeover = CustomMode(uint32(MainModePositionControl) << 16)

// NewCustomMode packs a PX4 main and sub mode.
func NewCustomMode(main MainMode, sub uint8) CustomMode {
	return CustomMode(uint32(main)<<16 | uint32(sub)<<24)
}

// Main returns the main mode.
func (c CustomMode) Main() MainMode {
	return MainMode((uint32(c) >> 16) & 0xff)
}

// Sub returns the sub mode.
func (c CustomMode) Sub() uint8 {
	return uint8((uint32(c) >> 24) & 0xff)
}

func (c CustomMode) String() string {
	if c.Sub() == 0 {
		return c.Main().String()
	}
	return fmt.Sprintf("%s.%d", c.Main(), c.Sub())
}
