package ensemble

import "fmt"

// Subsystem codes. The code identifies transducer frequency and beam pattern.
const (
	SubUnknown               byte = 0
	Sub2MHz4Beam20DegPiston  byte = '1'
	Sub1200kHz4Beam20Deg     byte = '2'
	Sub600kHz4Beam20Deg      byte = '3'
	Sub300kHz4Beam20Deg      byte = '4'
	Sub2MHz4Beam30Deg        byte = '5'
	Sub1200kHz4Beam30Deg     byte = '6'
	Sub600kHz4Beam30Deg      byte = '7'
	Sub300kHz4Beam30Deg      byte = '8'
	Sub2MHzVertPiston        byte = '9'
	Sub1200kHzVertPiston     byte = 'A'
	Sub600kHzVertPiston      byte = 'B'
	Sub300kHzVertPiston      byte = 'C'
	Sub150kHz4Beam20DegArray byte = 'D'
)

// DefaultBeamAngle is the slant angle, in degrees from vertical, used when a
// subsystem code is not in the descriptor table.
const DefaultBeamAngle = 20.0

// Subsystem identifies the transducer configuration an ensemble was measured with.
type Subsystem struct {
	Code  byte `json:"code"`
	Index int  `json:"index"`
}

// Descriptor is the read-only configuration for a subsystem code.
type Descriptor struct {
	Code        byte
	FrequencyHz float64
	NumBeams    int
	// BeamAngle is the slant angle of each beam from the transducer axis, in
	// degrees. Zero for a vertical beam.
	BeamAngle   float64
	Vertical    bool
	Description string
}

// Slant reports whether the descriptor is a slant 4-beam configuration that
// supports the beam to instrument transform.
func (d Descriptor) Slant() bool {
	return !d.Vertical && d.NumBeams == DefaultNumBeams && d.BeamAngle > 0
}

var descriptors = map[byte]Descriptor{
	Sub2MHz4Beam20DegPiston:  {Sub2MHz4Beam20DegPiston, 2000000, 4, 20, false, "2 MHz 4 beam 20 degree piston"},
	Sub1200kHz4Beam20Deg:     {Sub1200kHz4Beam20Deg, 1200000, 4, 20, false, "1.2 MHz 4 beam 20 degree piston"},
	Sub600kHz4Beam20Deg:      {Sub600kHz4Beam20Deg, 600000, 4, 20, false, "600 kHz 4 beam 20 degree piston"},
	Sub300kHz4Beam20Deg:      {Sub300kHz4Beam20Deg, 300000, 4, 20, false, "300 kHz 4 beam 20 degree piston"},
	Sub2MHz4Beam30Deg:        {Sub2MHz4Beam30Deg, 2000000, 4, 30, false, "2 MHz 4 beam 30 degree piston"},
	Sub1200kHz4Beam30Deg:     {Sub1200kHz4Beam30Deg, 1200000, 4, 30, false, "1.2 MHz 4 beam 30 degree piston"},
	Sub600kHz4Beam30Deg:      {Sub600kHz4Beam30Deg, 600000, 4, 30, false, "600 kHz 4 beam 30 degree piston"},
	Sub300kHz4Beam30Deg:      {Sub300kHz4Beam30Deg, 300000, 4, 30, false, "300 kHz 4 beam 30 degree piston"},
	Sub2MHzVertPiston:        {Sub2MHzVertPiston, 2000000, 1, 0, true, "2 MHz vertical beam piston"},
	Sub1200kHzVertPiston:     {Sub1200kHzVertPiston, 1200000, 1, 0, true, "1.2 MHz vertical beam piston"},
	Sub600kHzVertPiston:      {Sub600kHzVertPiston, 600000, 1, 0, true, "600 kHz vertical beam piston"},
	Sub300kHzVertPiston:      {Sub300kHzVertPiston, 300000, 1, 0, true, "300 kHz vertical beam piston"},
	Sub150kHz4Beam20DegArray: {Sub150kHz4Beam20DegArray, 150000, 4, 20, false, "150 kHz 4 beam 20 degree phased array"},
}

// Lookup returns the descriptor for a subsystem code. Unknown codes resolve to a
// 4-beam descriptor with the default beam angle and ok is false.
func Lookup(code byte) (d Descriptor, ok bool) {
	d, ok = descriptors[code]
	if !ok {
		d = Descriptor{
			Code:        code,
			NumBeams:    DefaultNumBeams,
			BeamAngle:   DefaultBeamAngle,
			Description: "unknown",
		}
	}
	return d, ok
}

// Descriptor returns the subsystem's descriptor.
func (s Subsystem) Descriptor() Descriptor {
	d, _ := Lookup(s.Code)
	return d
}

// IsVerticalBeam reports whether the subsystem is a vertical piston beam.
func (s Subsystem) IsVerticalBeam() bool {
	return s.Descriptor().Vertical
}

func (s Subsystem) String() string {
	if s.Code == SubUnknown {
		return fmt.Sprintf("unknown[%d]", s.Index)
	}
	return fmt.Sprintf("%c[%d] %s", s.Code, s.Index, s.Descriptor().Description)
}
