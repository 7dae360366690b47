package transform

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// errorVelocityScale weights the difference between the two beam pairs that
// forms the error velocity.
const errorVelocityScale = 0.25

// BeamMatrix returns the 4x4 matrix that converts beam velocities [B0 B1 B2 B3]
// into instrument velocities [X Y Z Err] for a slant 4-beam transducer whose
// beams are beamAngle degrees from the transducer axis.
//
// Beams 0 and 1 form the X pair and beams 2 and 3 the Y pair. Z is positive
// toward the transducer face.
func BeamMatrix(beamAngle float64) *mat.Dense {
	rad := beamAngle * math.Pi / 180.0
	a := 1.0 / (2.0 * math.Sin(rad))
	b := 1.0 / (4.0 * math.Cos(rad))
	e := errorVelocityScale

	return mat.NewDense(4, 4, []float64{
		-a, a, 0, 0,
		0, 0, -a, a,
		-b, -b, -b, -b,
		e, e, -e, -e,
	})
}

// instrumentToShip maps instrument X, Y, Z onto the starboard, forward, up axes
// the tilt and heading rotations expect. Instrument Y is mounted to port.
var instrumentToShip = mat.NewDense(3, 3, []float64{
	0, -1, 0,
	1, 0, 0,
	0, 0, 1,
})

// EarthRotation returns the 3x3 matrix that rotates an instrument frame vector
// [X Y Z] into the earth frame [East North Up]. Tilt is applied first (roll,
// then pitch), then heading. Angles are in degrees.
func EarthRotation(heading, pitch, roll float64) *mat.Dense {
	var tilt mat.Dense
	tilt.Mul(pitchMatrix(pitch), rollMatrix(roll))

	var leveled mat.Dense
	leveled.Mul(&tilt, instrumentToShip)

	var rot mat.Dense
	rot.Mul(headingMatrix(heading), &leveled)
	return &rot
}

func headingMatrix(deg float64) *mat.Dense {
	s, c := math.Sincos(deg * math.Pi / 180.0)
	return mat.NewDense(3, 3, []float64{
		c, s, 0,
		-s, c, 0,
		0, 0, 1,
	})
}

func pitchMatrix(deg float64) *mat.Dense {
	s, c := math.Sincos(deg * math.Pi / 180.0)
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	})
}

func rollMatrix(deg float64) *mat.Dense {
	s, c := math.Sincos(deg * math.Pi / 180.0)
	return mat.NewDense(3, 3, []float64{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	})
}
