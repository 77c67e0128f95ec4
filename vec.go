// Copyright (c) 2026 the gobps authors. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the authors.
// The authors accept no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.31
//

package gobps

import (
	"fmt"
	"math"
)

//-------------------------------------------------------------------
// Vec3
//-------------------------------------------------------------------

// 3D coordinate in the local site frame [m]
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

func NewVec3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (a Vec3) Add(b Vec3) Vec3 {
	return Vec3{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z}
}

func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}

func (a Vec3) Scale(s float64) Vec3 {
	return Vec3{X: a.X * s, Y: a.Y * s, Z: a.Z * s}
}

func (a Vec3) Dot(b Vec3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func (a Vec3) Norm() float64 {
	return math.Sqrt(a.Dot(a))
}

func (a Vec3) Dist(b Vec3) float64 {
	return a.Sub(b).Norm()
}

// Unit returns the normalized vector. The zero vector stays the zero vector.
func (a Vec3) Unit() Vec3 {
	n := a.Norm()
	if n == 0 {
		return Vec3{}
	}
	return a.Scale(1 / n)
}

// Convert to string
func (a Vec3) String() string {
	return fmt.Sprintf("%.4f %.4f %.4f", a.X, a.Y, a.Z)
}

// Centroid returns the mean of the given points. Empty input yields the origin.
func Centroid(pts []Vec3) Vec3 {
	if len(pts) == 0 {
		return Vec3{}
	}
	var c Vec3
	for _, p := range pts {
		c = c.Add(p)
	}
	return c.Scale(1 / float64(len(pts)))
}

// AngleAt returns the angle at vertex v subtended by a and b [rad].
// The cosine is clamped to [-1, 1] so floating point overshoot never
// leaves the arccos domain.
func AngleAt(v, a, b Vec3) float64 {
	u1 := a.Sub(v).Unit()
	u2 := b.Sub(v).Unit()
	c := u1.Dot(u2)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}
