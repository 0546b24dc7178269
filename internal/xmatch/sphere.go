package xmatch

import "math"

// masPerDeg converts milliarcseconds to degrees.
const masPerDeg = 3600 * 1000

// Separation returns the great-circle angular separation between two sky
// positions, in degrees. It uses the haversine formulation, which stays
// numerically stable for separations near 0 and 180 degrees where the
// naive arccos form loses precision.
func Separation(ra1, dec1, ra2, dec2 float64) float64 {
	phi1 := dec1 * math.Pi / 180
	phi2 := dec2 * math.Pi / 180
	dPhi := phi2 - phi1
	dLambda := (ra2 - ra1) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	if h > 1 {
		h = 1
	}

	return 2 * math.Asin(math.Sqrt(h)) * 180 / math.Pi
}

// Propagate moves a position from its reference epoch to a target epoch
// using its proper motion. Proper motion is given in milliarcsec/year; the
// right ascension rate is a rate on great-circle distance, so it is
// de-projected by cos(dec) before being added to the coordinate.
func Propagate(ra, dec, pmRA, pmDec, fromEpoch, toEpoch float64) (float64, float64) {
	dt := toEpoch - fromEpoch
	cosDec := math.Cos(dec * math.Pi / 180)
	newRA := ra + (pmRA*dt/masPerDeg)/cosDec
	newDec := dec + pmDec*dt/masPerDeg
	return newRA, newDec
}

// AbsMag converts an apparent magnitude and a parallax in milliarcseconds to
// an absolute magnitude. The parallax must be positive; catalogs are expected
// to have been cleaned of non-positive parallaxes before this point.
func AbsMag(mag, parallaxMas float64) float64 {
	return mag + 5*(math.Log10(parallaxMas)-2)
}
