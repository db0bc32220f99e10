// Package deltasnow implements the delta.snow model of Winkler et al. (2021),
// which turns a series of snow depth observations into snow water
// equivalent.
//
// The snowpack is tracked as a stack of layers. Each step the existing
// layers settle under their own weight; the difference to the observed
// depth then decides whether fresh snow is added on top, the pack is scaled
// to the observation, or it is drenched and loses water as runoff. A snow-free
// observation resets the pack.
//
// Depths are handled in metres internally and SWE in kg/m2 (mm); the units
// of the input and output series are set through Params.
package deltasnow
