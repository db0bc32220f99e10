package deltasnow

// Unit is a linear length unit used for snow depth input and SWE output.
type Unit string

const (
	Millimeter Unit = "mm"
	Centimeter Unit = "cm"
	Meter      Unit = "m"
)

// metres per unit
var unitFactor = map[Unit]float64{
	Millimeter: 0.001,
	Centimeter: 0.01,
	Meter:      1.0,
}

// ParseUnit converts a unit string ("mm", "cm" or "m") into a Unit
func ParseUnit(s string) (Unit, error) {
	u := Unit(s)
	if !u.Valid() {
		return "", validationf("unknown unit %q, expected one of mm, cm, m", s)
	}
	return u, nil
}

// Valid reports whether u is a known unit
func (u Unit) Valid() bool {
	_, ok := unitFactor[u]
	return ok
}

// Factor returns the number of metres in one u
func (u Unit) Factor() (float64, error) {
	f, ok := unitFactor[u]
	if !ok {
		return 0, validationf("unknown unit %q, expected one of mm, cm, m", string(u))
	}
	return f, nil
}

func (u Unit) String() string {
	return string(u)
}
