package actuator

const (
	MaxPower = 1.0
	MinPower = -1.0
)

// MapToRange linearly maps value from [min, max] into [minReturn, maxReturn], clamping the result.
func MapToRange(value, min, max, minReturn, maxReturn float64) float64 {
	mappedValue := (maxReturn-minReturn)*(value-min)/(max-min) + minReturn

	if mappedValue > maxReturn {
		return maxReturn
	} else if mappedValue < minReturn {
		return minReturn
	} else {
		return mappedValue
	}
}

// PowerToFraction maps a motor power in [-1, 1] to the [0, 1] fraction of an ESC pulse range,
// with 0.5 as neutral.
func PowerToFraction(power float64) float64 {
	return MapToRange(power, MinPower, MaxPower, 0, 1)
}
