package fan

import (
	"errors"
	"fmt"
)

// SpeedToPercentage converts a named speed level to its percentage.
//
// The speed list partitions (0, 100] into equal-width buckets in list order;
// each name maps to the upper bound of its bucket. With three levels, "low"
// maps to 33, "medium" to 66 and "high" to 100.
func SpeedToPercentage(speeds []string, speed string) (int, error) {
	if len(speeds) == 0 {
		return 0, errors.New("fan: speed list is empty")
	}
	for i, s := range speeds {
		if s == speed {
			return (i + 1) * 100 / len(speeds), nil
		}
	}
	return 0, fmt.Errorf("fan: speed %q is not in the speed list", speed)
}

// PercentageToSpeed converts a percentage in (0, 100] to the named speed
// whose bucket contains it. Percentage 0 is the caller's concern: it maps to
// the off state, not to any named speed.
//
// The conversion is stable under round-tripping: converting any named speed
// to a percentage and back yields the same name.
func PercentageToSpeed(speeds []string, percentage int) (string, error) {
	if len(speeds) == 0 {
		return "", errors.New("fan: speed list is empty")
	}
	if percentage <= 0 || percentage > 100 {
		return "", fmt.Errorf("%w: got %d", ErrInvalidPercentage, percentage)
	}
	for i, s := range speeds {
		if percentage <= (i+1)*100/len(speeds) {
			return s, nil
		}
	}
	// Unreachable: the last bucket bound is always 100.
	return speeds[len(speeds)-1], nil
}
