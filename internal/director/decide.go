package director

import "time"

// Camera names the director picks from. They must exist in the simulator's
// camera catalog.
const (
	CameraChase    = "Chase"
	CameraFarChase = "Far Chase"
	CameraGyro     = "Gyro"
)

const (
	// minElapsed replaces a zero or negative tick interval in speed math.
	minElapsed = 100 * time.Millisecond

	// minSpeed replaces a zero speed in gap math.
	minSpeed = 0.1

	aheadMin  = -0.1
	aheadMax  = 0.6
	behindMin = -0.4
	behindMax = -0.1
)

// Unwrap returns the current lap-distance fraction made continuous with
// prev across the start/finish line.
func Unwrap(prev, cur float64) float64 {
	if prev > 0.8 && cur < 0.2 {
		return cur + 1
	}
	return cur
}

// Speed returns meters per second covered between two fractions.
func Speed(trackLength, prev, cur float64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		elapsed = minElapsed
	}
	return trackLength * (Unwrap(prev, cur) - prev) / elapsed.Seconds()
}

// Kmh converts meters per second to kilometers per hour.
func Kmh(ms float64) float64 {
	return ms * 3.6
}

// Car is one entry of the per-car lap-distance array.
type Car struct {
	Idx    int
	Number string
	Pct    float64
}

// Trackers carry the followed car's previous sample between ticks. The zero
// value means no sample yet.
type Trackers struct {
	LastSwitch time.Time
	PrevTick   time.Time
	PrevPct    float64
}

// Input is everything one decision needs.
type Input struct {
	Now           time.Time
	TrackLength   float64
	Followed      Car
	Cars          []Car
	Trackers      Trackers
	Qualifying    bool
	DefaultCamera string
	SwitchDwell   time.Duration
	SlowSpeedKmh  float64
}

// Decision is the outcome of one tick.
type Decision struct {
	// Decided is false when no decision cycle ran this tick. Camera and
	// CarNumber are only meaningful when it is true.
	Decided   bool
	Camera    string
	CarNumber string

	SpeedMs  float64
	SpeedKmh float64
	Ahead    int
	Behind   int

	// Trackers to carry into the next tick.
	Trackers Trackers
}

// Decide is the pure camera decision for one tick.
func Decide(in Input) Decision {
	next := Trackers{
		LastSwitch: in.Trackers.LastSwitch,
		PrevTick:   in.Now,
		PrevPct:    in.Followed.Pct,
	}

	// Followed car off track: drop the sample so the next valid tick primes
	if in.Followed.Pct < 0 {
		return Decision{Trackers: Trackers{LastSwitch: in.Trackers.LastSwitch}}
	}

	// First sample after a reset only primes the trackers
	if in.Trackers.PrevTick.IsZero() || in.TrackLength <= 0 {
		return Decision{Trackers: next}
	}

	elapsed := in.Now.Sub(in.Trackers.PrevTick)
	speed := Speed(in.TrackLength, in.Trackers.PrevPct, in.Followed.Pct, elapsed)
	d := Decision{
		SpeedMs:  speed,
		SpeedKmh: Kmh(speed),
		Trackers: next,
	}

	divisor := speed
	if divisor == 0 {
		divisor = minSpeed
	}

	var trailing string
	for _, c := range in.Cars {
		if c.Idx == 0 || c.Idx == in.Followed.Idx || c.Pct < 0 {
			continue
		}
		gap := (c.Pct - in.Followed.Pct) * in.TrackLength / divisor
		switch classify(gap) {
		case closeAhead:
			if c.Number == in.Followed.Number {
				continue
			}
			d.Ahead++
		case closeBehind:
			d.Behind++
			trailing = c.Number
		}
	}

	switch {
	case in.Qualifying, d.SpeedKmh <= in.SlowSpeedKmh:
		d.Camera = CameraChase
		d.CarNumber = in.Followed.Number
	case in.Now.Sub(in.Trackers.LastSwitch) >= in.SwitchDwell:
		d.Camera, d.CarNumber = selectCamera(d.Ahead, d.Behind, in.Followed.Number, trailing, in.DefaultCamera)
	default:
		return d
	}

	d.Decided = true
	d.Trackers.LastSwitch = in.Now
	return d
}

type proximity int

const (
	notClose proximity = iota
	closeAhead
	closeBehind
)

// classify places a time gap in seconds into the ahead window (-0.1, 0.6]
// or the behind window (-0.4, -0.1].
func classify(gap float64) proximity {
	switch {
	case gap > aheadMin && gap <= aheadMax:
		return closeAhead
	case gap > behindMin && gap <= behindMax:
		return closeBehind
	default:
		return notClose
	}
}

func selectCamera(ahead, behind int, followed, trailing, defaultCamera string) (string, string) {
	total := ahead + behind
	switch {
	case ahead == 1 && total == 1:
		return CameraChase, followed
	case behind == 1 && total == 1:
		return CameraGyro, trailing
	case total > 1:
		return CameraFarChase, followed
	default:
		return defaultCamera, followed
	}
}
