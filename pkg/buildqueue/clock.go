package buildqueue

import "time"

// clock abstracts wall-clock reads so tests can control due-time-driven
// behavior deterministically instead of racing real time.NewTimer calls.
type clock func() time.Time

func systemClock() time.Time {
	return time.Now()
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
