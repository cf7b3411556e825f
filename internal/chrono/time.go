package chrono

import (
	"time"
	_ "time/tzdata"
)

var yerevan *time.Location

func init() {
	var err error
	yerevan, err = time.LoadLocation("Asia/Yerevan")
	if err != nil {
		panic(err)
	}
}

// Yerevan returns a [*time.Location] for Asia/Yerevan, the timezone the games are played in.
func Yerevan() *time.Location {
	return yerevan
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time, the timezone of the time will default to Asia/Yerevan.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(yerevan)
}
