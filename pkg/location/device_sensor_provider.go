package location

import (
	"bufio"
	"context"
	"errors"
	"io"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"
)

const (
	// uereMeters approximates the user equivalent range error; HDOP times
	// this value gives a horizontal accuracy estimate.
	uereMeters = 5.0

	knotsToKmh = 1.852

	// maxSentences bounds how long a read waits for a matching RMC after a GGA fix.
	maxSentences = 32
)

// ErrNoFix is returned when the receiver output contains no usable position.
var ErrNoFix = errors.New("no valid GPS fix")

// DeviceSensorProvider is responsible for retrieving location data from a GPS device connected via serial port.
type DeviceSensorProvider struct {
	open func() (io.ReadCloser, error)
}

// NewDeviceSensorProvider creates a new instance of DeviceSensorProvider with the specified port and baud rate.
func NewDeviceSensorProvider(port string, baudRate int) *DeviceSensorProvider {
	return NewReaderProvider(func() (io.ReadCloser, error) {
		return serial.OpenPort(&serial.Config{Name: port, Baud: baudRate, ReadTimeout: time.Second})
	})
}

// NewReaderProvider reads NMEA sentences from whatever open returns.
func NewReaderProvider(open func() (io.ReadCloser, error)) *DeviceSensorProvider {
	return &DeviceSensorProvider{open: open}
}

// GetLocation reads GPS data from the device and returns the device's location.
// Position, altitude and accuracy come from a GGA sentence of any talker;
// speed and course are added from an RMC sentence when the receiver sends one.
func (d *DeviceSensorProvider) GetLocation(ctx context.Context) (Location, error) {
	r, err := d.open()
	if err != nil {
		return Location{}, err
	}
	defer r.Close() // Ensure the port is closed when done

	var (
		loc      Location
		rmc      *nmea.RMC
		haveFix  bool
		afterFix int
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return Location{}, err
		}
		if haveFix {
			afterFix++
		}

		sentence, err := nmea.Parse(scanner.Text())
		if err != nil {
			// Partial lines are common right after opening the port.
			continue
		}

		switch s := sentence.(type) {
		case nmea.GGA:
			if s.FixQuality == nmea.Invalid || haveFix {
				continue
			}
			altitude := s.Altitude
			loc = Location{
				Latitude:  s.Latitude,
				Longitude: s.Longitude,
				Accuracy:  s.HDOP * uereMeters,
				Altitude:  &altitude,
			}
			haveFix = true
		case nmea.RMC:
			if s.Validity == nmea.ValidRMC {
				rmc = &s
			}
		}

		if haveFix && (rmc != nil || afterFix >= maxSentences) {
			break
		}
	}

	if err := scanner.Err(); err != nil && !haveFix {
		return Location{}, err
	}
	if !haveFix {
		return Location{}, ErrNoFix
	}

	if rmc != nil {
		speed := rmc.Speed * knotsToKmh
		course := rmc.Course
		loc.Speed, loc.Course = &speed, &course
	}
	return loc, nil
}
