// Package codec implements the fixed 11-byte telemetry frame emitted by
// the alert beacons. The layout is big-endian:
//
//	offset 0  1B  category code (1=medical 2=police 3=fire 4=rescue)
//	offset 1  4B  latitude, signed int32, degrees * 10^6
//	offset 5  4B  longitude, signed int32, degrees * 10^6
//	offset 9  1B  battery percentage
//	offset 10 1B  flags (reserved)
//
// This is the only bit-exact contract in the system.
package codec

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/acasal/alertd/core/model"
)

// FrameSize is the exact length of a telemetry frame in bytes.
const FrameSize = 11

const coordScale = 1_000_000.0

// DecodeError reports a malformed telemetry frame. Messages carrying one
// are permanently rejected and must not be redelivered.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("codec: %s: %v", e.Reason, e.Err)
	}
	return "codec: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses a raw telemetry frame into an observation. Frames shorter
// than FrameSize or carrying out-of-range coordinates fail with a
// DecodeError; an unrecognized category code is not an error and falls
// back to medical. Decode is pure and has no side effects.
func Decode(payload []byte) (model.AlertObservation, error) {
	if len(payload) < FrameSize {
		return model.AlertObservation{}, &DecodeError{
			Reason: fmt.Sprintf("incomplete payload: %d bytes", len(payload)),
		}
	}

	lat := int32(binary.BigEndian.Uint32(payload[1:5]))
	lon := int32(binary.BigEndian.Uint32(payload[5:9]))

	obs := model.AlertObservation{
		Category: model.CategoryFromCode(payload[0]),
		Location: model.Location{
			Lat: float64(lat) / coordScale,
			Lon: float64(lon) / coordScale,
		},
		Battery: payload[9],
		Flags:   payload[10],
	}
	if !obs.Location.Valid() {
		return model.AlertObservation{}, &DecodeError{
			Reason: fmt.Sprintf("coordinates out of range: %.6f, %.6f", obs.Location.Lat, obs.Location.Lon),
		}
	}
	return obs, nil
}

// DecodeBase64 decodes a frame armored in base64, as delivered inside the
// uplink envelope. Malformed armoring is a DecodeError.
func DecodeBase64(data string) (model.AlertObservation, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return model.AlertObservation{}, &DecodeError{Reason: "malformed base64 armoring", Err: err}
	}
	return Decode(raw)
}

// Encode builds the wire frame for an observation. It is the inverse of
// Decode within the fixed-point precision of one microdegree and is used
// by the uplink simulator and round-trip tests.
func Encode(obs model.AlertObservation) []byte {
	buf := make([]byte, FrameSize)
	buf[0] = obs.Category.Code()
	binary.BigEndian.PutUint32(buf[1:5], uint32(int32(math.Round(obs.Location.Lat*coordScale))))
	binary.BigEndian.PutUint32(buf[5:9], uint32(int32(math.Round(obs.Location.Lon*coordScale))))
	buf[9] = obs.Battery
	buf[10] = obs.Flags
	return buf
}

// EncodeBase64 returns the armored form of Encode.
func EncodeBase64(obs model.AlertObservation) string {
	return base64.StdEncoding.EncodeToString(Encode(obs))
}
