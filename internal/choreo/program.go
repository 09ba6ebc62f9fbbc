package choreo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nabaztag-core/nabd/internal/actuator"
	"github.com/nabaztag-core/nabd/internal/protocol"
)

// Program is a time-quantized sequence of frames at a base tempo of 10ms
// per tick (spec §4.5).
type Program struct {
	Frames []Frame `json:"frames"`
}

// Frame specifies any subset of a tempo override, LED colors, ear targets
// and an inline audio cue; fields left nil/zero mean "no change this frame"
// (spec §4.5).
type Frame struct {
	// TempoMultiplier scales this frame's duration in 10ms ticks; 0 means 1.
	TempoMultiplier int `json:"tempo_multiplier,omitempty"`
	// LEDs has up to five entries, one per actuator.LEDIndex; a missing or
	// empty string entry means "hold previous".
	LEDs [actuator.LEDCount]string `json:"leds,omitempty"`
	// EarLeft/EarRight are ear targets in [-17,17]; nil means "no change".
	EarLeft  *int16 `json:"ear_left,omitempty"`
	EarRight *int16 `json:"ear_right,omitempty"`
	// AudioCue is an inline resource reference enqueued onto the audio sink
	// without blocking the LED/ear timeline (spec §4.5).
	AudioCue string `json:"audio_cue,omitempty"`
}

// Duration reports this frame's length in base ticks (minimum 1).
func (f Frame) Duration() int {
	if f.TempoMultiplier <= 0 {
		return 1
	}
	return f.TempoMultiplier
}

// ParseProgram decodes a choreography asset's bytes and validates colors and
// ear targets (spec §6.1 color/ear-position formats).
func ParseProgram(data []byte) (Program, error) {
	var p Program
	if err := json.Unmarshal(data, &p); err != nil {
		return Program{}, fmt.Errorf("%w: choreography decode: %v", protocol.ErrInvalidResource, err)
	}
	for i, frame := range p.Frames {
		for _, c := range frame.LEDs {
			if c == "" {
				continue
			}
			if err := protocol.ValidateColor(c); err != nil {
				return Program{}, fmt.Errorf("frame %d: %w", i, err)
			}
		}
		if frame.EarLeft != nil {
			if err := protocol.ValidateEarPosition(int(*frame.EarLeft)); err != nil {
				return Program{}, fmt.Errorf("frame %d: %w", i, err)
			}
		}
		if frame.EarRight != nil {
			if err := protocol.ValidateEarPosition(int(*frame.EarRight)); err != nil {
				return Program{}, fmt.Errorf("frame %d: %w", i, err)
			}
		}
	}
	return p, nil
}

// TickDuration is the base tempo quantum (spec §4.5, §9 GLOSSARY).
const TickDuration = 10 * time.Millisecond
