// Package actuator defines the capability interfaces that decouple the
// scheduler and choreography engine from concrete hardware drivers (spec
// §1, §9: "abstract actuator classes with virtual methods become a small
// capability interface per device"). The real LED-strip/stepper/ALSA/RFID/
// GPIO drivers, the virtual/TUI backend (internal/virtual) and test mocks
// each implement these.
package actuator

import (
	"context"
	"time"
)

// Color is a six-lowercase-hex-character RGB value, no leading `#`.
type Color string

// LEDIndex identifies one of the five addressable LEDs.
type LEDIndex int

const (
	LEDLeft LEDIndex = iota
	LEDCenterLeft
	LEDCenter
	LEDCenterRight
	LEDRight
	LEDCount
)

// LEDFrame is an idempotent snapshot of all five LEDs. A nil entry means
// "leave unchanged" for hold-previous semantics (spec §4.5).
type LEDFrame [LEDCount]*Color

// LEDStrip drives the five LEDs. Set must return within the implementation's
// bound (recommended 500ms, spec §5) or the caller treats it as failed.
type LEDStrip interface {
	// Set writes a full snapshot. Implementations must be idempotent: writing
	// the same frame twice produces no visible change on the second call.
	Set(ctx context.Context, frame LEDFrame) error
	// Clear turns every LED off (spec §4.5, cancellation clears to 000000).
	Clear(ctx context.Context) error
}

// Ear identifies one of the two stepper-driven ears.
type Ear int

const (
	EarLeft Ear = iota
	EarRight
)

// EarController moves one ear asynchronously toward a target position in
// [-17,+17]. MoveTo does not block until arrival (spec §4.5: "the engine
// does not wait for arrival unless the next frame would issue a new target
// for the same ear").
type EarController interface {
	// MoveTo requests a new target position; implementations clamp to
	// [-17,17] and return immediately once the request is accepted.
	MoveTo(ctx context.Context, ear Ear, position int16) error
	// Halt stops the ear in place (spec §4.5, cancellation).
	Halt(ctx context.Context, ear Ear) error
	// Position reports the ear's last known position, used only to decide
	// whether a new frame reissues a target for an ear already in motion.
	Position(ear Ear) int16
}

// Asset is an opaque, preloaded playable/choreographable handle returned by
// a resource resolver (spec §6.3). Its fields are only meaningful to the
// AudioSink/choreography engine that produced it.
type Asset interface {
	// Name is a human-readable identifier for logging.
	Name() string
}

// AudioSink plays preloaded assets, optionally concatenated, through the
// single physical audio output.
type AudioSink interface {
	// Enqueue schedules an asset to play after whatever is already queued.
	// It does not block for playback to finish.
	Enqueue(ctx context.Context, asset Asset) error
	// Flush stops playback immediately and drops anything queued (spec §4.5,
	// cancellation).
	Flush(ctx context.Context) error
	// Drained reports whether everything enqueued has finished playing.
	Drained() <-chan struct{}
}

// AudioSource is the optional microphone input, consumed by an ASRSource
// implementation rather than by the scheduler directly.
type AudioSource interface {
	Name() string
	Start(ctx context.Context) (<-chan []byte, error)
	Close() error
}

// RFIDReader is the optional RFID reader.
type RFIDReader interface {
	// Write programs a tag; it must respect ctx's deadline and return
	// ErrNFCException-class errors on incompatible tags or a missing reader.
	Write(ctx context.Context, tech, uid, picture, app, data string) error
}

// Button is the single physical button, read continuously by the sensor
// dispatcher (spec §5: "the button and microphone are read-only inputs
// that the dispatcher reads continuously").
type Button interface {
	Events(ctx context.Context) (<-chan ButtonEvent, error)
}

type ButtonEventKind string

const (
	ButtonDown         ButtonEventKind = "down"
	ButtonUp           ButtonEventKind = "up"
	ButtonClick        ButtonEventKind = "click"
	ButtonDoubleClick  ButtonEventKind = "double_click"
	ButtonTripleClick  ButtonEventKind = "triple_click"
	ButtonHold         ButtonEventKind = "hold"
)

type ButtonEvent struct {
	Kind ButtonEventKind
	At   time.Time
}

// ASRSource turns captured audio into recognized intents (spec §4.7, ASR as
// a sensor event source).
type ASRSource interface {
	Intents(ctx context.Context) (<-chan ASRResult, error)
}

type ASRResult struct {
	Intent string
	Slots  map[string]string
	At     time.Time
}

// WakeDetector is the optional hot-word detector.
type WakeDetector interface {
	Detections(ctx context.Context) (<-chan time.Time, error)
}

// TTSSpeaker synthesizes arbitrary text instead of playing a preloaded
// asset.
type TTSSpeaker interface {
	Speak(ctx context.Context, locale, text string) error
}

// EarEventSource reports observed ear position changes, independent of the
// MoveTo commands that requested them (the stepper may coast).
type EarEventSource interface {
	Positions(ctx context.Context) (<-chan EarPositionEvent, error)
}

type EarPositionEvent struct {
	Ear      Ear
	Position int16
	At       time.Time
}

// RFIDEventSource reports tag detection/removal, independent of Write.
type RFIDEventSource interface {
	Events(ctx context.Context) (<-chan RFIDDetection, error)
}

type RFIDSupport string

const (
	RFIDFormatted   RFIDSupport = "formatted"
	RFIDForeignData RFIDSupport = "foreign-data"
	RFIDLocked      RFIDSupport = "locked"
	RFIDEmpty       RFIDSupport = "empty"
	RFIDUnknown     RFIDSupport = "unknown"
)

type RFIDDetection struct {
	Tech    string
	UID     string
	Removed bool
	Support RFIDSupport
	App     string
	Data    string
	At      time.Time
}

// Set is the full capability bundle the scheduler, choreography engine and
// sensor dispatcher are built against. A concrete backend (real hardware or
// internal/virtual) supplies one; nil fields are treated as "not present"
// (spec §1: audio input and RFID are optional).
type Set struct {
	LEDs   LEDStrip
	Ears   EarController
	EarPos EarEventSource
	Audio  AudioSink
	Mic    AudioSource
	RFID   RFIDReader
	RFIDEv RFIDEventSource
	Button Button
	ASR    ASRSource
	Wake   WakeDetector
	TTS    TTSSpeaker
}
