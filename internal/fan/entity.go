package fan

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/breezehub/breeze-core/internal/profile"
)

// Logger is the structured logging surface fan entities write to.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards everything.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Controller transmits opaque command payloads to the physical device.
// Implementations wrap an IR/RF blaster reached over MQTT or HTTP.
type Controller interface {
	Send(ctx context.Context, payload profile.CommandPayload) error
}

// Notifier receives a snapshot after every externally visible state change.
type Notifier interface {
	NotifyStateChanged(snapshot Snapshot)
}

// CommandMetrics records command dispatch telemetry. The influxdb client
// satisfies this directly.
type CommandMetrics interface {
	WriteCommandMetric(fanID string, command string, durationMs float64, success bool)
}

// Config identifies one fan entity. Values come from the service
// configuration; the profile supplies everything else.
type Config struct {
	ID         string
	Name       string
	DeviceCode int
}

// Deps carries the collaborators an Entity needs. Profile and Controller are
// required; the rest are optional and skipped when nil.
type Deps struct {
	Profile    *profile.Profile
	Controller Controller
	Store      AttributeStore
	History    HistoryRecorder
	Notifier   Notifier
	Metrics    CommandMetrics
	Logger     Logger
}

// Entity is one remote-controlled fan. It owns the fan's in-memory state and
// translates high-level operations into pre-recorded command transmissions.
//
// The state is a tri-state: off, on at a named speed, or on with an unknown
// speed (the power sensor saw the fan start without a command from us). The
// speed field holds the profile's off sentinel, a named speed, or the empty
// string for the unknown case.
type Entity struct {
	id         string
	name       string
	deviceCode int

	profile    *profile.Profile
	controller Controller
	store      AttributeStore
	history    HistoryRecorder
	notifier   Notifier
	metrics    CommandMetrics
	logger     Logger

	// mu serialises read-decide-mutate-send as one critical section. User
	// commands and power sensor callbacks both take it, so a rapid toggle
	// cannot interleave with a sensor event mid-transmission.
	mu          sync.Mutex
	speed       string
	direction   string
	oscillating bool
	lastOnSpeed string
	onByRemote  bool
	updatedAt   time.Time
}

// New creates a fan entity in the off state. Direction starts at reverse for
// profiles with direction support, matching the convention most ceiling fan
// remotes power up with.
func New(cfg Config, deps Deps) (*Entity, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("fan: id is required")
	}
	if deps.Profile == nil {
		return nil, fmt.Errorf("fan %s: profile is required", cfg.ID)
	}
	if deps.Controller == nil {
		return nil, fmt.Errorf("fan %s: controller is required", cfg.ID)
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	e := &Entity{
		id:         cfg.ID,
		name:       cfg.Name,
		deviceCode: cfg.DeviceCode,
		profile:    deps.Profile,
		controller: deps.Controller,
		store:      deps.Store,
		history:    deps.History,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		logger:     logger,
		speed:      profile.SpeedOff,
		updatedAt:  time.Now().UTC(),
	}
	if deps.Profile.SupportsDirection() {
		e.direction = profile.DirectionReverse
	}
	return e, nil
}

// ID returns the fan's unique identifier.
func (e *Entity) ID() string { return e.id }

// Name returns the fan's display name.
func (e *Entity) Name() string { return e.name }

// DeviceCode returns the numeric profile code the fan was configured with.
func (e *Entity) DeviceCode() int { return e.deviceCode }

// Profile returns the command profile the fan was initialised with.
// Profiles are immutable after load, so no locking is needed.
func (e *Entity) Profile() *profile.Profile { return e.profile }

// State returns "on" or "off". On-by-remote counts as on.
func (e *Entity) State() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.onByRemote || e.speed != profile.SpeedOff {
		return StateOn
	}
	return StateOff
}

// Percentage returns the current speed percentage. The second return value
// is false when the fan is on with an unknown speed; 0 with true means off.
func (e *Entity) Percentage() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.speed == "":
		return 0, false
	case e.speed == profile.SpeedOff:
		return 0, true
	default:
		pct, err := SpeedToPercentage(e.profile.Speeds, e.speed)
		if err != nil {
			return 0, false
		}
		return pct, true
	}
}

// Speed returns the current named speed (or the off sentinel). The second
// return value is false when the speed is unknown.
func (e *Entity) Speed() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.speed == "" {
		return "", false
	}
	return e.speed, true
}

// Direction returns the current rotation direction, or the empty string for
// profiles without direction support.
func (e *Entity) Direction() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.direction
}

// Oscillating reports whether oscillation is currently enabled.
func (e *Entity) Oscillating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.oscillating
}

// LastOnSpeed returns the most recent non-off speed, or the empty string if
// the fan has not been on yet.
func (e *Entity) LastOnSpeed() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastOnSpeed
}

// Snapshot returns a point-in-time view of the fan's state.
func (e *Entity) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Restore applies attributes persisted by a previous run, then publishes a
// snapshot so consumers see the restored state. It never transmits: the
// physical device is assumed unchanged across a restart. Values that no
// longer fit the profile (a renamed speed, a direction the profile lost)
// are dropped.
func (e *Entity) Restore(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	attrs, err := e.store.Load(ctx, e.id)
	if err != nil {
		return fmt.Errorf("restoring fan %s: %w", e.id, err)
	}
	if attrs == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if attrs.Speed == profile.SpeedOff || e.profile.HasSpeed(attrs.Speed) {
		e.speed = attrs.Speed
	}
	if e.profile.SupportsDirection() &&
		(attrs.Direction == profile.DirectionForward || attrs.Direction == profile.DirectionReverse) {
		e.direction = attrs.Direction
	}
	if e.profile.HasSpeed(attrs.LastOnSpeed) {
		e.lastOnSpeed = attrs.LastOnSpeed
	}

	e.notifyLocked(ctx, SourceRestore)
	return nil
}

// TurnOn powers the fan. Without an explicit percentage it resumes the last
// non-off speed, or the lowest level when none was recorded.
func (e *Entity) TurnOn(ctx context.Context, percentage *int) error {
	if percentage != nil {
		return e.SetPercentage(ctx, *percentage)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	resume := e.lastOnSpeed
	if resume == "" {
		resume = e.profile.Speeds[0]
	}
	pct, err := SpeedToPercentage(e.profile.Speeds, resume)
	if err != nil {
		return err
	}
	return e.setPercentageLocked(ctx, pct)
}

// TurnOff powers the fan down. Equivalent to SetPercentage(0).
func (e *Entity) TurnOff(ctx context.Context) error {
	return e.SetPercentage(ctx, 0)
}

// SetPercentage sets the fan speed. 0 turns the fan off; any other value in
// (0, 100] selects the named speed whose bucket contains it. The resolved
// command is transmitted and the new state published even when transmission
// fails (see transmitLocked).
func (e *Entity) SetPercentage(ctx context.Context, percentage int) error {
	if percentage < 0 || percentage > 100 {
		return fmt.Errorf("%w: got %d", ErrInvalidPercentage, percentage)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setPercentageLocked(ctx, percentage)
}

func (e *Entity) setPercentageLocked(ctx context.Context, percentage int) error {
	if percentage == 0 {
		e.speed = profile.SpeedOff
	} else {
		speed, err := PercentageToSpeed(e.profile.Speeds, percentage)
		if err != nil {
			return err
		}
		e.speed = speed
		e.lastOnSpeed = speed
	}

	err := e.transmitLocked(ctx, "set_percentage")
	e.notifyLocked(ctx, SourceCommand)
	return err
}

// Oscillate enables or disables oscillation. The flag is set in place, then
// the command for the resulting state is transmitted: the oscillate command
// when enabling, the current speed (or off) command otherwise.
func (e *Entity) Oscillate(ctx context.Context, oscillating bool) error {
	if !e.profile.SupportsOscillation() {
		return fmt.Errorf("%w: oscillation", ErrNotSupported)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.oscillating = oscillating
	err := e.transmitLocked(ctx, "oscillate")
	e.notifyLocked(ctx, SourceCommand)
	return err
}

// SetDirection sets the rotation direction. While the fan is off the new
// direction is only recorded; the next activation uses it. While on, the
// speed command for the new direction is transmitted immediately.
func (e *Entity) SetDirection(ctx context.Context, direction string) error {
	if !e.profile.SupportsDirection() {
		return fmt.Errorf("%w: direction", ErrNotSupported)
	}
	direction = strings.ToLower(direction)
	if direction != profile.DirectionForward && direction != profile.DirectionReverse {
		return fmt.Errorf("%w: got %q", ErrInvalidDirection, direction)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.direction = direction
	var err error
	if e.speed != profile.SpeedOff {
		err = e.transmitLocked(ctx, "set_direction")
	}
	e.notifyLocked(ctx, SourceCommand)
	return err
}

// HandlePowerEvent processes a power sensor state change for this fan.
// States are the normalised sensor values (PowerOn, PowerOff, PowerUnknown).
//
// An ON reading while the fan is off means someone used the physical remote:
// the fan becomes on with an unknown speed. An OFF reading forces the fan
// off regardless of prior state. Events with an empty new state or an
// unchanged old/new pair are ignored. No command is ever transmitted; the
// event reflects externally caused state.
func (e *Entity) HandlePowerEvent(ctx context.Context, oldState, newState string) {
	if newState == "" {
		return
	}
	if oldState != "" && oldState == newState {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch newState {
	case PowerOn:
		if e.speed == profile.SpeedOff {
			e.onByRemote = true
			e.speed = ""
			e.notifyLocked(ctx, SourceSensor)
		}
	case PowerOff:
		e.onByRemote = false
		if e.speed != profile.SpeedOff {
			e.speed = profile.SpeedOff
		}
		e.notifyLocked(ctx, SourceSensor)
	}
}

// transmitLocked resolves the command for the current state and sends it.
//
// Resolution failures are returned: the profile cannot express the requested
// state, and the caller should hear about it. Transmission failures are
// logged and swallowed; the already mutated in-memory state stays in place,
// so it may diverge from the physical device until the next successful
// command. Callers hold e.mu.
func (e *Entity) transmitLocked(ctx context.Context, operation string) error {
	e.onByRemote = false

	payload, err := e.resolveLocked()
	if err != nil {
		e.logger.Error("command resolution failed",
			"fan_id", e.id,
			"operation", operation,
			"error", err,
		)
		return err
	}

	sendID := "snd-" + uuid.NewString()[:8]
	start := time.Now()
	sendErr := e.controller.Send(ctx, payload)
	durationMs := float64(time.Since(start).Milliseconds())

	if e.metrics != nil {
		e.metrics.WriteCommandMetric(e.id, operation, durationMs, sendErr == nil)
	}

	if sendErr != nil {
		e.logger.Error("command transmission failed",
			"fan_id", e.id,
			"send_id", sendID,
			"operation", operation,
			"error", sendErr,
		)
		return nil
	}

	e.logger.Debug("command transmitted",
		"fan_id", e.id,
		"send_id", sendID,
		"operation", operation,
		"packets", len(payload.Packets),
		"duration_ms", durationMs,
	)
	return nil
}

// resolveLocked maps the current (speed, oscillating, direction) state to
// exactly one command payload. Off wins over everything; oscillation wins
// over direction and speed. Callers hold e.mu.
func (e *Entity) resolveLocked() (profile.CommandPayload, error) {
	switch {
	case e.speed == profile.SpeedOff:
		return e.profile.ResolveOff()
	case e.oscillating:
		return e.profile.ResolveOscillate()
	default:
		return e.profile.ResolveSpeed(e.direction, e.speed)
	}
}

// notifyLocked persists restorable attributes, records history and publishes
// a snapshot. Persistence failures are logged, never propagated: state
// propagation must not fail a fan operation. Callers hold e.mu.
func (e *Entity) notifyLocked(ctx context.Context, source string) {
	e.updatedAt = time.Now().UTC()
	snap := e.snapshotLocked()

	if e.store != nil {
		attrs := StoredAttributes{
			Direction:   e.direction,
			LastOnSpeed: e.lastOnSpeed,
		}
		if e.speed != "" {
			attrs.Speed = e.speed
		}
		if err := e.store.Save(ctx, e.id, attrs); err != nil {
			e.logger.Warn("persisting fan attributes failed", "fan_id", e.id, "error", err)
		}
	}

	if e.history != nil {
		if err := e.history.RecordStateChange(ctx, e.id, snap, source); err != nil {
			e.logger.Warn("recording state history failed", "fan_id", e.id, "error", err)
		}
	}

	if e.notifier != nil {
		e.notifier.NotifyStateChanged(snap)
	}
}

// snapshotLocked builds a Snapshot from current state. Callers hold e.mu.
func (e *Entity) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:                  e.id,
		Name:                e.name,
		State:               StateOff,
		SpeedCount:          e.profile.SpeedCount(),
		Speeds:              e.profile.Speeds,
		OnByRemote:          e.onByRemote,
		LastOnSpeed:         e.lastOnSpeed,
		DeviceCode:          e.deviceCode,
		Manufacturer:        e.profile.Manufacturer,
		SupportedModels:     e.profile.SupportedModels,
		SupportedController: e.profile.SupportedController,
		CommandsEncoding:    e.profile.CommandsEncoding,
		UpdatedAt:           e.updatedAt,
	}

	if e.onByRemote || e.speed != profile.SpeedOff {
		snap.State = StateOn
	}

	switch {
	case e.speed == "":
		// On with unknown speed: percentage and speed stay null.
	case e.speed == profile.SpeedOff:
		zero := 0
		off := profile.SpeedOff
		snap.Percentage = &zero
		snap.Speed = &off
	default:
		if pct, err := SpeedToPercentage(e.profile.Speeds, e.speed); err == nil {
			snap.Percentage = &pct
		}
		speed := e.speed
		snap.Speed = &speed
	}

	if e.profile.SupportsDirection() {
		snap.Direction = e.direction
	}
	if e.profile.SupportsOscillation() {
		oscillating := e.oscillating
		snap.Oscillating = &oscillating
	}

	return snap
}
