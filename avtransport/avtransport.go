// Package avtransport drives one AVTransport service instance with a
// state machine. Every state variant implements only the actions legal
// in it; an action the current state does not implement is answered
// with error 701 "Transition not available".
//
// Changes of evented state variables are accumulated in a LastChange
// for the eventing layer to drain.
package avtransport

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"

	"github.com/enetx/g"

	fsm "github.com/enetx/upnpfsm"
)

var playSpeed = regexp.MustCompile(`^-?\d+(/\d+)?$`)

// AVTransport is the consumer facade of one transport instance.
type AVTransport struct {
	machine   *fsm.Machine[*Transport]
	transport *Transport
	logger    *slog.Logger
}

type config struct {
	logger       *slog.Logger
	lastChange   *LastChange
	playMedia    g.Slice[StorageMedium]
	recordMedia  g.Slice[StorageMedium]
	tracksPerURI uint32
	machineOpts  []fsm.Option
}

// Option configures an AVTransport.
type Option func(*config)

// WithLogger sets the logger of the transport and of its machine.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithLastChange shares an accumulator between several instances.
func WithLastChange(lc *LastChange) Option {
	return func(c *config) {
		if lc != nil {
			c.lastChange = lc
		}
	}
}

// WithPlayMedia sets the play media reported by DeviceCapabilities.
func WithPlayMedia(media ...StorageMedium) Option {
	return func(c *config) { c.playMedia = g.Slice[StorageMedium](media) }
}

// WithRecordMedia sets the record media. A transport with at least one
// real record medium gets the Recording state and the Record action.
func WithRecordMedia(media ...StorageMedium) Option {
	return func(c *config) { c.recordMedia = g.Slice[StorageMedium](media) }
}

// WithTracksPerURI sets the number of tracks of every loaded URI. The default is 1.
func WithTracksPerURI(n uint32) Option {
	return func(c *config) {
		if n > 0 {
			c.tracksPerURI = n
		}
	}
}

// WithMachineOptions passes options through to the underlying machine.
func WithMachineOptions(opts ...fsm.Option) Option {
	return func(c *config) { c.machineOpts = append(c.machineOpts, opts...) }
}

// New builds a transport instance in state NoMediaPresent.
func New(instanceID uint32, opts ...Option) (*AVTransport, error) {
	cfg := config{
		logger:       slog.Default(),
		playMedia:    g.Slice[StorageMedium]{MediumNetwork},
		recordMedia:  g.Slice[StorageMedium]{MediumNotImplemented},
		tracksPerURI: 1,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.lastChange == nil {
		cfg.lastChange = NewLastChange()
	}

	t := &Transport{
		InstanceID: instanceID,
		info:       TransportInfo{State: TransportNoMediaPresent, Status: StatusOK, Speed: "1"},
		media:      defaultMediaInfo(),
		position:   defaultPositionInfo(),
		capabilities: DeviceCapabilities{
			PlayMedia:   cfg.playMedia.Clone(),
			RecordMedia: cfg.recordMedia.Clone(),
		},
		tracksPerURI: cfg.tracksPerURI,
		lastChange:   cfg.lastChange,
		logger:       cfg.logger,
	}

	machineOpts := append([]fsm.Option{
		fsm.WithName(fmt.Sprintf("avtransport-%d", instanceID)),
		fsm.WithLogger(cfg.logger),
		fsm.WithSignals(Signals()...),
	}, cfg.machineOpts...)

	m, err := fsm.New(t, NoMediaPresent, factories(t), machineOpts...)
	if err != nil {
		return nil, fmt.Errorf("avtransport: instance %d: %w", instanceID, err)
	}

	return &AVTransport{machine: m, transport: t, logger: cfg.logger}, nil
}

// InstanceID returns the AVTransport InstanceID.
func (a *AVTransport) InstanceID() uint32 { return a.transport.InstanceID }

// Machine returns the underlying state machine.
func (a *AVTransport) Machine() *fsm.Machine[*Transport] { return a.machine }

// LastChange returns the accumulator of evented variables.
func (a *AVTransport) LastChange() *LastChange { return a.transport.lastChange }

// CurrentState returns the tag of the active state.
func (a *AVTransport) CurrentState() fsm.State { return a.machine.Current() }

// ForceState moves the transport to s, running exit and entry callbacks.
// Engine errors are returned unmapped.
func (a *AVTransport) ForceState(ctx context.Context, s fsm.State) error {
	return a.machine.ForceState(ctx, s)
}

// CurrentTransportActions returns the actions legal in the current state.
func (a *AVTransport) CurrentTransportActions() g.Slice[TransportAction] {
	return actionsFor(a.machine.Current(), a.transport.capabilities.CanRecord())
}

// SetAVTransportURI loads a new media resource.
func (a *AVTransport) SetAVTransportURI(ctx context.Context, uri, metaData string) error {
	if uri == "" {
		return newActionError(CodeInvalidArgs, "CurrentURI is empty")
	}

	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		return &ActionError{Code: CodeResourceNotFound, Message: fmt.Sprintf("cannot read %q", uri), Err: err}
	}

	return a.dispatch(ctx, SignalSetTransportURI, uriInput{uri: u, metaData: g.String(metaData)})
}

// Stop stops playback or recording.
func (a *AVTransport) Stop(ctx context.Context) error { return a.dispatch(ctx, SignalStop) }

// Play starts playback at the given speed, e.g. "1" or "1/2".
func (a *AVTransport) Play(ctx context.Context, speed string) error {
	if !playSpeed.MatchString(speed) {
		return newActionError(CodeInvalidArgs, "invalid play speed %q", speed)
	}

	return a.dispatch(ctx, SignalPlay, g.String(speed))
}

// Pause pauses playback.
func (a *AVTransport) Pause(ctx context.Context) error { return a.dispatch(ctx, SignalPause) }

// Seek moves to target, interpreted according to unit.
func (a *AVTransport) Seek(ctx context.Context, unit, target string) error {
	mode, err := ParseSeekMode(unit)
	if err != nil {
		return &ActionError{Code: CodeInvalidArgs, Message: err.Error(), Err: err}
	}

	if !mode.Supported() {
		return newActionError(CodeSeekModeNotSupported, "%s", mode)
	}

	if !mode.validTarget(target) {
		return newActionError(CodeIllegalSeekTarget, "%q is not a valid %s target", target, mode)
	}

	return a.dispatch(ctx, SignalSeek, seekInput{mode: mode, target: g.String(target)})
}

// Next advances to the next track.
func (a *AVTransport) Next(ctx context.Context) error { return a.dispatch(ctx, SignalNext) }

// Previous goes back to the previous track.
func (a *AVTransport) Previous(ctx context.Context) error { return a.dispatch(ctx, SignalPrevious) }

// Record starts recording.
func (a *AVTransport) Record(ctx context.Context) error { return a.dispatch(ctx, SignalRecord) }

// TransportInfo returns the current transport state, status and speed.
func (a *AVTransport) TransportInfo() TransportInfo {
	var info TransportInfo
	a.machine.Inspect(func(t *Transport) { info = t.info })

	return info
}

// MediaInfo returns the loaded media.
func (a *AVTransport) MediaInfo() MediaInfo {
	var info MediaInfo
	a.machine.Inspect(func(t *Transport) { info = t.media })

	return info
}

// PositionInfo returns the current track and position.
func (a *AVTransport) PositionInfo() PositionInfo {
	var info PositionInfo
	a.machine.Inspect(func(t *Transport) { info = t.position })

	return info
}

// DeviceCapabilities returns the play and record media.
func (a *AVTransport) DeviceCapabilities() DeviceCapabilities {
	return DeviceCapabilities{
		PlayMedia:   a.transport.capabilities.PlayMedia.Clone(),
		RecordMedia: a.transport.capabilities.RecordMedia.Clone(),
	}
}

func (a *AVTransport) dispatch(ctx context.Context, signal fsm.Signal, input ...any) error {
	if _, err := a.machine.Dispatch(ctx, signal, input...); err != nil {
		actionErr := toActionError(err)

		a.logger.DebugContext(ctx, "AVTransport action failed",
			"instance", a.transport.InstanceID, "action", signal, "state", a.machine.Current(), "error", actionErr)

		return actionErr
	}

	return nil
}
