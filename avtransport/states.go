package avtransport

import (
	"strconv"

	"github.com/enetx/g"

	fsm "github.com/enetx/upnpfsm"
)

// State tags of the transport machine.
const (
	NoMediaPresent fsm.State = "NoMediaPresent"
	Stopped        fsm.State = "Stopped"
	Playing        fsm.State = "Playing"
	PausedPlayback fsm.State = "PausedPlayback"
	Recording      fsm.State = "Recording"
	Transitioning  fsm.State = "Transitioning"
)

// Signals of the transport machine.
const (
	SignalSetTransportURI fsm.Signal = "setTransportURI"
	SignalStop            fsm.Signal = "stop"
	SignalPlay            fsm.Signal = "play"
	SignalPause           fsm.Signal = "pause"
	SignalSeek            fsm.Signal = "seek"
	SignalNext            fsm.Signal = "next"
	SignalPrevious        fsm.Signal = "previous"
	SignalRecord          fsm.Signal = "record"
)

// Signals returns the closed signal set of the transport machine.
func Signals() []fsm.Signal {
	return []fsm.Signal{
		SignalSetTransportURI, SignalStop, SignalPlay, SignalPause,
		SignalSeek, SignalNext, SignalPrevious, SignalRecord,
	}
}

var transportStates = g.Map[fsm.State, TransportState]{
	NoMediaPresent: TransportNoMediaPresent,
	Stopped:        TransportStopped,
	Playing:        TransportPlaying,
	PausedPlayback: TransportPausedPlayback,
	Recording:      TransportRecording,
	Transitioning:  TransportTransitioning,
}

// legalActions lists the actions allowed while a state is active.
// Record is added to Stopped by actionsFor when the transport can record.
var legalActions = g.Map[fsm.State, g.Slice[TransportAction]]{
	NoMediaPresent: {ActionStop},
	Stopped:        {ActionStop, ActionPlay, ActionNext, ActionPrevious, ActionSeek},
	Playing:        {ActionStop, ActionPlay, ActionPause, ActionNext, ActionPrevious, ActionSeek},
	PausedPlayback: {ActionStop, ActionPlay},
	Recording:      {ActionStop},
	Transitioning:  {ActionStop, ActionPlay},
}

func actionsFor(s fsm.State, canRecord bool) g.Slice[TransportAction] {
	actions := legalActions[s].Clone()
	if s == Stopped && canRecord {
		actions.Push(ActionRecord)
	}

	return actions
}

func joinActions(actions g.Slice[TransportAction]) g.String {
	names := make(g.Slice[g.String], 0, len(actions))
	for _, a := range actions {
		names.Push(g.String(a))
	}

	return names.Join(",")
}

// factories returns the variants of one transport. Recording is only
// registered when the transport has a record medium.
func factories(t *Transport) []fsm.Factory[*Transport] {
	fs := []fsm.Factory[*Transport]{
		noMediaPresent,
		stopped,
		playing,
		pausedPlayback,
		transitioning,
	}

	if t.capabilities.CanRecord() {
		fs = append(fs, recording)
	}

	return fs
}

func noMediaPresent(*Transport) (*fsm.Variant[*Transport], error) {
	return fsm.NewVariant[*Transport](NoMediaPresent).
		OnEntry(enter).
		On(SignalSetTransportURI, setTransportURI(fsm.Goto(Stopped))).
		On(SignalStop, stay), nil
}

func stopped(t *Transport) (*fsm.Variant[*Transport], error) {
	v := fsm.NewVariant[*Transport](Stopped).
		OnEntry(enter).
		OnEntry(rewind).
		On(SignalSetTransportURI, setTransportURI(fsm.Stay())).
		On(SignalStop, stay).
		On(SignalPlay, play(fsm.Goto(Playing))).
		OnWhen(SignalNext, hasNextTrack, stepTrack(1)).
		OnWhen(SignalPrevious, hasPreviousTrack, stepTrack(-1)).
		On(SignalSeek, seek)

	if t.capabilities.CanRecord() {
		v.On(SignalRecord, goTo(Recording))
	}

	return v, nil
}

func playing(*Transport) (*fsm.Variant[*Transport], error) {
	return fsm.NewVariant[*Transport](Playing).
		OnEntry(enter).
		On(SignalSetTransportURI, setTransportURI(fsm.Goto(Transitioning))).
		On(SignalStop, goTo(Stopped)).
		On(SignalPlay, play(fsm.Stay())).
		On(SignalPause, goTo(PausedPlayback)).
		OnWhen(SignalNext, hasNextTrack, stepTrack(1)).
		OnWhen(SignalPrevious, hasPreviousTrack, stepTrack(-1)).
		On(SignalSeek, seek), nil
}

func pausedPlayback(*Transport) (*fsm.Variant[*Transport], error) {
	return fsm.NewVariant[*Transport](PausedPlayback).
		OnEntry(enter).
		On(SignalSetTransportURI, setTransportURI(fsm.Goto(Stopped))).
		On(SignalStop, goTo(Stopped)).
		On(SignalPlay, play(fsm.Goto(Playing))), nil
}

func recording(*Transport) (*fsm.Variant[*Transport], error) {
	return fsm.NewVariant[*Transport](Recording).
		OnEntry(enter).
		On(SignalStop, goTo(Stopped)), nil
}

func transitioning(*Transport) (*fsm.Variant[*Transport], error) {
	return fsm.NewVariant[*Transport](Transitioning).
		OnEntry(enter).
		On(SignalStop, goTo(Stopped)).
		On(SignalPlay, play(fsm.Goto(Playing))), nil
}

// enter sets the transport state and publishes it with the actions legal in it.
func enter(ctx *fsm.Context[*Transport]) error {
	t := ctx.Data
	state := transportStates[ctx.State]

	t.logger.DebugContext(ctx.Ctx, "Setting transport state", "instance", t.InstanceID, "state", state)

	t.info.State = state
	t.publish(
		Evented(VarTransportState, g.String(state)),
		Evented(VarCurrentTransportActions, joinActions(actionsFor(ctx.State, t.capabilities.CanRecord()))),
	)

	return nil
}

func rewind(ctx *fsm.Context[*Transport]) error {
	t := ctx.Data
	t.position.RelTime = "00:00:00"
	t.publish(Evented(VarRelativeTimePosition, t.position.RelTime))

	return nil
}

func stay(*fsm.Context[*Transport]) (fsm.Outcome, error) { return fsm.Stay(), nil }

func goTo(s fsm.State) fsm.Handler[*Transport] {
	return func(*fsm.Context[*Transport]) (fsm.Outcome, error) { return fsm.Goto(s), nil }
}

func setTransportURI(next fsm.Outcome) fsm.Handler[*Transport] {
	return func(ctx *fsm.Context[*Transport]) (fsm.Outcome, error) {
		in, err := fsm.InputAs[uriInput](ctx)
		if err != nil {
			return fsm.Stay(), err
		}

		ctx.Data.load(in)

		return next, nil
	}
}

func play(next fsm.Outcome) fsm.Handler[*Transport] {
	return func(ctx *fsm.Context[*Transport]) (fsm.Outcome, error) {
		speed, err := fsm.InputAs[g.String](ctx)
		if err != nil {
			return fsm.Stay(), err
		}

		t := ctx.Data
		if t.info.Speed != speed {
			t.info.Speed = speed
			t.publish(Evented(VarTransportPlaySpeed, speed))
		}

		return next, nil
	}
}

func hasNextTrack(ctx *fsm.Context[*Transport]) bool {
	return ctx.Data.position.Track < ctx.Data.media.NumberOfTracks
}

func hasPreviousTrack(ctx *fsm.Context[*Transport]) bool {
	return ctx.Data.position.Track > 1
}

func stepTrack(delta int) fsm.Handler[*Transport] {
	return func(ctx *fsm.Context[*Transport]) (fsm.Outcome, error) {
		t := ctx.Data
		t.setTrack(uint32(int(t.position.Track) + delta))

		return fsm.Stay(), nil
	}
}

func seek(ctx *fsm.Context[*Transport]) (fsm.Outcome, error) {
	in, err := fsm.InputAs[seekInput](ctx)
	if err != nil {
		return fsm.Stay(), err
	}

	t := ctx.Data

	switch in.mode {
	case SeekTrackNr:
		track, err := strconv.ParseUint(in.target.Std(), 10, 32)
		if err != nil || track < 1 || uint32(track) > t.media.NumberOfTracks {
			return fsm.Stay(), newActionError(CodeIllegalSeekTarget,
				"track %s is outside 1..%d", in.target, t.media.NumberOfTracks)
		}

		t.setTrack(uint32(track))
	case SeekRelTime:
		t.position.RelTime = in.target
		t.publish(Evented(VarRelativeTimePosition, in.target))
	case SeekAbsTime:
		t.position.AbsTime = in.target
		t.publish(Evented(VarAbsoluteTimePosition, in.target))
	default:
		return fsm.Stay(), newActionError(CodeSeekModeNotSupported, "%s", in.mode)
	}

	return fsm.Stay(), nil
}
