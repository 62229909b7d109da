package avtransport_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/enetx/g"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fsm "github.com/enetx/upnpfsm"
	. "github.com/enetx/upnpfsm/avtransport"
)

const media = "http://10.0.0.2:8200/MediaItems/22.mp3"

var allActions = []TransportAction{
	ActionPlay, ActionStop, ActionPause, ActionSeek, ActionNext, ActionPrevious, ActionRecord,
}

func newTransport(t *testing.T, opts ...Option) *AVTransport {
	t.Helper()

	avt, err := New(0, append([]Option{WithLogger(slogt.New(t))}, opts...)...)
	require.NoError(t, err)

	return avt
}

func loaded(t *testing.T, opts ...Option) *AVTransport {
	t.Helper()

	avt := newTransport(t, opts...)
	require.NoError(t, avt.SetAVTransportURI(context.Background(), media, "<DIDL-Lite/>"))
	require.Equal(t, Stopped, avt.CurrentState())

	return avt
}

func requireCode(t *testing.T, err error, code ErrorCode) *ActionError {
	t.Helper()

	require.Error(t, err)

	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, code, actionErr.Code, actionErr.Error())

	return actionErr
}

func TestStopInNoMediaPresent(t *testing.T) {
	avt := newTransport(t)

	assert.Equal(t, NoMediaPresent, avt.CurrentState())
	assert.Equal(t, g.Slice[TransportAction]{ActionStop}, avt.CurrentTransportActions())

	require.NoError(t, avt.Stop(context.Background()))
	assert.Equal(t, NoMediaPresent, avt.CurrentState())
	assert.Equal(t, g.Slice[fsm.State]{NoMediaPresent}, avt.Machine().History())
}

func TestPlayFromStopped(t *testing.T) {
	avt := loaded(t)

	var entered int
	avt.Machine().OnTransition(func(_, to fsm.State, _ fsm.Signal, _ *fsm.Context[*Transport]) error {
		if to == Playing {
			entered++
		}
		return nil
	})

	require.NoError(t, avt.Play(context.Background(), "1"))

	assert.Equal(t, Playing, avt.CurrentState())
	assert.Equal(t, 1, entered)
	assert.Equal(t, TransportInfo{State: TransportPlaying, Status: StatusOK, Speed: "1"}, avt.TransportInfo())
	assert.Equal(t, "PLAYING", avt.LastChange().Get(0, VarTransportState).Unwrap().Std())
}

func TestPausePlaySequence(t *testing.T) {
	avt := loaded(t)
	ctx := context.Background()

	require.NoError(t, avt.Play(ctx, "1"))
	require.NoError(t, avt.Pause(ctx))
	assert.Equal(t, PausedPlayback, avt.CurrentState())

	require.NoError(t, avt.Stop(ctx))
	assert.Equal(t, Stopped, avt.CurrentState())

	require.NoError(t, avt.Play(ctx, "1"))
	assert.Equal(t, Playing, avt.CurrentState())

	assert.Equal(t,
		g.Slice[fsm.State]{NoMediaPresent, Stopped, Playing, PausedPlayback, Stopped, Playing},
		avt.Machine().History())
}

func TestRecordWhilePlaying(t *testing.T) {
	avt := loaded(t, WithRecordMedia(MediumHDD))
	ctx := context.Background()

	require.NoError(t, avt.Play(ctx, "1"))

	err := avt.Record(ctx)
	requireCode(t, err, CodeTransitionNotAvailable)

	var unsupported *fsm.ErrUnsupportedSignal
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, Playing, unsupported.State)
	assert.Equal(t, SignalRecord, unsupported.Signal)
	assert.Equal(t, Playing, avt.CurrentState())
}

func TestForceUnregisteredRecording(t *testing.T) {
	avt := newTransport(t)

	err := avt.ForceState(context.Background(), Recording)
	require.Error(t, err)
	assert.True(t, fsm.IsUnknownState(err))
	assert.Equal(t, NoMediaPresent, avt.CurrentState())
	assert.NotContains(t, avt.Machine().States(), Recording)
}

func TestRecording(t *testing.T) {
	avt := loaded(t, WithRecordMedia(MediumNotImplemented, MediumHDD))
	ctx := context.Background()

	assert.Contains(t, avt.CurrentTransportActions(), ActionRecord)
	assert.Equal(t, MediumHDD, avt.MediaInfo().RecordMedium)
	assert.True(t, avt.DeviceCapabilities().CanRecord())

	require.NoError(t, avt.Record(ctx))
	assert.Equal(t, Recording, avt.CurrentState())
	assert.Equal(t, TransportRecording, avt.TransportInfo().State)

	requireCode(t, avt.Play(ctx, "1"), CodeTransitionNotAvailable)

	require.NoError(t, avt.Stop(ctx))
	assert.Equal(t, Stopped, avt.CurrentState())
}

func TestTransitioning(t *testing.T) {
	avt := loaded(t)
	ctx := context.Background()

	require.NoError(t, avt.Play(ctx, "1"))
	require.NoError(t, avt.SetAVTransportURI(ctx, "http://10.0.0.2:8200/MediaItems/23.mp3", ""))

	assert.Equal(t, Transitioning, avt.CurrentState())
	assert.Equal(t, g.String("http://10.0.0.2:8200/MediaItems/23.mp3"), avt.MediaInfo().CurrentURI)
	requireCode(t, avt.Pause(ctx), CodeTransitionNotAvailable)

	require.NoError(t, avt.Play(ctx, "1"))
	assert.Equal(t, Playing, avt.CurrentState())
}

func TestLoadWhilePaused(t *testing.T) {
	avt := loaded(t)
	ctx := context.Background()

	require.NoError(t, avt.Play(ctx, "1"))
	require.NoError(t, avt.Pause(ctx))
	require.NoError(t, avt.SetAVTransportURI(ctx, media, ""))

	assert.Equal(t, Stopped, avt.CurrentState())
}

func TestLegalActionsMatchImplementedSignals(t *testing.T) {
	for _, opts := range [][]Option{nil, {WithRecordMedia(MediumHDD)}} {
		avt := newTransport(t, opts...)
		m := avt.Machine()

		for _, state := range m.States() {
			require.NoError(t, avt.ForceState(context.Background(), state))

			legal := avt.CurrentTransportActions()
			for _, action := range allActions {
				assert.Equal(t, legal.Contains(action), m.Implements(state, action.Signal()),
					"state %s action %s", state, action)
			}
		}
	}
}

func TestPlaySpeed(t *testing.T) {
	avt := loaded(t)
	ctx := context.Background()

	require.NoError(t, avt.Play(ctx, "1"))
	avt.LastChange().Flush()

	require.NoError(t, avt.Play(ctx, "1/2"))
	assert.Equal(t, Playing, avt.CurrentState())
	assert.Equal(t, g.String("1/2"), avt.TransportInfo().Speed)
	assert.Equal(t, "1/2", avt.LastChange().Get(0, VarTransportPlaySpeed).Unwrap().Std())

	requireCode(t, avt.Play(ctx, ""), CodeInvalidArgs)
	requireCode(t, avt.Play(ctx, "fast"), CodeInvalidArgs)
}

func TestSetAVTransportURIValidation(t *testing.T) {
	avt := newTransport(t)
	ctx := context.Background()

	requireCode(t, avt.SetAVTransportURI(ctx, "", ""), CodeInvalidArgs)
	requireCode(t, avt.SetAVTransportURI(ctx, "no-scheme", ""), CodeResourceNotFound)
	requireCode(t, avt.SetAVTransportURI(ctx, "http://[::1", ""), CodeResourceNotFound)
	assert.Equal(t, NoMediaPresent, avt.CurrentState())
}

func TestSeek(t *testing.T) {
	avt := loaded(t, WithTracksPerURI(3))
	ctx := context.Background()

	require.NoError(t, avt.Seek(ctx, "TRACK_NR", "3"))
	assert.Equal(t, uint32(3), avt.PositionInfo().Track)

	require.NoError(t, avt.Seek(ctx, "REL_TIME", "0:01:30"))
	assert.Equal(t, g.String("0:01:30"), avt.PositionInfo().RelTime)

	require.NoError(t, avt.Seek(ctx, "ABS_TIME", "0:02:00.5"))
	assert.Equal(t, g.String("0:02:00.5"), avt.PositionInfo().AbsTime)

	assert.Equal(t, Stopped, avt.CurrentState())

	requireCode(t, avt.Seek(ctx, "SOMEWHERE", "1"), CodeInvalidArgs)
	requireCode(t, avt.Seek(ctx, "TAPE-INDEX", "1"), CodeSeekModeNotSupported)
	requireCode(t, avt.Seek(ctx, "REL_TIME", "90 seconds"), CodeIllegalSeekTarget)
	requireCode(t, avt.Seek(ctx, "TRACK_NR", "0"), CodeIllegalSeekTarget)
	requireCode(t, avt.Seek(ctx, "TRACK_NR", "4"), CodeIllegalSeekTarget)
	assert.Equal(t, uint32(3), avt.PositionInfo().Track)

	require.NoError(t, avt.Play(ctx, "1"))
	require.NoError(t, avt.Pause(ctx))
	requireCode(t, avt.Seek(ctx, "TRACK_NR", "1"), CodeTransitionNotAvailable)
}

func TestStopRewinds(t *testing.T) {
	avt := loaded(t)
	ctx := context.Background()

	require.NoError(t, avt.Play(ctx, "1"))
	require.NoError(t, avt.Seek(ctx, "REL_TIME", "0:00:42"))
	require.NoError(t, avt.Stop(ctx))

	assert.Equal(t, g.String("00:00:00"), avt.PositionInfo().RelTime)
}

func TestNextPrevious(t *testing.T) {
	avt := loaded(t, WithTracksPerURI(2))
	ctx := context.Background()

	requireCode(t, avt.Previous(ctx), CodeIllegalSeekTarget)

	require.NoError(t, avt.Next(ctx))
	assert.Equal(t, uint32(2), avt.PositionInfo().Track)

	err := avt.Next(ctx)
	requireCode(t, err, CodeIllegalSeekTarget)

	var unsupported *fsm.ErrUnsupportedSignal
	require.ErrorAs(t, err, &unsupported)
	assert.True(t, unsupported.Rejected)

	require.NoError(t, avt.Play(ctx, "1"))
	require.NoError(t, avt.Previous(ctx))
	assert.Equal(t, uint32(1), avt.PositionInfo().Track)
	assert.Equal(t, Playing, avt.CurrentState())

	requireCode(t, newTransport(t).Next(ctx), CodeTransitionNotAvailable)
}

func TestMediaAndPositionInfo(t *testing.T) {
	avt := newTransport(t)

	assert.Equal(t, g.String(""), avt.MediaInfo().CurrentURI)
	assert.Equal(t, MediumNone, avt.MediaInfo().PlayMedium)
	assert.False(t, avt.DeviceCapabilities().CanRecord())

	require.NoError(t, avt.SetAVTransportURI(context.Background(), media, "<DIDL-Lite/>"))

	mi := avt.MediaInfo()
	assert.Equal(t, g.String(media), mi.CurrentURI)
	assert.Equal(t, g.String("<DIDL-Lite/>"), mi.CurrentURIMetaData)
	assert.Equal(t, uint32(1), mi.NumberOfTracks)
	assert.Equal(t, MediumNetwork, mi.PlayMedium)
	assert.Equal(t, MediumNotImplemented, mi.RecordMedium)

	pi := avt.PositionInfo()
	assert.Equal(t, uint32(1), pi.Track)
	assert.Equal(t, g.String(media), pi.TrackURI)
}

func TestLastChange(t *testing.T) {
	lc := NewLastChange()

	first, err := New(1, WithLastChange(lc))
	require.NoError(t, err)

	second, err := New(2, WithLastChange(lc))
	require.NoError(t, err)

	assert.True(t, lc.Dirty())

	pending := lc.Flush()
	require.Len(t, pending, 2)
	assert.Equal(t, g.String("NO_MEDIA_PRESENT"), pending[1][VarTransportState])
	assert.Equal(t, g.String("Stop"), pending[2][VarCurrentTransportActions])
	assert.False(t, lc.Dirty())

	require.NoError(t, first.SetAVTransportURI(context.Background(), media, ""))

	pending = lc.Flush()
	require.Len(t, pending, 1)
	assert.Equal(t, g.String(media), pending[1][VarAVTransportURI])
	assert.Equal(t, g.String("STOPPED"), pending[1][VarTransportState])
	assert.Equal(t, g.String("Stop,Play,Next,Previous,Seek"), pending[1][VarCurrentTransportActions])

	assert.True(t, second.LastChange().Get(2, VarTransportState).IsNone())
	assert.Same(t, lc, second.LastChange())
}

func TestErrorCodes(t *testing.T) {
	assert.Equal(t, "Transition not available", CodeTransitionNotAvailable.Description())
	assert.Equal(t, "Error 799", ErrorCode(799).Description())
	assert.Equal(t, CodeActionFailed, Code(errors.New("boom")))
	assert.Equal(t, CodeIllegalSeekTarget, Code(&ActionError{Code: CodeIllegalSeekTarget}))

	err := &ActionError{Code: CodeInvalidArgs, Message: "CurrentURI is empty"}
	assert.Equal(t, "avtransport: 402 Invalid Args: CurrentURI is empty", err.Error())
}

func TestParseSeekMode(t *testing.T) {
	mode, err := ParseSeekMode("TAPE-INDEX")
	require.NoError(t, err)
	assert.Equal(t, SeekTapeIndex, mode)
	assert.False(t, mode.Supported())

	_, err = ParseSeekMode("TAPE_INDEX")
	assert.Error(t, err)
}

func TestConcurrentActions(t *testing.T) {
	avt := loaded(t, WithTracksPerURI(4))
	ctx := context.Background()

	actions := []func() error{
		func() error { return avt.Play(ctx, "1") },
		func() error { return avt.Pause(ctx) },
		func() error { return avt.Stop(ctx) },
		func() error { return avt.Next(ctx) },
		func() error { return avt.Previous(ctx) },
		func() error { return avt.Seek(ctx, "REL_TIME", "0:00:10") },
	}

	var wg sync.WaitGroup

	for w := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range 50 {
				err := actions[(w+i)%len(actions)]()
				if err != nil {
					code := Code(err)
					assert.True(t, code == CodeTransitionNotAvailable || code == CodeIllegalSeekTarget, err.Error())
				}

				_ = avt.TransportInfo()
			}
		}()
	}

	wg.Wait()

	state := avt.CurrentState()
	assert.Contains(t, []fsm.State{Stopped, Playing, PausedPlayback}, state)

	info := avt.TransportInfo()
	switch state {
	case Stopped:
		assert.Equal(t, TransportStopped, info.State)
	case Playing:
		assert.Equal(t, TransportPlaying, info.State)
	case PausedPlayback:
		assert.Equal(t, TransportPausedPlayback, info.State)
	}

	track := avt.PositionInfo().Track
	assert.True(t, track >= 1 && track <= 4)
}
