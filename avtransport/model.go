package avtransport

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/enetx/g"

	fsm "github.com/enetx/upnpfsm"
)

// TransportState is the protocol value of the TransportState state variable.
type TransportState string

const (
	TransportNoMediaPresent TransportState = "NO_MEDIA_PRESENT"
	TransportStopped        TransportState = "STOPPED"
	TransportPlaying        TransportState = "PLAYING"
	TransportPausedPlayback TransportState = "PAUSED_PLAYBACK"
	TransportRecording      TransportState = "RECORDING"
	TransportTransitioning  TransportState = "TRANSITIONING"
)

// TransportStatus is the protocol value of the TransportStatus state variable.
type TransportStatus string

const (
	StatusOK            TransportStatus = "OK"
	StatusErrorOccurred TransportStatus = "ERROR_OCCURRED"
)

// TransportAction is one entry of CurrentTransportActions.
type TransportAction string

const (
	ActionPlay     TransportAction = "Play"
	ActionStop     TransportAction = "Stop"
	ActionPause    TransportAction = "Pause"
	ActionSeek     TransportAction = "Seek"
	ActionNext     TransportAction = "Next"
	ActionPrevious TransportAction = "Previous"
	ActionRecord   TransportAction = "Record"
)

var actionSignals = g.Map[TransportAction, fsm.Signal]{
	ActionPlay:     SignalPlay,
	ActionStop:     SignalStop,
	ActionPause:    SignalPause,
	ActionSeek:     SignalSeek,
	ActionNext:     SignalNext,
	ActionPrevious: SignalPrevious,
	ActionRecord:   SignalRecord,
}

// Signal returns the machine signal the action is dispatched as.
func (a TransportAction) Signal() fsm.Signal { return actionSignals[a] }

// SeekMode is the Unit argument of Seek.
type SeekMode string

const (
	SeekTrackNr     SeekMode = "TRACK_NR"
	SeekAbsTime     SeekMode = "ABS_TIME"
	SeekRelTime     SeekMode = "REL_TIME"
	SeekAbsCount    SeekMode = "ABS_COUNT"
	SeekRelCount    SeekMode = "REL_COUNT"
	SeekChannelFreq SeekMode = "CHANNEL_FREQ"
	SeekTapeIndex   SeekMode = "TAPE-INDEX"
	SeekFrame       SeekMode = "FRAME"
)

var (
	seekModes = g.SetOf(
		SeekTrackNr, SeekAbsTime, SeekRelTime, SeekAbsCount,
		SeekRelCount, SeekChannelFreq, SeekTapeIndex, SeekFrame,
	)

	supportedSeekModes = g.SetOf(SeekTrackNr, SeekAbsTime, SeekRelTime)

	timePosition = regexp.MustCompile(`^\d+:[0-5]\d:[0-5]\d(\.\d+)?$`)
)

// ParseSeekMode returns the seek mode for its protocol string.
func ParseSeekMode(s string) (SeekMode, error) {
	mode := SeekMode(s)
	if !seekModes.Contains(mode) {
		return "", fmt.Errorf("invalid seek mode string: %q", s)
	}

	return mode, nil
}

// Supported reports whether this transport can seek with the mode.
func (m SeekMode) Supported() bool { return supportedSeekModes.Contains(m) }

// validTarget checks the syntax of a seek target for the mode.
func (m SeekMode) validTarget(target string) bool {
	switch m {
	case SeekTrackNr:
		n, err := strconv.ParseUint(target, 10, 32)
		return err == nil && n > 0
	case SeekAbsTime, SeekRelTime:
		return timePosition.MatchString(target)
	default:
		return false
	}
}

// StorageMedium is a play or record medium.
type StorageMedium string

const (
	MediumUnknown        StorageMedium = "UNKNOWN"
	MediumNetwork        StorageMedium = "NETWORK"
	MediumHDD            StorageMedium = "HDD"
	MediumNone           StorageMedium = "NONE"
	MediumNotImplemented StorageMedium = "NOT_IMPLEMENTED"
)

// TransportInfo is the result of GetTransportInfo.
type TransportInfo struct {
	State  TransportState  `json:"state"`
	Status TransportStatus `json:"status"`
	Speed  g.String        `json:"speed"`
}

// MediaInfo is the result of GetMediaInfo.
type MediaInfo struct {
	CurrentURI         g.String      `json:"currentUri"`
	CurrentURIMetaData g.String      `json:"currentUriMetaData"`
	NumberOfTracks     uint32        `json:"numberOfTracks"`
	MediaDuration      g.String      `json:"mediaDuration"`
	PlayMedium         StorageMedium `json:"playMedium"`
	RecordMedium       StorageMedium `json:"recordMedium"`
}

// PositionInfo is the result of GetPositionInfo.
type PositionInfo struct {
	Track         uint32   `json:"track"`
	TrackDuration g.String `json:"trackDuration"`
	TrackMetaData g.String `json:"trackMetaData"`
	TrackURI      g.String `json:"trackUri"`
	RelTime       g.String `json:"relTime"`
	AbsTime       g.String `json:"absTime"`
}

// DeviceCapabilities is the result of GetDeviceCapabilities.
type DeviceCapabilities struct {
	PlayMedia   g.Slice[StorageMedium] `json:"playMedia"`
	RecordMedia g.Slice[StorageMedium] `json:"recordMedia"`
}

// CanRecord reports whether at least one real record medium is available.
func (d DeviceCapabilities) CanRecord() bool { return d.recordMedium() != MediumNotImplemented }

func (d DeviceCapabilities) recordMedium() StorageMedium {
	for _, m := range d.RecordMedia {
		if m != MediumNotImplemented && m != MediumNone {
			return m
		}
	}

	return MediumNotImplemented
}

func defaultMediaInfo() MediaInfo {
	return MediaInfo{
		MediaDuration: "00:00:00",
		PlayMedium:    MediumNone,
		RecordMedium:  MediumNotImplemented,
	}
}

func defaultPositionInfo() PositionInfo {
	return PositionInfo{
		TrackDuration: "00:00:00",
		RelTime:       "00:00:00",
		AbsTime:       "00:00:00",
	}
}
