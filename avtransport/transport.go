package avtransport

import (
	"log/slog"
	"net/url"
	"strconv"

	"github.com/enetx/g"
)

// Transport is the domain context shared by every state variant of one
// AVTransport instance. It is only mutated by handlers and callbacks
// while the machine holds its dispatch lock.
type Transport struct {
	InstanceID uint32

	info         TransportInfo
	media        MediaInfo
	position     PositionInfo
	capabilities DeviceCapabilities
	tracksPerURI uint32

	lastChange *LastChange
	logger     *slog.Logger
}

type uriInput struct {
	uri      *url.URL
	metaData g.String
}

type seekInput struct {
	mode   SeekMode
	target g.String
}

func (t *Transport) publish(values ...EventedValue) {
	t.lastChange.Set(t.InstanceID, values...)
}

// load makes uri the current media and rewinds to its first track.
func (t *Transport) load(in uriInput) {
	uri := g.String(in.uri.String())

	t.media = defaultMediaInfo()
	t.media.CurrentURI = uri
	t.media.CurrentURIMetaData = in.metaData
	t.media.NumberOfTracks = t.tracksPerURI
	t.media.PlayMedium = MediumNetwork
	t.media.RecordMedium = t.capabilities.recordMedium()

	t.position = defaultPositionInfo()
	t.position.Track = 1
	t.position.TrackURI = uri
	t.position.TrackMetaData = in.metaData

	t.publish(
		Evented(VarAVTransportURI, uri),
		Evented(VarAVTransportURIMetaData, in.metaData),
		Evented(VarNumberOfTracks, g.String(strconv.FormatUint(uint64(t.tracksPerURI), 10))),
		Evented(VarCurrentTrack, "1"),
		Evented(VarCurrentTrackURI, uri),
	)
}

func (t *Transport) setTrack(track uint32) {
	t.position.Track = track
	t.position.RelTime = "00:00:00"

	t.publish(
		Evented(VarCurrentTrack, g.String(strconv.FormatUint(uint64(track), 10))),
		Evented(VarRelativeTimePosition, t.position.RelTime),
	)
}
