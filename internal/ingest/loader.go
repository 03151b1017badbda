package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"recplan/internal/layout"
	"recplan/internal/logging"
	"recplan/internal/media/ffprobe"
	"recplan/internal/services"
	"recplan/internal/timeline"
)

// Prober reports the length of a media file.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// MediaRef points a participant tile at its recording.
type MediaRef struct {
	File       string `json:"file"`
	EndpointID string `json:"endpoint_id,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Options configures a Loader.
type Options struct {
	MetadataPath  string
	EndpointsPath string
	// MediaDir resolves relative recording file names. Defaults to the
	// metadata file's directory.
	MediaDir       string
	ProbeDurations bool
}

// Stats counts what preprocessing did to the raw metadata.
type Stats struct {
	RawVideo              int
	Audio                 int
	LeadingSpeakerDropped int
	RecordedEndsDropped   int
	EndsSynthesized       int
	StartsDropped         int
	MalformedAspectRatios int
	Probed                int
}

// Result is the ingested timeline.
type Result struct {
	Events    []timeline.Event
	Endpoints map[string]string
	Stats     Stats
}

// Loader reads recorder metadata into timeline events.
type Loader struct {
	opts   Options
	prober Prober
	logger *slog.Logger
}

// NewLoader builds a Loader. prober may be nil when probing is disabled.
func NewLoader(opts Options, prober Prober, logger *slog.Logger) *Loader {
	if strings.TrimSpace(opts.MediaDir) == "" && opts.MetadataPath != "" {
		opts.MediaDir = filepath.Dir(opts.MetadataPath)
	}
	return &Loader{
		opts:   opts,
		prober: prober,
		logger: logging.NewComponentLogger(logger, "ingest"),
	}
}

// Load reads the metadata and endpoints files and returns sorted events.
func (l *Loader) Load(ctx context.Context) (Result, error) {
	meta, err := ReadMetadata(l.opts.MetadataPath)
	if err != nil {
		return Result{}, err
	}
	endpoints := ReadEndpoints(l.opts.EndpointsPath, l.logger)
	return l.Build(ctx, meta, endpoints)
}

// Build preprocesses already decoded metadata.
func (l *Loader) Build(ctx context.Context, meta Metadata, endpoints map[string]string) (Result, error) {
	if endpoints == nil {
		endpoints = map[string]string{}
	}
	result := Result{Endpoints: endpoints}
	result.Stats.RawVideo = len(meta.Video)
	result.Stats.Audio = len(meta.Audio)

	raw := meta.Video
	for len(raw) > 0 && timeline.ParseEventType(raw[0].Type) == timeline.EventSpeakerChanged {
		raw = raw[1:]
		result.Stats.LeadingSpeakerDropped++
	}

	recordedEnds := make(map[string][]int64)
	for _, ev := range raw {
		if timeline.ParseEventType(ev.Type) == timeline.EventEnded {
			recordedEnds[ev.ID()] = append(recordedEnds[ev.ID()], ev.Instant)
		}
	}

	events := make([]timeline.Event, 0, len(raw))
	var synthesized []timeline.Event
	for _, ev := range raw {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		kind := timeline.ParseEventType(ev.Type)
		switch kind {
		case timeline.EventEnded:
			result.Stats.RecordedEndsDropped++
			continue
		case timeline.EventStarted:
			duration, ok := l.duration(ctx, ev, recordedEnds, &result.Stats)
			if !ok {
				result.Stats.StartsDropped++
				logging.WarnWithContext(l.logger, "failed to determine recording duration; ignoring file", "recording_duration_unknown",
					logging.String(logging.FieldParticipantID, ev.ID()),
					logging.String("filename", ev.Filename),
					logging.String(logging.FieldErrorHint, "add durationMs to the metadata or enable ingest.probe_durations"),
					logging.String(logging.FieldImpact, "participant omitted from the timeline"),
				)
				continue
			}
			started := l.convert(ev, kind, endpoints, &result.Stats)
			media := MediaRef{File: l.mediaPath(ev.Filename), EndpointID: ev.EndpointID, DurationMs: duration}
			started.Media = media
			events = append(events, started)
			synthesized = append(synthesized, timeline.Event{
				Type:          timeline.EventEnded,
				Instant:       ev.Instant + duration,
				ParticipantID: ev.ID(),
				Media:         media,
			})
			result.Stats.EndsSynthesized++
		default:
			events = append(events, l.convert(ev, kind, endpoints, &result.Stats))
		}
	}

	events = append(events, synthesized...)
	timeline.SortEvents(events)
	result.Events = events

	l.logger.Info("metadata ingested",
		logging.Int("video_events", result.Stats.RawVideo),
		logging.Int("timeline_events", len(events)),
		logging.Int("ends_synthesized", result.Stats.EndsSynthesized),
		logging.Int("starts_dropped", result.Stats.StartsDropped),
		logging.Int("endpoints", len(endpoints)),
	)

	if len(events) == 0 {
		return result, services.Wrap(services.ErrValidation, "ingest", "preprocess", "no usable video events", timeline.ErrNoEvents)
	}
	return result, nil
}

func (l *Loader) duration(ctx context.Context, ev RawEvent, recordedEnds map[string][]int64, stats *Stats) (int64, bool) {
	if ev.DurationMs != nil && *ev.DurationMs >= 0 {
		return *ev.DurationMs, true
	}
	if l.opts.ProbeDurations && l.prober != nil && strings.TrimSpace(ev.Filename) != "" {
		path := l.mediaPath(ev.Filename)
		probe, err := l.prober.Inspect(ctx, path)
		stats.Probed++
		if err != nil {
			logging.WarnWithContext(l.logger, "ffprobe failed for recording", "recording_probe_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the file exists and ffprobe is installed"),
				logging.String(logging.FieldImpact, "falling back to the recorded end event"),
			)
		} else if ms := probe.DurationMillis(); ms > 0 && probe.VideoStreamCount() > 0 {
			return ms, true
		}
	}
	id := ev.ID()
	ends := recordedEnds[id]
	for i, instant := range ends {
		if instant >= ev.Instant {
			recordedEnds[id] = append(ends[:i:i], ends[i+1:]...)
			return instant - ev.Instant, true
		}
	}
	return 0, false
}

func (l *Loader) convert(ev RawEvent, kind timeline.EventType, endpoints map[string]string, stats *Stats) timeline.Event {
	out := timeline.Event{
		Type:          kind,
		Instant:       ev.Instant,
		ParticipantID: ev.ID(),
		AspectRatio:   layout.DefaultAspectRatio,
		Description:   strings.TrimSpace(ev.ParticipantDescription),
		ExclusiveView: ev.DisableOtherVideosOnTop,
	}
	if kind != timeline.EventStarted {
		return out
	}
	if raw := strings.TrimSpace(ev.AspectRatio); raw != "" {
		ratio, ok := layout.ParseAspectRatio(raw)
		if !ok {
			stats.MalformedAspectRatios++
			logging.WarnWithContext(l.logger, "unrecognized aspect ratio; using default", "aspect_ratio_malformed",
				logging.String(logging.FieldParticipantID, out.ParticipantID),
				logging.String("aspect_ratio", raw),
				logging.String("default", layout.DefaultAspectRatio.String()),
				logging.String(logging.FieldImpact, "tile drawn as 4:3"),
			)
		}
		out.AspectRatio = ratio
	}
	out.DisplayName = endpoints[ev.EndpointID]
	if out.DisplayName == "" {
		if name := strings.TrimSpace(ev.ParticipantName); name != "null" {
			out.DisplayName = name
		}
	}
	return out
}

func (l *Loader) mediaPath(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(l.opts.MediaDir, name)
}
