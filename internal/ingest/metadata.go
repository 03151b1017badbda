package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"recplan/internal/services"
)

// Metadata is the recorder's metadata document.
type Metadata struct {
	Video []RawEvent `json:"video"`
	Audio []RawEvent `json:"audio"`
}

// RawEvent is a recorder event as written to disk.
type RawEvent struct {
	Type                    string `json:"type"`
	Instant                 int64  `json:"instant"`
	MediaType               string `json:"mediaType,omitempty"`
	SSRC                    *int64 `json:"ssrc,omitempty"`
	ParticipantID           string `json:"participantId,omitempty"`
	EndpointID              string `json:"endpointId,omitempty"`
	AspectRatio             string `json:"aspectRatio,omitempty"`
	Filename                string `json:"filename,omitempty"`
	ParticipantName         string `json:"participantName,omitempty"`
	ParticipantDescription  string `json:"participantDescription,omitempty"`
	DisableOtherVideosOnTop bool   `json:"disableOtherVideosOnTop,omitempty"`
	DurationMs              *int64 `json:"durationMs,omitempty"`
}

// ID returns the stream identifier: the explicit participant id when set,
// otherwise the SSRC.
func (e RawEvent) ID() string {
	if id := strings.TrimSpace(e.ParticipantID); id != "" {
		return id
	}
	if e.SSRC != nil {
		return strconv.FormatInt(*e.SSRC, 10)
	}
	return ""
}

// ReadMetadata loads and decodes a metadata file.
func ReadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Metadata{}, services.Wrap(services.ErrNotFound, "ingest", "read metadata", path, err)
		}
		return Metadata{}, services.Wrap(services.ErrTransient, "ingest", "read metadata", path, err)
	}
	return ParseMetadata(data)
}

// ParseMetadata decodes a metadata document. A document without a video
// array is rejected.
func ParseMetadata(data []byte) (Metadata, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return Metadata{}, services.Wrap(services.ErrValidation, "ingest", "parse metadata", "broken json", err)
	}
	if _, ok := probe["video"]; !ok {
		return Metadata{}, services.Wrap(services.ErrValidation, "ingest", "parse metadata", "missing video events", nil)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, services.Wrap(services.ErrValidation, "ingest", "parse metadata", fmt.Sprintf("decode events: %v", err), err)
	}
	return meta, nil
}
