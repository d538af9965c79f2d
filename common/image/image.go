package image

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"regexp"
	"strings"
	"sync"

	"github.com/Laisky/errors/v2"
	_ "golang.org/x/image/webp"

	"github.com/bedrock-gateway/bedrock-assumerole/common/config"
)

// Regex to match data URL pattern
var dataURLPattern = regexp.MustCompile(`^data:(image/[^;]+);base64,`)

var readerPool = sync.Pool{
	New: func() any {
		return &bytes.Reader{}
	},
}

// Info describes a decoded base64 image.
type Info struct {
	MediaType string
	Format    string
	Width     int
	Height    int
	SizeBytes int
}

// StripDataURL removes a `data:image/...;base64,` prefix and returns the payload
// together with the media type it declared (empty when there was no prefix).
func StripDataURL(encoded string) (payload string, mediaType string) {
	encoded = strings.TrimSpace(encoded)
	loc := dataURLPattern.FindStringSubmatchIndex(encoded)
	if loc == nil {
		return encoded, ""
	}
	return encoded[loc[1]:], encoded[loc[2]:loc[3]]
}

// Inspect decodes the image header of a base64 payload, optionally prefixed by a data URL.
func Inspect(encoded string) (*Info, error) {
	payload, declared := StripDataURL(encoded)
	if payload == "" {
		return nil, errors.New("empty image payload")
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Wrap(err, "decode base64 image")
	}

	if limit := config.MaxInlineImageSizeMB; limit > 0 && len(decoded) > limit*1024*1024 {
		return nil, errors.Errorf("image is %d bytes, exceeds the %d MB limit", len(decoded), limit)
	}

	reader := readerPool.Get().(*bytes.Reader)
	defer readerPool.Put(reader)
	reader.Reset(decoded)

	cfg, format, err := image.DecodeConfig(reader)
	if err != nil {
		return nil, errors.Wrap(err, "decode image config")
	}

	mediaType := declared
	if mediaType == "" {
		mediaType = "image/" + format
	}

	return &Info{
		MediaType: mediaType,
		Format:    format,
		Width:     cfg.Width,
		Height:    cfg.Height,
		SizeBytes: len(decoded),
	}, nil
}
