package ingest

import (
	"errors"

	"go.uber.org/zap"

	"github.com/openlifting/liftrelay/internal/hub"
)

// Asset bundles arrive as tagged binary frames and stay opaque: one tag
// byte, one locale-length byte, the locale, then the blob.
const (
	tagImages       = 0x01
	tagTranslations = 0x02
	tagStyles       = 0x03
)

var errShortFrame = errors.New("binary frame too short")

func bundleKind(tag byte) (string, bool) {
	switch tag {
	case tagImages:
		return "images", true
	case tagTranslations:
		return "translations", true
	case tagStyles:
		return "styles", true
	default:
		return "", false
	}
}

// HandleBinary stores one asset bundle. Malformed frames are logged and
// dropped like any other bad message. A latched protocol error suspends
// bundle storage the same way it suspends the text path.
func (a *Adapter) HandleBinary(data []byte) {
	if perr, ok := a.hub.ProtocolError().(*hub.ProtocolError); ok {
		a.log.Warn("binary frame dropped, protocol error latched",
			zap.Int("got_protocol", perr.Got), zap.Int("min_protocol", perr.Min))
		return
	}
	b, err := decodeBundle(data)
	if err != nil {
		a.log.Warn("malformed binary frame dropped", zap.Error(err))
		return
	}
	a.hub.StoreBundle(b)
}

// decodeBundle validates the frame and keys it by (kind, locale). Data keeps
// the whole tagged frame so consumers receive it byte for byte.
func decodeBundle(data []byte) (hub.Bundle, error) {
	if len(data) < 2 {
		return hub.Bundle{}, errShortFrame
	}
	kind, ok := bundleKind(data[0])
	if !ok {
		return hub.Bundle{}, errors.New("unknown bundle tag")
	}
	n := int(data[1])
	if len(data) < 2+n {
		return hub.Bundle{}, errShortFrame
	}
	return hub.Bundle{
		Kind:   kind,
		Locale: string(data[2 : 2+n]),
		Data:   data,
	}, nil
}
