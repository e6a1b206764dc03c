package writer

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// codec converts between the configured file encoding and UTF-8. A nil
// encoding means the file is UTF-8 already.
type codec struct {
	enc encoding.Encoding
}

func newCodec(label string) (codec, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8":
		return codec{}, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return codec{}, err
	}
	return codec{enc: enc}, nil
}

func (c codec) decode(data []byte) (string, error) {
	if c.enc == nil {
		return string(data), nil
	}
	out, err := c.enc.NewDecoder().Bytes(data)
	return string(out), err
}

func (c codec) encode(text string) ([]byte, error) {
	if c.enc == nil {
		return []byte(text), nil
	}
	return c.enc.NewEncoder().Bytes([]byte(text))
}
