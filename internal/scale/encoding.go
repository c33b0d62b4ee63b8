package scale

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"

	"github.com/mrlokans/scalesync/internal/apperr"
	"github.com/mrlokans/scalesync/internal/config"
)

// textDecoder turns raw column values into strings. Older scale software
// writes names in the Windows ANSI code page; such bytes are decoded with the
// configured encoding. Values that are already valid UTF-8 are left alone.
type textDecoder struct {
	enc encoding.Encoding
}

func newTextDecoder(name string) (*textDecoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", config.EncodingUTF8, "utf8":
		return &textDecoder{}, nil
	case config.EncodingGBK, "cp936":
		return &textDecoder{enc: simplifiedchinese.GBK}, nil
	case config.EncodingGB18030:
		return &textDecoder{enc: simplifiedchinese.GB18030}, nil
	case config.EncodingBig5, "cp950":
		return &textDecoder{enc: traditionalchinese.Big5}, nil
	default:
		return nil, &apperr.ConfigurationError{
			Setting: "scale.encoding",
			Msg:     fmt.Sprintf("unsupported text encoding %q", name),
			Hint:    "use gbk, gb18030 or big5, or leave it empty for UTF-8",
		}
	}
}

func (d *textDecoder) text(v any) (string, error) {
	var raw []byte
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		raw = []byte(t)
	case []byte:
		raw = t
	default:
		return fmt.Sprint(t), nil
	}

	if d == nil || d.enc == nil || utf8.Valid(raw) {
		return string(raw), nil
	}
	out, err := d.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
