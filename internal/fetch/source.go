package fetch

import (
	"fmt"
	"net/url"
	"strings"
)

// SourceKind says where a Source's bytes come from.
type SourceKind int

const (
	KindPath SourceKind = iota
	KindBuffer
	KindURL
	KindObject
)

func (k SourceKind) String() string {
	switch k {
	case KindPath:
		return "path"
	case KindBuffer:
		return "buffer"
	case KindURL:
		return "url"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// Source identifies the bytes to validate. Exactly one of Path, URL or Data
// is expected; URL covers both http(s) and s3:// locations.
type Source struct {
	Path string
	URL  string
	Data []byte

	// ContentType accompanies buffer sources, e.g. from a multipart part
	// header. Empty means the source carried none.
	ContentType string

	// Name labels buffer sources in reports.
	Name string
}

// ParseSource classifies a command-line style argument.
func ParseSource(arg string) Source {
	lower := strings.ToLower(arg)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "s3://"):
		return Source{URL: arg}
	default:
		return Source{Path: arg}
	}
}

// FromBytes builds a buffer source.
func FromBytes(name string, data []byte, contentType string) Source {
	return Source{Name: name, Data: data, ContentType: contentType}
}

// Kind classifies the source.
func (s Source) Kind() SourceKind {
	switch {
	case s.URL != "" && strings.HasPrefix(strings.ToLower(s.URL), "s3://"):
		return KindObject
	case s.URL != "":
		return KindURL
	case s.Path != "":
		return KindPath
	default:
		return KindBuffer
	}
}

// String is the label used in logs and reports.
func (s Source) String() string {
	switch s.Kind() {
	case KindURL, KindObject:
		return s.URL
	case KindPath:
		return s.Path
	default:
		if s.Name != "" {
			return s.Name
		}
		return "(buffer)"
	}
}

// objectLocation splits s3://bucket/key.
func objectLocation(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse object url: %w", err)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("object url %q must name a bucket and key", raw)
	}
	return bucket, key, nil
}
