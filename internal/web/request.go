package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/csvlint/internal/core"
	"github.com/JonMunkholm/csvlint/internal/dialect"
	"github.com/JonMunkholm/csvlint/internal/fetch"
	"github.com/JonMunkholm/csvlint/internal/validator"
)

// validateBody is the JSON form of POST /api/validate.
type validateBody struct {
	URL         string          `json:"url"`
	Content     *string         `json:"content"`
	ContentType string          `json:"contentType"`
	Name        string          `json:"name"`
	Options     validateOptions `json:"options"`
	Dialect     json.RawMessage `json:"dialect"`
}

type validateOptions struct {
	Header         *bool  `json:"header"`
	Delimiter      string `json:"delimiter"`
	QuoteChar      string `json:"quoteChar"`
	LineTerminator string `json:"lineTerminator"`
	SkipBlanks     *bool  `json:"skipBlanks"`
	Data           bool   `json:"data"`
	Formats        bool   `json:"formats"`
}

func (o validateOptions) toValidator() validator.Options {
	return validator.Options{
		Header:         o.Header,
		Delimiter:      o.Delimiter,
		QuoteChar:      o.QuoteChar,
		LineTerminator: o.LineTerminator,
		SkipBlanks:     o.SkipBlanks,
		KeepData:       o.Data,
		RecordFormats:  o.Formats,
	}
}

// parseValidateRequest reads a multipart upload or a JSON body.
func (s *Server) parseValidateRequest(w http.ResponseWriter, r *http.Request) (core.Request, error) {
	maxSize := s.cfg.Server.MaxUploadSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		return parseMultipart(r, maxSize)
	case "application/json", "":
		return parseJSON(r)
	default:
		return core.Request{}, fmt.Errorf("%w: unsupported content type %q", errInvalidRequest, mediaType)
	}
}

func parseJSON(r *http.Request) (core.Request, error) {
	var body validateBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return core.Request{}, bodyError(err, r)
	}

	req := core.Request{Options: body.Options.toValidator()}

	if len(body.Dialect) > 0 && string(body.Dialect) != "null" {
		ddf, err := dialect.ParseDDF(body.Dialect)
		if err != nil {
			return core.Request{}, fmt.Errorf("%w: %v", errInvalidRequest, err)
		}
		req.Dialect = ddf
	}

	switch {
	case body.URL != "" && body.Content != nil:
		return core.Request{}, fmt.Errorf("%w: give either url or content, not both", errInvalidRequest)
	case body.URL != "":
		src, err := remoteSource(body.URL)
		if err != nil {
			return core.Request{}, err
		}
		req.Source = src
	case body.Content != nil:
		name := body.Name
		if name == "" {
			name = "(inline)"
		}
		req.Source = fetch.FromBytes(name, []byte(*body.Content), body.ContentType)
	default:
		return core.Request{}, core.ErrNoSource
	}
	return req, nil
}

func parseMultipart(r *http.Request, maxSize int64) (core.Request, error) {
	if err := r.ParseMultipartForm(maxSize); err != nil {
		return core.Request{}, bodyError(err, r)
	}

	opts, err := formOptions(r)
	if err != nil {
		return core.Request{}, err
	}
	req := core.Request{Options: opts}

	if raw := r.FormValue("dialect"); raw != "" {
		ddf, err := dialect.ParseDDF([]byte(raw))
		if err != nil {
			return core.Request{}, fmt.Errorf("%w: %v", errInvalidRequest, err)
		}
		req.Dialect = ddf
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return core.Request{}, fmt.Errorf("read upload: %w", err)
		}
		req.Source = fetch.FromBytes(header.Filename, data, header.Header.Get("Content-Type"))
	case errors.Is(err, http.ErrMissingFile):
		raw := r.FormValue("url")
		if raw == "" {
			return core.Request{}, core.ErrNoSource
		}
		src, err := remoteSource(raw)
		if err != nil {
			return core.Request{}, err
		}
		req.Source = src
	default:
		return core.Request{}, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	return req, nil
}

// bodyError keeps size violations distinguishable from malformed bodies.
// Some multipart paths flatten the MaxBytesError into text.
func bodyError(err error, r *http.Request) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return maxBytes
	}
	if strings.Contains(err.Error(), "request body too large") {
		return &http.MaxBytesError{Limit: r.ContentLength}
	}
	return fmt.Errorf("%w: %v", errInvalidRequest, err)
}

func formOptions(r *http.Request) (validator.Options, error) {
	header, err := formBool(r, "header")
	if err != nil {
		return validator.Options{}, err
	}
	skipBlanks, err := formBool(r, "skipBlanks")
	if err != nil {
		return validator.Options{}, err
	}
	data, err := formBool(r, "data")
	if err != nil {
		return validator.Options{}, err
	}
	formats, err := formBool(r, "formats")
	if err != nil {
		return validator.Options{}, err
	}

	return validator.Options{
		Header:         header,
		Delimiter:      r.FormValue("delimiter"),
		QuoteChar:      r.FormValue("quoteChar"),
		LineTerminator: r.FormValue("lineTerminator"),
		SkipBlanks:     skipBlanks,
		KeepData:       data != nil && *data,
		RecordFormats:  formats != nil && *formats,
	}, nil
}

// formBool parses an optional boolean field; absent yields nil.
func formBool(r *http.Request, name string) (*bool, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be true or false", errInvalidRequest, name)
	}
	return &b, nil
}

// remoteSource accepts only http(s) and s3 locations so clients cannot read
// files on the server.
func remoteSource(raw string) (fetch.Source, error) {
	src := fetch.ParseSource(strings.TrimSpace(raw))
	switch src.Kind() {
	case fetch.KindURL, fetch.KindObject:
		return src, nil
	default:
		return fetch.Source{}, fmt.Errorf("%w: url must use http, https or s3", errInvalidRequest)
	}
}
