package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize is used when the client omits pageSize.
	DefaultPageSize = 20
	// DefaultMaxPageSize caps pageSize.
	DefaultMaxPageSize = 100
)

// Params bundles the paging values extracted from a request.
type Params struct {
	PageSize  int
	PageToken string
	Offset    int
}

// Options control how Parse behaves for a given handler.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

var (
	ErrInvalidPageSize  = errors.New("pagination: invalid pageSize")
	ErrInvalidPageToken = errors.New("pagination: invalid pageToken")
)

// FromRequest parses pageSize and pageToken from the request query.
func FromRequest(r *http.Request, opts Options) (Params, error) {
	if r == nil {
		return Params{}, errors.New("pagination: nil request")
	}
	return Parse(r.URL.Query(), opts)
}

// Parse validates pageSize, clamping it to the configured maximum, and decodes pageToken.
func Parse(values url.Values, opts Options) (Params, error) {
	if values == nil {
		values = url.Values{}
	}
	size, err := parsePageSize(values.Get("pageSize"), opts)
	if err != nil {
		return Params{}, err
	}
	token := strings.TrimSpace(values.Get("pageToken"))
	offset, err := DecodeOffset(token)
	if err != nil {
		return Params{}, err
	}
	return Params{PageSize: size, PageToken: token, Offset: offset}, nil
}

// Window normalises a requested size and token into an offset and limit.
func Window(pageSize int, pageToken string, opts Options) (offset, limit int, err error) {
	limit = clampSize(pageSize, opts)
	offset, err = DecodeOffset(pageToken)
	if err != nil {
		return 0, 0, err
	}
	return offset, limit, nil
}

// NextToken returns the token for the page after [offset, offset+returned) or "" at the end.
func NextToken(offset, returned, total int) string {
	next := offset + returned
	if returned <= 0 || next >= total {
		return ""
	}
	return EncodeOffset(next)
}

func parsePageSize(raw string, opts Options) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return clampSize(0, opts), nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: must be an integer", ErrInvalidPageSize)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidPageSize)
	}
	return clampSize(value, opts), nil
}

func clampSize(value int, opts Options) int {
	maxSize := opts.MaxPageSize
	if maxSize <= 0 {
		maxSize = DefaultMaxPageSize
	}
	defaultSize := opts.DefaultPageSize
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if defaultSize > maxSize {
		defaultSize = maxSize
	}
	switch {
	case value <= 0:
		return defaultSize
	case value > maxSize:
		return maxSize
	default:
		return value
	}
}
