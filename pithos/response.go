package pithos

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Response is what the transport hands back for one request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StandardHeaders holds the standard HTTP headers of a response.
type StandardHeaders struct {
	ContentType        string
	ContentLength      int64 // -1 when the header is absent
	ContentEncoding    string
	ContentDisposition string
	ContentLanguage    string
	ETag               string
	LastModified       time.Time
	Date               time.Time
	Server             string
}

// StorageHeaders holds the Pithos headers of a response. Numeric fields are
// zero when the header is absent; use Get to tell absence from zero.
type StorageHeaders struct {
	AccountBytesUsed        int64
	AccountContainerCount   int64
	AccountPolicyQuota      int64
	AccountPolicyVersioning string

	ContainerBlockHash        string
	ContainerBlockSize        int64
	ContainerBytesUsed        int64
	ContainerObjectCount      int64
	ContainerObjectMeta       []string
	ContainerPolicyQuota      int64
	ContainerPolicyVersioning string

	ObjectHash             string
	ObjectUUID             string
	ObjectVersion          string
	ObjectVersionTimestamp string
	ObjectModifiedBy       string
	ObjectManifest         string
	ObjectSharing          string
	ObjectSharedBy         string
	ObjectAllowedTo        string
	ObjectPublic           string

	raw map[HeaderName]string
}

// Get returns the raw value of a storage header and whether it was present.
func (s StorageHeaders) Get(h HeaderName) (string, bool) {
	v, ok := s.raw[h]
	return v, ok
}

// Result is the decoded outcome of a successful call.
type Result struct {
	StatusCode int
	Standard   StandardHeaders
	Storage    StorageHeaders
	Meta       *Metadata
	// Body is set when no listing format was requested.
	Body       []byte
	Containers []ContainerEntry
	Objects    []ObjectEntry
}

// Names parses a plain text listing body.
func (r *Result) Names() []string {
	return splitNames(r.Body)
}

const maxErrorBody = 256

// MapResponse decodes resp, produced for req, into a Result or a typed
// error. Partial results are never returned.
func MapResponse(req *Request, resp *Response) (*Result, error) {
	if kind := ClassifyStatus(resp.StatusCode); kind != KindOK {
		return nil, statusError(kind, resp)
	}

	res := &Result{
		StatusCode: resp.StatusCode,
		Standard:   StandardHeaders{ContentLength: -1},
		Storage:    StorageHeaders{raw: make(map[HeaderName]string)},
		Meta:       NewMetadata(),
	}

	// A key present under several prefixes takes the value of the best
	// ranked one: the prefix of the addressed level, then MetaPrefixes order.
	metaRank := make(map[string]int)
	primary := req.Path.MetaPrefix()

	for name, values := range resp.Header {
		if len(values) == 0 {
			continue
		}
		value := values[0]

		if h, ok := LookupStdHeader(name); ok {
			if err := res.Standard.set(h, value); err != nil {
				return nil, err
			}
			continue
		}
		if h, ok := LookupPithosHeader(name); ok {
			if err := res.Storage.set(h, value); err != nil {
				return nil, err
			}
			continue
		}
		if p, key, ok := MatchMetaPrefix(name); ok {
			rank := prefixRank(p, primary)
			if r, seen := metaRank[key]; !seen || rank < r {
				metaRank[key] = rank
				res.Meta.Set(key, value)
			}
		}
	}

	if req.Format == FormatNone {
		res.Body = resp.Body
		return res, nil
	}

	var err error
	switch req.Path.Level() {
	case LevelAccount:
		res.Containers, err = decodeContainers(req.Format, resp.Body)
	case LevelContainer:
		res.Objects, err = decodeObjects(req.Format, resp.Body)
	default:
		res.Body = resp.Body
	}
	if err != nil {
		return nil, malformed(err, "cannot decode %s listing", req.Format)
	}
	return res, nil
}

func prefixRank(p, primary MetaPrefix) int {
	if p == primary {
		return 0
	}
	for i, mp := range MetaPrefixes {
		if mp == p {
			return i + 1
		}
	}
	return len(MetaPrefixes) + 1
}

func statusError(kind Kind, resp *Response) *Error {
	msg := http.StatusText(resp.StatusCode)
	if msg == "" {
		msg = kind.String()
	}
	if body := strings.TrimSpace(string(resp.Body)); body != "" {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		msg += ": " + body
	}
	return &Error{Kind: kind, StatusCode: resp.StatusCode, Message: msg}
}

func (s *StandardHeaders) set(h HeaderName, v string) error {
	var err error
	switch h {
	case ContentTypeHeader:
		s.ContentType = v
	case ContentLengthHeader:
		s.ContentLength, err = parseInt(h, v)
	case ContentEncodingHeader:
		s.ContentEncoding = v
	case ContentDispositionHeader:
		s.ContentDisposition = v
	case ContentLanguageHeader:
		s.ContentLanguage = v
	case ETagHeader:
		s.ETag = v
	case LastModifiedHeader:
		s.LastModified, err = parseTime(h, v)
	case DateHeader:
		s.Date, err = parseTime(h, v)
	case ServerHeader:
		s.Server = v
	}
	return err
}

func (s *StorageHeaders) set(h HeaderName, v string) error {
	s.raw[h] = v

	var err error
	switch h {
	case XAccountBytesUsed:
		s.AccountBytesUsed, err = parseInt(h, v)
	case XAccountContainerCount:
		s.AccountContainerCount, err = parseInt(h, v)
	case XAccountPolicyQuota:
		s.AccountPolicyQuota, err = parseInt(h, v)
	case XAccountPolicyVersioning:
		s.AccountPolicyVersioning = v
	case XContainerBlockHash:
		s.ContainerBlockHash = v
	case XContainerBlockSize:
		s.ContainerBlockSize, err = parseInt(h, v)
	case XContainerBytesUsed:
		s.ContainerBytesUsed, err = parseInt(h, v)
	case XContainerObjectCount:
		s.ContainerObjectCount, err = parseInt(h, v)
	case XContainerObjectMeta:
		s.ContainerObjectMeta = splitList(v)
	case XContainerPolicyQuota:
		s.ContainerPolicyQuota, err = parseInt(h, v)
	case XContainerPolicyVersioning:
		s.ContainerPolicyVersioning = v
	case XObjectHash:
		s.ObjectHash = v
	case XObjectUUID:
		s.ObjectUUID = v
	case XObjectVersion:
		s.ObjectVersion = v
	case XObjectVersionTimestamp:
		s.ObjectVersionTimestamp = v
	case XObjectModifiedBy:
		s.ObjectModifiedBy = v
	case XObjectManifest:
		s.ObjectManifest = v
	case XObjectSharing:
		s.ObjectSharing = v
	case XObjectSharedBy:
		s.ObjectSharedBy = v
	case XObjectAllowedTo:
		s.ObjectAllowedTo = v
	case XObjectPublic:
		s.ObjectPublic = v
	}
	return err
}

func parseInt(h HeaderName, v string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, malformed(err, "bad %s header %q", h, v)
	}
	return n, nil
}

func parseTime(h HeaderName, v string) (time.Time, error) {
	t, err := http.ParseTime(v)
	if err != nil {
		return time.Time{}, malformed(err, "bad %s header %q", h, v)
	}
	return t, nil
}

func splitList(v string) []string {
	out := []string{}
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
