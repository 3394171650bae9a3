package pithos

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Format selects the listing representation requested from the server.
type Format uint8

const (
	FormatNone Format = iota
	FormatXML
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatJSON:
		return "json"
	}
	return ""
}

// Path addresses an account, a container in it, or an object in that
// container. Each level is supplied separately so that a '/' inside a name
// cannot shift the level boundaries.
type Path struct {
	Account   string
	Container string
	Object    string
}

// Level is the entity a Path points at.
type Level uint8

const (
	LevelAccount Level = iota
	LevelContainer
	LevelObject
)

func (p Path) Level() Level {
	switch {
	case p.Object != "":
		return LevelObject
	case p.Container != "":
		return LevelContainer
	}
	return LevelAccount
}

// MetaPrefix is the metadata namespace for the entity the path points at.
func (p Path) MetaPrefix() MetaPrefix {
	switch p.Level() {
	case LevelObject:
		return ObjectMeta
	case LevelContainer:
		return ContainerMeta
	}
	return AccountMeta
}

func (p Path) validate() error {
	if p.Account == "" {
		return invalidArgument("path has no account segment")
	}
	if p.Object != "" && p.Container == "" {
		return invalidArgument("object %q has no container", p.Object)
	}
	return nil
}

func (p Path) String() string {
	s := p.Account
	if p.Container != "" {
		s += "/" + p.Container
	}
	if p.Object != "" {
		s += "/" + p.Object
	}
	return s
}

// escaped returns the URL path for p, starting with '/'.
func (p Path) escaped() string {
	var b strings.Builder
	b.WriteByte('/')
	b.WriteString(url.PathEscape(p.Account))
	if p.Container != "" {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p.Container))
	}
	if p.Object != "" {
		b.WriteByte('/')
		b.WriteString(escapeObject(p.Object))
	}
	return b.String()
}

// escapeObject keeps the pseudo-directory separators of an object name and
// escapes every segment between them.
func escapeObject(name string) string {
	segs := strings.Split(name, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// Operation describes one storage call before it is turned into a request.
type Operation struct {
	Method  string
	Path    Path
	Query   map[string]string
	Headers map[string]string
	// Meta is serialized under the namespace of Path's level unless
	// MetaPrefix overrides it.
	Meta        *Metadata
	MetaPrefix  MetaPrefix
	Body        io.Reader
	ContentType string
	Format      Format
}

// Request is a transport ready request.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   io.Reader
	// Path and Format travel with the request so the response can be
	// mapped without the originating Operation.
	Path   Path
	Format Format
}

func hasBody(method string) bool {
	return method == http.MethodPut || method == http.MethodPost
}

// BuildRequest turns op into a request against conn.
func BuildRequest(conn ConnectionInfo, op Operation) (*Request, error) {
	if conn.IsZero() {
		return nil, invalidArgument("connection info is not initialized")
	}
	if op.Method == "" {
		return nil, invalidArgument("operation has no method")
	}
	if err := op.Path.validate(); err != nil {
		return nil, err
	}

	h := make(http.Header, len(op.Headers)+op.Meta.Size()+2)
	for k, v := range op.Headers {
		if XAuthToken.Is(k) {
			continue
		}
		if err := validHeader(k, v); err != nil {
			return nil, err
		}
		h.Set(k, v)
	}

	prefix := op.MetaPrefix
	if prefix == "" {
		prefix = op.Path.MetaPrefix()
	}
	keys := op.Meta.Keys()
	for _, k := range keys {
		if k == "" {
			return nil, invalidArgument("empty metadata key")
		}
		v, _ := op.Meta.Get(k)
		name := prefix.Header(k)
		if err := validHeader(name, v); err != nil {
			return nil, err
		}
		// Set verbatim, canonicalization would change the key's case.
		h[name] = []string{v}
	}

	var body io.Reader
	if hasBody(op.Method) && op.Body != nil {
		body = op.Body
		ct := op.ContentType
		if ct == "" {
			ct = string(ApplicationOctetStream)
		}
		h.Set(string(ContentTypeHeader), ct)
	} else if hasBody(op.Method) && op.ContentType != "" {
		h.Set(string(ContentTypeHeader), op.ContentType)
	}
	if err := validHeader(string(ContentTypeHeader), h.Get(string(ContentTypeHeader))); err != nil {
		return nil, err
	}

	h.Set(string(XAuthToken), conn.UserToken())

	q := make(url.Values, len(op.Query)+1)
	for k, v := range op.Query {
		if k == "format" {
			continue
		}
		q.Set(k, v)
	}
	if op.Format != FormatNone {
		q.Set("format", op.Format.String())
	}

	u := conn.BaseURL() + op.Path.escaped()
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	return &Request{
		Method: op.Method,
		URL:    u,
		Header: h,
		Body:   body,
		Path:   op.Path,
		Format: op.Format,
	}, nil
}

// validHeader rejects names and values net/http would refuse to send.
func validHeader(name, value string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return invalidArgument("invalid header name %q", name)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return invalidArgument("invalid value for header %q", name)
	}
	return nil
}
