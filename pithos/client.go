package pithos

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dustin/go-humanize"
	logging "github.com/ipfs/go-log"
)

var log = logging.Logger("pithos")

const (
	MethodCopy = "COPY"
	MethodMove = "MOVE"
)

// Client issues Pithos operations for one connection. It keeps no per-call
// state and is safe for concurrent use.
type Client struct {
	conn      ConnectionInfo
	transport Transport
	account   string
}

func NewClient(conn ConnectionInfo, transport Transport) (*Client, error) {
	if conn.IsZero() {
		return nil, invalidArgument("connection info is not initialized")
	}
	if transport == nil {
		return nil, invalidArgument("nil transport")
	}
	return &Client{
		conn:      conn,
		transport: transport,
		account:   conn.UserID(),
	}, nil
}

func (c *Client) Connection() ConnectionInfo {
	return c.conn
}

// Account is the account every path is rooted at.
func (c *Client) Account() string {
	return c.account
}

// WithAccount returns a client that shares the same connection and
// transport but addresses another account, e.g. one that shared objects
// with this user.
func (c *Client) WithAccount(account string) *Client {
	cp := *c
	cp.account = account
	return &cp
}

// Do runs an arbitrary operation.
func (c *Client) Do(ctx context.Context, op Operation) (*Result, error) {
	return c.do(ctx, op.Method, op)
}

// Submit starts op asynchronously.
func (c *Client) Submit(ctx context.Context, op Operation) *Future[*Result] {
	return Go(ctx, func(ctx context.Context) (*Result, error) {
		return c.Do(ctx, op)
	})
}

func (c *Client) do(ctx context.Context, name string, op Operation) (*Result, error) {
	path := op.Path.String()

	req, err := BuildRequest(c.conn, op)
	if err != nil {
		return nil, withContext(err, name, path)
	}
	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: KindTransportFailure, Op: name, Path: path, Message: "call cancelled", Cause: err}
	}

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		log.Warnf("%s %s failed: %v", req.Method, req.URL, err)
		return nil, withContext(err, name, path)
	}
	log.Debugf("%s %s -> %d (%s)", req.Method, req.URL, resp.StatusCode, humanize.Bytes(uint64(len(resp.Body))))

	res, err := MapResponse(req, resp)
	if err != nil {
		return nil, withContext(err, name, path)
	}
	return res, nil
}

func (c *Client) path(container, object string) Path {
	return Path{Account: c.account, Container: container, Object: object}
}

func requireContainer(container string) error {
	if container == "" {
		return invalidArgument("empty container name")
	}
	return nil
}

func requireObject(container, object string) error {
	if err := requireContainer(container); err != nil {
		return err
	}
	if object == "" {
		return invalidArgument("empty object name")
	}
	return nil
}

// ListOptions narrows a container or object listing. Only the fields that
// are set are sent.
type ListOptions struct {
	Format    Format
	Prefix    string
	Delimiter string
	Marker    string
	Limit     int
	// Path lists the objects directly under a pseudo-directory.
	Path string
	// Shared restricts the listing to shared entries.
	Shared bool
}

func (o *ListOptions) format() Format {
	if o == nil {
		return FormatNone
	}
	return o.Format
}

func (o *ListOptions) query() map[string]string {
	q := map[string]string{}
	if o == nil {
		return q
	}
	if o.Prefix != "" {
		q["prefix"] = o.Prefix
	}
	if o.Delimiter != "" {
		q["delimiter"] = o.Delimiter
	}
	if o.Marker != "" {
		q["marker"] = o.Marker
	}
	if o.Limit > 0 {
		q["limit"] = strconv.Itoa(o.Limit)
	}
	if o.Path != "" {
		q["path"] = o.Path
	}
	if o.Shared {
		q["shared"] = ""
	}
	return q
}

// GetOptions apply to object reads.
type GetOptions struct {
	Version     string
	IfMatch     string
	IfNoneMatch string
	Range       string
}

func (o *GetOptions) apply(op *Operation) {
	if o == nil {
		return
	}
	if o.Version != "" {
		op.Query = map[string]string{"version": o.Version}
	}
	op.Headers = map[string]string{}
	if o.IfMatch != "" {
		op.Headers[string(IfMatchHeader)] = o.IfMatch
	}
	if o.IfNoneMatch != "" {
		op.Headers[string(IfNoneMatchHeader)] = o.IfNoneMatch
	}
	if o.Range != "" {
		op.Headers[string(RangeHeader)] = o.Range
	}
}

// PutOptions apply to object writes.
type PutOptions struct {
	ContentType string
	Meta        *Metadata
	ETag        string
	IfMatch     string
	IfNoneMatch string
	Sharing     string
	Public      *bool
}

// CopyOptions apply to CopyObject and MoveObject.
type CopyOptions struct {
	// DestinationAccount places the result in another account.
	DestinationAccount string
	ContentType        string
	Meta               *Metadata
	SourceVersion      string
	IfMatch            string
}

// HeadAccount reads account headers and metadata.
func (c *Client) HeadAccount(ctx context.Context) (*Result, error) {
	return c.do(ctx, "HeadAccount", Operation{Method: http.MethodHead, Path: c.path("", "")})
}

// ListContainers lists the containers of the account. With a listing format
// the entries are in Result.Containers, otherwise Result.Names() has them.
func (c *Client) ListContainers(ctx context.Context, opts *ListOptions) (*Result, error) {
	return c.do(ctx, "ListContainers", Operation{
		Method: http.MethodGet,
		Path:   c.path("", ""),
		Query:  opts.query(),
		Format: opts.format(),
	})
}

// UpdateAccountMeta merges meta into the account metadata.
func (c *Client) UpdateAccountMeta(ctx context.Context, meta *Metadata) (*Result, error) {
	return c.postMeta(ctx, "UpdateAccountMeta", c.path("", ""), meta, true, nil)
}

// ReplaceAccountMeta replaces the account metadata with meta.
func (c *Client) ReplaceAccountMeta(ctx context.Context, meta *Metadata) (*Result, error) {
	return c.postMeta(ctx, "ReplaceAccountMeta", c.path("", ""), meta, false, nil)
}

func (c *Client) DeleteAccountMeta(ctx context.Context, keys ...string) (*Result, error) {
	return c.deleteMeta(ctx, "DeleteAccountMeta", c.path("", ""), keys)
}

func (c *Client) HeadContainer(ctx context.Context, container string) (*Result, error) {
	if err := requireContainer(container); err != nil {
		return nil, withContext(err, "HeadContainer", c.account)
	}
	return c.do(ctx, "HeadContainer", Operation{Method: http.MethodHead, Path: c.path(container, "")})
}

// ContainerExists reports whether container exists.
func (c *Client) ContainerExists(ctx context.Context, container string) (bool, error) {
	return exists(c.HeadContainer(ctx, container))
}

// CreateContainer creates container, setting meta on it when given.
func (c *Client) CreateContainer(ctx context.Context, container string, meta *Metadata) (*Result, error) {
	if err := requireContainer(container); err != nil {
		return nil, withContext(err, "CreateContainer", c.account)
	}
	return c.do(ctx, "CreateContainer", Operation{Method: http.MethodPut, Path: c.path(container, ""), Meta: meta})
}

// DeleteContainer removes container. The server refuses non-empty
// containers with 409, reported as KindClientError.
func (c *Client) DeleteContainer(ctx context.Context, container string) (*Result, error) {
	if err := requireContainer(container); err != nil {
		return nil, withContext(err, "DeleteContainer", c.account)
	}
	return c.do(ctx, "DeleteContainer", Operation{Method: http.MethodDelete, Path: c.path(container, "")})
}

// ListObjects lists the objects of container. With a listing format the
// entries are in Result.Objects, otherwise Result.Names() has them.
func (c *Client) ListObjects(ctx context.Context, container string, opts *ListOptions) (*Result, error) {
	if err := requireContainer(container); err != nil {
		return nil, withContext(err, "ListObjects", c.account)
	}
	return c.do(ctx, "ListObjects", Operation{
		Method: http.MethodGet,
		Path:   c.path(container, ""),
		Query:  opts.query(),
		Format: opts.format(),
	})
}

func (c *Client) UpdateContainerMeta(ctx context.Context, container string, meta *Metadata) (*Result, error) {
	if err := requireContainer(container); err != nil {
		return nil, withContext(err, "UpdateContainerMeta", c.account)
	}
	return c.postMeta(ctx, "UpdateContainerMeta", c.path(container, ""), meta, true, nil)
}

func (c *Client) ReplaceContainerMeta(ctx context.Context, container string, meta *Metadata) (*Result, error) {
	if err := requireContainer(container); err != nil {
		return nil, withContext(err, "ReplaceContainerMeta", c.account)
	}
	return c.postMeta(ctx, "ReplaceContainerMeta", c.path(container, ""), meta, false, nil)
}

func (c *Client) DeleteContainerMeta(ctx context.Context, container string, keys ...string) (*Result, error) {
	if err := requireContainer(container); err != nil {
		return nil, withContext(err, "DeleteContainerMeta", c.account)
	}
	return c.deleteMeta(ctx, "DeleteContainerMeta", c.path(container, ""), keys)
}

// HeadObject reads object headers and metadata without the body.
func (c *Client) HeadObject(ctx context.Context, container, object string) (*Result, error) {
	if err := requireObject(container, object); err != nil {
		return nil, withContext(err, "HeadObject", c.account)
	}
	return c.do(ctx, "HeadObject", Operation{Method: http.MethodHead, Path: c.path(container, object)})
}

// ObjectExists reports whether object exists in container.
func (c *Client) ObjectExists(ctx context.Context, container, object string) (bool, error) {
	return exists(c.HeadObject(ctx, container, object))
}

// GetObject reads an object. The content is in Result.Body.
func (c *Client) GetObject(ctx context.Context, container, object string, opts *GetOptions) (*Result, error) {
	if err := requireObject(container, object); err != nil {
		return nil, withContext(err, "GetObject", c.account)
	}
	op := Operation{Method: http.MethodGet, Path: c.path(container, object)}
	opts.apply(&op)
	return c.do(ctx, "GetObject", op)
}

// PutObject writes body as the content of object. A nil body writes an
// empty object.
func (c *Client) PutObject(ctx context.Context, container, object string, body io.Reader, opts *PutOptions) (*Result, error) {
	if err := requireObject(container, object); err != nil {
		return nil, withContext(err, "PutObject", c.account)
	}
	if body == nil {
		body = bytes.NewReader(nil)
	}

	op := Operation{Method: http.MethodPut, Path: c.path(container, object), Body: body}
	if opts != nil {
		op.ContentType = opts.ContentType
		op.Meta = opts.Meta
		op.Headers = map[string]string{}
		if opts.ETag != "" {
			op.Headers[string(ETagHeader)] = opts.ETag
		}
		if opts.IfMatch != "" {
			op.Headers[string(IfMatchHeader)] = opts.IfMatch
		}
		if opts.IfNoneMatch != "" {
			op.Headers[string(IfNoneMatchHeader)] = opts.IfNoneMatch
		}
		if opts.Sharing != "" {
			op.Headers[string(XObjectSharing)] = opts.Sharing
		}
		if opts.Public != nil {
			op.Headers[string(XObjectPublic)] = strconv.FormatBool(*opts.Public)
		}
	}
	return c.do(ctx, "PutObject", op)
}

// CreateDirectory writes an empty directory marker object.
func (c *Client) CreateDirectory(ctx context.Context, container, path string) (*Result, error) {
	return c.PutObject(ctx, container, path, nil, &PutOptions{ContentType: string(ApplicationDirectory)})
}

func (c *Client) DeleteObject(ctx context.Context, container, object string) (*Result, error) {
	if err := requireObject(container, object); err != nil {
		return nil, withContext(err, "DeleteObject", c.account)
	}
	return c.do(ctx, "DeleteObject", Operation{Method: http.MethodDelete, Path: c.path(container, object)})
}

// CopyObject copies an object server side in a single COPY request.
func (c *Client) CopyObject(ctx context.Context, srcContainer, srcObject, dstContainer, dstObject string, opts *CopyOptions) (*Result, error) {
	return c.transfer(ctx, "CopyObject", MethodCopy, srcContainer, srcObject, dstContainer, dstObject, opts)
}

// MoveObject moves an object server side in a single MOVE request.
func (c *Client) MoveObject(ctx context.Context, srcContainer, srcObject, dstContainer, dstObject string, opts *CopyOptions) (*Result, error) {
	return c.transfer(ctx, "MoveObject", MethodMove, srcContainer, srcObject, dstContainer, dstObject, opts)
}

func (c *Client) transfer(ctx context.Context, name, method, srcContainer, srcObject, dstContainer, dstObject string, opts *CopyOptions) (*Result, error) {
	if err := requireObject(srcContainer, srcObject); err != nil {
		return nil, withContext(err, name, c.account)
	}
	if err := requireObject(dstContainer, dstObject); err != nil {
		return nil, withContext(err, name, c.account)
	}

	op := Operation{
		Method: method,
		Path:   c.path(srcContainer, srcObject),
		Headers: map[string]string{
			string(Destination): "/" + url.PathEscape(dstContainer) + "/" + escapeObject(dstObject),
		},
	}
	if opts != nil {
		op.Meta = opts.Meta
		if opts.DestinationAccount != "" {
			op.Headers[string(DestinationAccount)] = opts.DestinationAccount
		}
		if opts.ContentType != "" {
			op.Headers[string(ContentTypeHeader)] = opts.ContentType
		}
		if opts.SourceVersion != "" {
			op.Headers[string(XSourceVersion)] = opts.SourceVersion
		}
		if opts.IfMatch != "" {
			op.Headers[string(IfMatchHeader)] = opts.IfMatch
		}
	}
	return c.do(ctx, name, op)
}

func (c *Client) UpdateObjectMeta(ctx context.Context, container, object string, meta *Metadata) (*Result, error) {
	if err := requireObject(container, object); err != nil {
		return nil, withContext(err, "UpdateObjectMeta", c.account)
	}
	return c.postMeta(ctx, "UpdateObjectMeta", c.path(container, object), meta, true, nil)
}

func (c *Client) ReplaceObjectMeta(ctx context.Context, container, object string, meta *Metadata) (*Result, error) {
	if err := requireObject(container, object); err != nil {
		return nil, withContext(err, "ReplaceObjectMeta", c.account)
	}
	return c.postMeta(ctx, "ReplaceObjectMeta", c.path(container, object), meta, false, nil)
}

func (c *Client) DeleteObjectMeta(ctx context.Context, container, object string, keys ...string) (*Result, error) {
	if err := requireObject(container, object); err != nil {
		return nil, withContext(err, "DeleteObjectMeta", c.account)
	}
	return c.deleteMeta(ctx, "DeleteObjectMeta", c.path(container, object), keys)
}

// PublishObject makes an object publicly readable, or private again. The
// public URL is reported by HeadObject in Storage.ObjectPublic.
func (c *Client) PublishObject(ctx context.Context, container, object string, public bool) (*Result, error) {
	if err := requireObject(container, object); err != nil {
		return nil, withContext(err, "PublishObject", c.account)
	}
	return c.postMeta(ctx, "PublishObject", c.path(container, object), nil, true,
		map[string]string{string(XObjectPublic): strconv.FormatBool(public)})
}

// ShareObject sets the sharing policy of an object, e.g.
// "read=user1,group1;write=user2". An empty policy removes sharing.
func (c *Client) ShareObject(ctx context.Context, container, object, sharing string) (*Result, error) {
	if err := requireObject(container, object); err != nil {
		return nil, withContext(err, "ShareObject", c.account)
	}
	return c.postMeta(ctx, "ShareObject", c.path(container, object), nil, true,
		map[string]string{string(XObjectSharing): sharing})
}

func (c *Client) postMeta(ctx context.Context, name string, p Path, meta *Metadata, update bool, extra map[string]string) (*Result, error) {
	op := Operation{Method: http.MethodPost, Path: p, Meta: meta, Headers: extra}
	if update {
		op.Query = map[string]string{"update": ""}
	}
	return c.do(ctx, name, op)
}

func (c *Client) deleteMeta(ctx context.Context, name string, p Path, keys []string) (*Result, error) {
	if len(keys) == 0 {
		return nil, withContext(invalidArgument("no metadata keys to delete"), name, p.String())
	}
	meta := NewMetadata()
	for _, k := range keys {
		meta.Set(k, "")
	}
	return c.postMeta(ctx, name, p, meta, true, nil)
}

func exists(_ *Result, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	}
	return false, err
}
