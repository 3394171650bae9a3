package pithos

import (
	"strings"

	"github.com/go-http-utils/headers"
)

// HeaderName is the wire name of a protocol header.
type HeaderName string

func (h HeaderName) String() string { return string(h) }

// Is compares h with a raw header name the way HTTP does, ignoring case.
func (h HeaderName) Is(wire string) bool {
	return strings.EqualFold(string(h), wire)
}

// Standard HTTP headers understood by the client.
const (
	ContentTypeHeader        HeaderName = headers.ContentType
	ContentLengthHeader      HeaderName = headers.ContentLength
	ContentEncodingHeader    HeaderName = headers.ContentEncoding
	ContentDispositionHeader HeaderName = headers.ContentDisposition
	ContentLanguageHeader    HeaderName = headers.ContentLanguage
	DateHeader               HeaderName = "Date"
	LastModifiedHeader       HeaderName = headers.LastModified
	ETagHeader               HeaderName = headers.ETag
	ServerHeader             HeaderName = headers.Server
	WWWAuthenticateHeader    HeaderName = headers.WWWAuthenticate
	AcceptHeader             HeaderName = headers.Accept
	UserAgentHeader          HeaderName = headers.UserAgent
	IfMatchHeader            HeaderName = headers.IfMatch
	IfNoneMatchHeader        HeaderName = headers.IfNoneMatch
	RangeHeader              HeaderName = headers.Range
)

// Pithos specific headers.
const (
	Destination        HeaderName = "Destination"
	DestinationAccount HeaderName = "Destination-Account"

	XAuthToken HeaderName = "X-Auth-Token"

	XCopyFrom      HeaderName = "X-Copy-From"
	XMoveFrom      HeaderName = "X-Move-From"
	XSourceAccount HeaderName = "X-Source-Account"
	XSourceVersion HeaderName = "X-Source-Version"

	XAccountBytesUsed        HeaderName = "X-Account-Bytes-Used"
	XAccountContainerCount   HeaderName = "X-Account-Container-Count"
	XAccountPolicyQuota      HeaderName = "X-Account-Policy-Quota"
	XAccountPolicyVersioning HeaderName = "X-Account-Policy-Versioning"

	XContainerBlockHash        HeaderName = "X-Container-Block-Hash"
	XContainerBlockSize        HeaderName = "X-Container-Block-Size"
	XContainerBytesUsed        HeaderName = "X-Container-Bytes-Used"
	XContainerObjectCount      HeaderName = "X-Container-Object-Count"
	XContainerObjectMeta       HeaderName = "X-Container-Object-Meta"
	XContainerPolicyQuota      HeaderName = "X-Container-Policy-Quota"
	XContainerPolicyVersioning HeaderName = "X-Container-Policy-Versioning"

	XObjectHash             HeaderName = "X-Object-Hash"
	XObjectUUID             HeaderName = "X-Object-UUID"
	XObjectVersion          HeaderName = "X-Object-Version"
	XObjectVersionTimestamp HeaderName = "X-Object-Version-Timestamp"
	XObjectModifiedBy       HeaderName = "X-Object-Modified-By"
	XObjectManifest         HeaderName = "X-Object-Manifest"
	XObjectSharing          HeaderName = "X-Object-Sharing"
	XObjectSharedBy         HeaderName = "X-Object-Shared-By"
	XObjectAllowedTo        HeaderName = "X-Object-Allowed-To"
	XObjectPublic           HeaderName = "X-Object-Public"
)

// StdHeaders lists the standard headers in declaration order.
var StdHeaders = []HeaderName{
	ContentTypeHeader, ContentLengthHeader, ContentEncodingHeader,
	ContentDispositionHeader, ContentLanguageHeader, DateHeader,
	LastModifiedHeader, ETagHeader, ServerHeader, WWWAuthenticateHeader,
	AcceptHeader, UserAgentHeader, IfMatchHeader, IfNoneMatchHeader, RangeHeader,
}

// PithosHeaders lists the storage specific headers in declaration order.
var PithosHeaders = []HeaderName{
	Destination, DestinationAccount, XAuthToken,
	XCopyFrom, XMoveFrom, XSourceAccount, XSourceVersion,
	XAccountBytesUsed, XAccountContainerCount, XAccountPolicyQuota, XAccountPolicyVersioning,
	XContainerBlockHash, XContainerBlockSize, XContainerBytesUsed, XContainerObjectCount,
	XContainerObjectMeta, XContainerPolicyQuota, XContainerPolicyVersioning,
	XObjectHash, XObjectUUID, XObjectVersion, XObjectVersionTimestamp, XObjectModifiedBy,
	XObjectManifest, XObjectSharing, XObjectSharedBy, XObjectAllowedTo, XObjectPublic,
}

var (
	stdByWire    = indexHeaders(StdHeaders)
	pithosByWire = indexHeaders(PithosHeaders)
)

func indexHeaders(hs []HeaderName) map[string]HeaderName {
	m := make(map[string]HeaderName, len(hs))
	for _, h := range hs {
		m[strings.ToLower(string(h))] = h
	}
	return m
}

// LookupStdHeader finds the standard header matching a raw wire name.
func LookupStdHeader(wire string) (HeaderName, bool) {
	h, ok := stdByWire[strings.ToLower(wire)]
	return h, ok
}

// LookupPithosHeader finds the storage header matching a raw wire name.
func LookupPithosHeader(wire string) (HeaderName, bool) {
	h, ok := pithosByWire[strings.ToLower(wire)]
	return h, ok
}

// MetaPrefix is the open-ended header namespace that carries user metadata
// for one entity level.
type MetaPrefix string

const (
	AccountMeta   MetaPrefix = "X-Account-Meta-"
	ContainerMeta MetaPrefix = "X-Container-Meta-"
	ObjectMeta    MetaPrefix = "X-Object-Meta-"
)

// MetaPrefixes lists the known metadata namespaces.
var MetaPrefixes = []MetaPrefix{AccountMeta, ContainerMeta, ObjectMeta}

func (p MetaPrefix) String() string { return string(p) }

// Header returns the wire header carrying key.
func (p MetaPrefix) Header(key string) string {
	return string(p) + key
}

// Match reports whether wire belongs to the namespace and names a key.
func (p MetaPrefix) Match(wire string) bool {
	return len(wire) > len(p) && strings.EqualFold(wire[:len(p)], string(p))
}

// Strip returns the metadata key carried by wire.
func (p MetaPrefix) Strip(wire string) (string, bool) {
	if !p.Match(wire) {
		return "", false
	}
	return wire[len(p):], true
}

// MatchMetaPrefix finds the namespace a raw header name belongs to.
func MatchMetaPrefix(wire string) (MetaPrefix, string, bool) {
	for _, p := range MetaPrefixes {
		if key, ok := p.Strip(wire); ok {
			return p, key, true
		}
	}
	return "", "", false
}
