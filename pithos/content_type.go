package pithos

import (
	"mime"
	"strings"
)

// ContentType is a media type understood by the client.
type ContentType string

const (
	ApplicationDirectory   ContentType = "application/directory"
	ApplicationFolder      ContentType = "application/folder"
	ApplicationJSON        ContentType = "application/json"
	ApplicationXML         ContentType = "application/xml"
	ApplicationOctetStream ContentType = "application/octet-stream"
	TextPlain              ContentType = "text/plain"
	TextHTML               ContentType = "text/html"
)

var ContentTypes = []ContentType{
	ApplicationDirectory, ApplicationFolder, ApplicationJSON, ApplicationXML,
	ApplicationOctetStream, TextPlain, TextHTML,
}

func (c ContentType) String() string { return string(c) }

// Is compares c with a raw Content-Type value. Parameters such as charset
// are ignored.
func (c ContentType) Is(raw string) bool {
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		mt = strings.TrimSpace(raw)
	}
	return strings.EqualFold(mt, string(c))
}

// IsDirectory reports whether raw marks a Pithos directory object.
func IsDirectory(raw string) bool {
	return ApplicationDirectory.Is(raw) || ApplicationFolder.Is(raw)
}
