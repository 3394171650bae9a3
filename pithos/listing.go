package pithos

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// ContainerEntry is one row of an account listing.
type ContainerEntry struct {
	Name         string            `json:"name" xml:"name"`
	Count        int64             `json:"count" xml:"count"`
	Bytes        int64             `json:"bytes" xml:"bytes"`
	LastModified string            `json:"last_modified" xml:"last_modified"`
	Policy       map[string]string `json:"x_container_policy,omitempty" xml:"-"`
}

// ObjectEntry is one row of a container listing. Rows produced by a
// delimiter query carry only Subdir.
type ObjectEntry struct {
	Name             string `json:"name" xml:"name"`
	Hash             string `json:"hash" xml:"hash"`
	Bytes            int64  `json:"bytes" xml:"bytes"`
	ContentType      string `json:"content_type" xml:"content_type"`
	LastModified     string `json:"last_modified" xml:"last_modified"`
	ObjectHash       string `json:"x_object_hash,omitempty" xml:"x_object_hash"`
	UUID             string `json:"x_object_uuid,omitempty" xml:"x_object_uuid"`
	Version          Scalar `json:"x_object_version,omitempty" xml:"x_object_version"`
	VersionTimestamp Scalar `json:"x_object_version_timestamp,omitempty" xml:"x_object_version_timestamp"`
	ModifiedBy       string `json:"x_object_modified_by,omitempty" xml:"x_object_modified_by"`
	Sharing          string `json:"x_object_sharing,omitempty" xml:"x_object_sharing"`
	AllowedTo        string `json:"x_object_allowed_to,omitempty" xml:"x_object_allowed_to"`
	Public           string `json:"x_object_public,omitempty" xml:"x_object_public"`
	Subdir           string `json:"subdir,omitempty" xml:"-"`
}

// IsSubdir reports whether the row is a pseudo-directory from a delimiter
// listing.
func (e ObjectEntry) IsSubdir() bool {
	return e.Subdir != ""
}

// IsDirectory reports whether the row is a directory marker object.
func (e ObjectEntry) IsDirectory() bool {
	return IsDirectory(e.ContentType)
}

// Scalar is a string that also accepts JSON numbers, since servers disagree
// on how versions and timestamps are encoded.
type Scalar string

func (s *Scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*s = ""
	case b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = Scalar(v)
	default:
		*s = Scalar(b)
	}
	return nil
}

func (s Scalar) String() string { return string(s) }

func decodeContainers(format Format, body []byte) ([]ContainerEntry, error) {
	entries := []ContainerEntry{}
	if len(bytes.TrimSpace(body)) == 0 {
		return entries, nil
	}

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(body, &entries); err != nil {
			return nil, err
		}
	case FormatXML:
		err := decodeXMLChildren(body, func(d *xml.Decoder, se xml.StartElement) error {
			if se.Name.Local != "container" {
				return d.Skip()
			}
			var e ContainerEntry
			if err := d.DecodeElement(&e, &se); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if entries == nil {
		entries = []ContainerEntry{}
	}
	return entries, nil
}

type xmlSubdir struct {
	Name string `xml:"name,attr"`
}

func decodeObjects(format Format, body []byte) ([]ObjectEntry, error) {
	entries := []ObjectEntry{}
	if len(bytes.TrimSpace(body)) == 0 {
		return entries, nil
	}

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(body, &entries); err != nil {
			return nil, err
		}
	case FormatXML:
		err := decodeXMLChildren(body, func(d *xml.Decoder, se xml.StartElement) error {
			switch se.Name.Local {
			case "object":
				var e ObjectEntry
				if err := d.DecodeElement(&e, &se); err != nil {
					return err
				}
				entries = append(entries, e)
			case "subdir":
				var sd xmlSubdir
				if err := d.DecodeElement(&sd, &se); err != nil {
					return err
				}
				entries = append(entries, ObjectEntry{Subdir: sd.Name})
			default:
				return d.Skip()
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if entries == nil {
		entries = []ObjectEntry{}
	}
	return entries, nil
}

var errNoXMLRoot = errors.New("document has no root element")

// decodeXMLChildren calls visit for every direct child of the document root,
// in document order. visit must consume the element it is handed.
func decodeXMLChildren(body []byte, visit func(d *xml.Decoder, se xml.StartElement) error) error {
	d := xml.NewDecoder(bytes.NewReader(body))
	depth, sawRoot := 0, false
	for {
		tok, err := d.Token()
		if err == io.EOF {
			if depth != 0 {
				return io.ErrUnexpectedEOF
			}
			if !sawRoot {
				return errNoXMLRoot
			}
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				depth, sawRoot = 1, true
				continue
			}
			if err := visit(d, t); err != nil {
				return err
			}
		case xml.EndElement:
			depth--
		}
	}
}

// splitNames parses a plain text listing, one name per line.
func splitNames(body []byte) []string {
	names := []string{}
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			names = append(names, line)
		}
	}
	return names
}
