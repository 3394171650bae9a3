package utils

import (
	"path"
	"strings"

	"github.com/ipfs/go-datastore"
)

func KeyIsValid(key datastore.Key) bool {
	ks := key.String()
	if len(ks) < 2 || ks[0] != '/' {
		return false
	}
	for _, b := range ks[1:] {
		if '0' <= b && b <= '9' {
			continue
		}
		if 'A' <= b && b <= 'Z' {
			continue
		}
		switch b {
		case '+', '-', '_', '=':
			continue
		}
		return false
	}
	return true
}

// Decode maps an object name laid out as <prefix>/<shard>/<KEY><Extension>
// back to its datastore key.
func Decode(prefix, name string) (key datastore.Key, ok bool) {
	if !strings.HasSuffix(name, Extension) {
		return datastore.Key{}, false
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	name = strings.TrimPrefix(name, "/")
	if !strings.HasPrefix(name, prefix) {
		return datastore.Key{}, false
	}

	base := path.Base(name)
	key = datastore.NewKey(base[:len(base)-len(Extension)])
	if !KeyIsValid(key) {
		return datastore.Key{}, false
	}
	return key, true
}
