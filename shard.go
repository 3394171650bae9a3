package pithosds

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/glin-gogogo/go-pithos/pithos"
	"github.com/glin-gogogo/go-pithos/utils"
)

var IpfsDefShard = NextToLast(2)

const PREFIX = "/repo/pithosds/shard/"
const ShardingFn = "SHARDING"

type ShardFunc func(string) string

type ShardIdV1 struct {
	funName string
	param   int
	fun     ShardFunc
}

func (f *ShardIdV1) String() string {
	return fmt.Sprintf("%sv1/%s/%d", PREFIX, f.funName, f.param)
}

func (f *ShardIdV1) Func() ShardFunc {
	return f.fun
}

func Prefix(prefixLen int) *ShardIdV1 {
	padding := strings.Repeat("_", prefixLen)
	return &ShardIdV1{
		funName: "prefix",
		param:   prefixLen,
		fun: func(noSlash string) string {
			return (noSlash + padding)[:prefixLen]
		},
	}
}

func Suffix(suffixLen int) *ShardIdV1 {
	padding := strings.Repeat("_", suffixLen)
	return &ShardIdV1{
		funName: "suffix",
		param:   suffixLen,
		fun: func(noSlash string) string {
			str := padding + noSlash
			return str[len(str)-suffixLen:]
		},
	}
}

// NextToLast shards on the suffixLen characters before the last one, the
// layout go-ipfs uses for its block store.
func NextToLast(suffixLen int) *ShardIdV1 {
	padding := strings.Repeat("_", suffixLen+1)
	return &ShardIdV1{
		funName: "next-to-last",
		param:   suffixLen,
		fun: func(noSlash string) string {
			str := padding + noSlash
			offset := len(str) - suffixLen - 1
			return str[offset : offset+suffixLen]
		},
	}
}

func ParseShardFunc(str string) (*ShardIdV1, error) {
	str = strings.TrimSpace(str)

	if len(str) == 0 {
		return nil, fmt.Errorf("empty shard identifier")
	}

	trimmed := strings.TrimPrefix(str, PREFIX)
	if str == trimmed { // nothing trimmed
		return nil, fmt.Errorf("invalid or no prefix in shard identifier: %s", str)
	}
	str = trimmed

	parts := strings.Split(str, "/")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid shard identifier: %s", str)
	}

	if version := parts[0]; version != "v1" {
		return nil, fmt.Errorf("expected 'v1' for version string got: %s", version)
	}

	param, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, fmt.Errorf("invalid parameter: %v", err)
	}
	if param <= 0 {
		return nil, fmt.Errorf("shard parameter must be positive, got: %d", param)
	}

	switch funName := parts[1]; funName {
	case "prefix":
		return Prefix(param), nil
	case "suffix":
		return Suffix(param), nil
	case "next-to-last":
		return NextToLast(param), nil
	default:
		return nil, fmt.Errorf("expected 'prefix', 'suffix' or 'next-to-last' got: %s", funName)
	}
}

func shardingObject(root string) string {
	return path.Join(root, ShardingFn)
}

// ReadShardFunc loads the shard function recorded under root.
func ReadShardFunc(ctx context.Context, store ObjectStore, container, root string) (*ShardIdV1, error) {
	res, err := store.GetObject(ctx, container, shardingObject(root), nil)
	if pithos.IsNotFound(err) {
		return nil, ErrShardingFileMissing
	} else if err != nil {
		return nil, err
	}
	return ParseShardFunc(string(res.Body))
}

// WriteShardFunc records id under root.
func WriteShardFunc(ctx context.Context, store ObjectStore, container, root string, id *ShardIdV1) error {
	_, err := store.PutObject(ctx, container, shardingObject(root), bytes.NewReader([]byte(id.String())),
		&pithos.PutOptions{ContentType: utils.ShardingContentType})
	return err
}
