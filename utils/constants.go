package utils

const (
	DefaultMaxConnections = 20
	DefaultMaxRedirects   = 10
	DefaultUserAgent      = "go-pithos/1.0"
	DefaultContainer      = "pithos"
	DefaultRootDirectory  = "ds/blocks"
	MaxBatchWorkers       = 32
)

const (
	DefaultListMax      = 10000
	BlocksContentType   = "application/octet-stream"
	ShardingContentType = "text/plain"
)

// DefaultDeleteMax is the number of keys one batch delete job removes.
const DefaultDeleteMax = 1000
