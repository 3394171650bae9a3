package pithosds

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/glin-gogogo/go-pithos/pithos"
	"github.com/glin-gogogo/go-pithos/utils"
	ds "github.com/ipfs/go-datastore"
	dsQuery "github.com/ipfs/go-datastore/query"
	logging "github.com/ipfs/go-log"
	"github.com/pkg/errors"
)

var log = logging.Logger("pithosds")

var (
	ErrDatastoreExists     = errors.New("datastore already exists")
	ErrShardingFileMissing = fmt.Errorf("%s file not found in datastore", ShardingFn)
	ErrClosed              = errors.New("datastore closed")
)

// ObjectStore is the part of *pithos.Client the datastore needs.
type ObjectStore interface {
	ContainerExists(ctx context.Context, container string) (bool, error)
	CreateContainer(ctx context.Context, container string, meta *pithos.Metadata) (*pithos.Result, error)
	CreateDirectory(ctx context.Context, container, path string) (*pithos.Result, error)
	HeadObject(ctx context.Context, container, object string) (*pithos.Result, error)
	GetObject(ctx context.Context, container, object string, opts *pithos.GetOptions) (*pithos.Result, error)
	PutObject(ctx context.Context, container, object string, body io.Reader, opts *pithos.PutOptions) (*pithos.Result, error)
	DeleteObject(ctx context.Context, container, object string) (*pithos.Result, error)
	ListObjects(ctx context.Context, container string, opts *pithos.ListOptions) (*pithos.Result, error)
}

var _ ObjectStore = (*pithos.Client)(nil)

var (
	_ ds.Datastore = (*PithosDataStore)(nil)
	_ ds.Batching  = (*PithosDataStore)(nil)
)

// PithosDataStore keeps datastore values as objects named
// <root>/<shard>/<KEY>.data inside one container.
type PithosDataStore struct {
	shardStr   string
	getDir     ShardFunc
	store      ObjectStore
	container  string
	root       string
	numWorkers int
	closed     atomic.Bool
}

// CreateOrOpen connects to the service described by cfg and opens the
// datastore under cfg.Container/cfg.RootDirectory.
func CreateOrOpen(ctx context.Context, fun *ShardIdV1, cfg *utils.Config) (*PithosDataStore, error) {
	client, err := pithos.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return Open(ctx, client, fun, cfg)
}

// Open creates the container and the shard record when they are missing.
// An existing record must name the same shard function as fun.
func Open(ctx context.Context, store ObjectStore, fun *ShardIdV1, cfg *utils.Config) (*PithosDataStore, error) {
	if cfg == nil {
		return nil, utils.ErrNilConfig
	}
	if cfg.Container == "" {
		return nil, utils.ErrNoContainer
	}
	if fun == nil {
		fun = IpfsDefShard
	}
	container, root := cfg.Container, strings.Trim(cfg.RootDirectory, "/")

	exist, err := store.ContainerExists(ctx, container)
	if err != nil {
		return nil, errors.Wrapf(err, "check container %s", container)
	}
	if !exist {
		log.Infof("creating container %s", container)
		if _, err := store.CreateContainer(ctx, container, nil); err != nil {
			return nil, errors.Wrapf(err, "create container %s", container)
		}
	}

	shardId, err := ReadShardFunc(ctx, store, container, root)
	switch {
	case errors.Is(err, ErrShardingFileMissing):
		if root != "" {
			if _, err := store.CreateDirectory(ctx, container, root); err != nil {
				return nil, err
			}
		}
		if err := WriteShardFunc(ctx, store, container, root, fun); err != nil {
			return nil, err
		}
		shardId = fun
	case err == nil:
		if fun.String() != shardId.String() {
			return nil, errors.Wrapf(ErrDatastoreExists, "specified shard func '%s' does not match repo shard func '%s'",
				fun.String(), shardId.String())
		}
	default:
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = utils.MaxBatchWorkers
	}

	return &PithosDataStore{
		shardStr:   shardId.String(),
		getDir:     shardId.Func(),
		store:      store,
		container:  container,
		root:       root,
		numWorkers: workers,
	}, nil
}

// ShardStr is the identifier of the shard function in use.
func (pds *PithosDataStore) ShardStr() string {
	return pds.shardStr
}

func (pds *PithosDataStore) encode(key ds.Key) string {
	noSlash := key.String()[1:]
	return path.Join(pds.root, pds.getDir(noSlash), noSlash+utils.Extension)
}

func (pds *PithosDataStore) decode(object string) (ds.Key, bool) {
	return utils.Decode(pds.root, object)
}

func (pds *PithosDataStore) Put(ctx context.Context, k ds.Key, value []byte) error {
	if pds.closed.Load() {
		return ErrClosed
	}
	if !utils.KeyIsValid(k) {
		return errors.Wrapf(utils.ErrInvalidKey, "when putting '%q'", k)
	}

	_, err := pds.store.PutObject(ctx, pds.container, pds.encode(k), bytes.NewReader(value),
		&pithos.PutOptions{ContentType: utils.BlocksContentType})
	return err
}

func (pds *PithosDataStore) Get(ctx context.Context, k ds.Key) ([]byte, error) {
	if pds.closed.Load() {
		return nil, ErrClosed
	}
	if !utils.KeyIsValid(k) {
		return nil, ds.ErrNotFound
	}

	res, err := pds.store.GetObject(ctx, pds.container, pds.encode(k), nil)
	if pithos.IsNotFound(err) {
		return nil, ds.ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return res.Body, nil
}

func (pds *PithosDataStore) Has(ctx context.Context, k ds.Key) (bool, error) {
	if pds.closed.Load() {
		return false, ErrClosed
	}
	if !utils.KeyIsValid(k) {
		return false, nil
	}

	_, err := pds.store.HeadObject(ctx, pds.container, pds.encode(k))
	switch {
	case err == nil:
		return true, nil
	case pithos.IsNotFound(err):
		return false, nil
	}
	return false, err
}

func (pds *PithosDataStore) GetSize(ctx context.Context, k ds.Key) (int, error) {
	if pds.closed.Load() {
		return -1, ErrClosed
	}
	if !utils.KeyIsValid(k) {
		return -1, ds.ErrNotFound
	}

	object := pds.encode(k)
	res, err := pds.store.HeadObject(ctx, pds.container, object)
	if pithos.IsNotFound(err) {
		return -1, ds.ErrNotFound
	} else if err != nil {
		return -1, err
	}
	if res.Standard.ContentLength >= 0 {
		return int(res.Standard.ContentLength), nil
	}

	// Some proxies drop Content-Length on HEAD.
	v, err := pds.Get(ctx, k)
	if err != nil {
		return -1, err
	}
	return len(v), nil
}

// Delete removes k. Deleting a missing key is not an error.
func (pds *PithosDataStore) Delete(ctx context.Context, k ds.Key) error {
	if pds.closed.Load() {
		return ErrClosed
	}
	if !utils.KeyIsValid(k) {
		return nil
	}

	_, err := pds.store.DeleteObject(ctx, pds.container, pds.encode(k))
	if pithos.IsNotFound(err) {
		return nil
	}
	return err
}

// Query walks the JSON object listing under root page by page.
func (pds *PithosDataStore) Query(ctx context.Context, q dsQuery.Query) (dsQuery.Results, error) {
	if pds.closed.Load() {
		return nil, ErrClosed
	}

	prefix := ""
	if pds.root != "" {
		prefix = pds.root + "/"
	}

	var (
		page   []pithos.ObjectEntry
		marker string
		done   bool
	)
	next := func() (dsQuery.Result, bool) {
		for {
			if len(page) == 0 {
				if done {
					return dsQuery.Result{}, false
				}
				res, err := pds.store.ListObjects(ctx, pds.container, &pithos.ListOptions{
					Format: pithos.FormatJSON,
					Prefix: prefix,
					Marker: marker,
					Limit:  utils.DefaultListMax,
				})
				if err != nil {
					done = true
					return dsQuery.Result{Error: err}, true
				}
				page = res.Objects
				if len(page) < utils.DefaultListMax {
					done = true
				}
				if len(page) == 0 {
					return dsQuery.Result{}, false
				}
				marker = page[len(page)-1].Name
			}

			entry := page[0]
			page = page[1:]

			if entry.IsSubdir() || entry.IsDirectory() {
				continue
			}
			key, ok := pds.decode(entry.Name)
			if !ok {
				continue
			}

			e := dsQuery.Entry{Key: key.String(), Size: int(entry.Bytes)}
			if !q.KeysOnly {
				res, err := pds.store.GetObject(ctx, pds.container, entry.Name, nil)
				if err != nil {
					return dsQuery.Result{Error: err}, true
				}
				e.Value = res.Body
				e.Size = len(res.Body)
			}
			return dsQuery.Result{Entry: e}, true
		}
	}

	// Filtering, ordering and limits are applied locally.
	return dsQuery.NaiveQueryApply(q, dsQuery.ResultsFromIterator(q, dsQuery.Iterator{
		Next:  next,
		Close: func() error { return nil },
	})), nil
}

// Sync is a no-op, every write is durable once acknowledged.
func (pds *PithosDataStore) Sync(_ context.Context, _ ds.Key) error {
	return nil
}

func (pds *PithosDataStore) Close() error {
	pds.closed.Store(true)
	return nil
}

type PithosDataStoreBatch struct {
	pds        *PithosDataStore
	ops        map[string]batchOp
	mu         sync.Mutex
	numWorkers int
}

type batchOp struct {
	val    []byte
	delete bool
}

func (pds *PithosDataStore) Batch(_ context.Context) (ds.Batch, error) {
	if pds.closed.Load() {
		return nil, ErrClosed
	}
	return &PithosDataStoreBatch{
		pds:        pds,
		ops:        make(map[string]batchOp),
		numWorkers: pds.numWorkers,
	}, nil
}

func (b *PithosDataStoreBatch) Put(_ context.Context, k ds.Key, val []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops[k.String()] = batchOp{
		val:    val,
		delete: false,
	}
	return nil
}

func (b *PithosDataStoreBatch) Delete(_ context.Context, k ds.Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops[k.String()] = batchOp{
		val:    nil,
		delete: true,
	}
	return nil
}

// Commit applies the queued operations on a pool of workers and clears
// the queue.
func (b *PithosDataStoreBatch) Commit(ctx context.Context) error {
	b.mu.Lock()
	ops := b.ops
	b.ops = make(map[string]batchOp)
	b.mu.Unlock()

	var (
		deleteObjs []ds.Key
		putKeys    []ds.Key
	)
	for k, op := range ops {
		if op.delete {
			deleteObjs = append(deleteObjs, ds.NewKey(k))
		} else {
			putKeys = append(putKeys, ds.NewKey(k))
		}
	}

	numDeleteJobs := (len(deleteObjs) + utils.DefaultDeleteMax - 1) / utils.DefaultDeleteMax
	numJobs := len(putKeys) + numDeleteJobs
	if numJobs == 0 {
		return nil
	}
	jobs := make(chan func() error, numJobs)
	results := make(chan error, numJobs)

	numWorkers := b.numWorkers
	if numJobs < numWorkers {
		numWorkers = numJobs
	}

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	defer wg.Wait()

	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			worker(jobs, results)
		}()
	}

	for _, k := range putKeys {
		jobs <- b.newPutJob(ctx, k, ops[k.String()].val)
	}

	for i := 0; i < len(deleteObjs); i += utils.DefaultDeleteMax {
		limit := utils.DefaultDeleteMax
		if len(deleteObjs[i:]) < limit {
			limit = len(deleteObjs[i:])
		}

		jobs <- b.newDeleteJob(ctx, deleteObjs[i:i+limit])
	}
	close(jobs)

	var errs []string
	for i := 0; i < numJobs; i++ {
		err := <-results
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		log.Warnf("batch commit: %d of %d jobs failed", len(errs), numJobs)
		return fmt.Errorf("pithosds: failed batch operation:\n%s", strings.Join(errs, "\n"))
	}

	return nil
}

func (b *PithosDataStoreBatch) newPutJob(ctx context.Context, k ds.Key, value []byte) func() error {
	return func() error {
		return b.pds.Put(ctx, k, value)
	}
}

func (b *PithosDataStoreBatch) newDeleteJob(ctx context.Context, keys []ds.Key) func() error {
	return func() error {
		for _, k := range keys {
			if err := b.pds.Delete(ctx, k); err != nil {
				return err
			}
		}
		return nil
	}
}

func worker(jobs <-chan func() error, results chan<- error) {
	for j := range jobs {
		results <- j()
	}
}
