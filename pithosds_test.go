package pithosds

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/glin-gogogo/go-pithos/pithos"
	"github.com/glin-gogogo/go-pithos/utils"
	ds "github.com/ipfs/go-datastore"
	dsQuery "github.com/ipfs/go-datastore/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errNotFound = &pithos.Error{Kind: pithos.KindNotFound, StatusCode: http.StatusNotFound}

// MockObjectStore is a mock type for the ObjectStore
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) result(args mock.Arguments) (*pithos.Result, error) {
	res, _ := args.Get(0).(*pithos.Result)
	return res, args.Error(1)
}

func (m *MockObjectStore) ContainerExists(ctx context.Context, container string) (bool, error) {
	args := m.Called(ctx, container)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectStore) CreateContainer(ctx context.Context, container string, meta *pithos.Metadata) (*pithos.Result, error) {
	return m.result(m.Called(ctx, container, meta))
}

func (m *MockObjectStore) CreateDirectory(ctx context.Context, container, path string) (*pithos.Result, error) {
	return m.result(m.Called(ctx, container, path))
}

func (m *MockObjectStore) HeadObject(ctx context.Context, container, object string) (*pithos.Result, error) {
	return m.result(m.Called(ctx, container, object))
}

func (m *MockObjectStore) GetObject(ctx context.Context, container, object string, opts *pithos.GetOptions) (*pithos.Result, error) {
	return m.result(m.Called(ctx, container, object, opts))
}

func (m *MockObjectStore) PutObject(ctx context.Context, container, object string, body io.Reader, opts *pithos.PutOptions) (*pithos.Result, error) {
	return m.result(m.Called(ctx, container, object, body, opts))
}

func (m *MockObjectStore) DeleteObject(ctx context.Context, container, object string) (*pithos.Result, error) {
	return m.result(m.Called(ctx, container, object))
}

func (m *MockObjectStore) ListObjects(ctx context.Context, container string, opts *pithos.ListOptions) (*pithos.Result, error) {
	return m.result(m.Called(ctx, container, opts))
}

// memStore is an in-memory ObjectStore holding a single account.
type memStore struct {
	mu         sync.Mutex
	containers map[string]map[string][]byte
	failPuts   bool
}

func newMemStore() *memStore {
	return &memStore{containers: map[string]map[string][]byte{}}
}

func (s *memStore) ContainerExists(_ context.Context, container string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.containers[container]
	return ok, nil
}

func (s *memStore) CreateContainer(_ context.Context, container string, _ *pithos.Metadata) (*pithos.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[container]; !ok {
		s.containers[container] = map[string][]byte{}
	}
	return &pithos.Result{StatusCode: http.StatusCreated}, nil
}

func (s *memStore) CreateDirectory(ctx context.Context, container, path string) (*pithos.Result, error) {
	return s.PutObject(ctx, container, path, nil, nil)
}

func (s *memStore) HeadObject(_ context.Context, container, object string) (*pithos.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.containers[container][object]
	if !ok {
		return nil, errNotFound
	}
	return &pithos.Result{StatusCode: http.StatusOK, Standard: pithos.StandardHeaders{ContentLength: int64(len(v))}}, nil
}

func (s *memStore) GetObject(_ context.Context, container, object string, _ *pithos.GetOptions) (*pithos.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.containers[container][object]
	if !ok {
		return nil, errNotFound
	}
	return &pithos.Result{StatusCode: http.StatusOK, Body: append([]byte(nil), v...)}, nil
}

func (s *memStore) PutObject(_ context.Context, container, object string, body io.Reader, _ *pithos.PutOptions) (*pithos.Result, error) {
	var v []byte
	if body != nil {
		v, _ = io.ReadAll(body)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPuts {
		return nil, &pithos.Error{Kind: pithos.KindServerError, StatusCode: http.StatusServiceUnavailable}
	}
	c, ok := s.containers[container]
	if !ok {
		return nil, errNotFound
	}
	c[object] = v
	return &pithos.Result{StatusCode: http.StatusCreated}, nil
}

func (s *memStore) DeleteObject(_ context.Context, container, object string) (*pithos.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[container][object]; !ok {
		return nil, errNotFound
	}
	delete(s.containers[container], object)
	return &pithos.Result{StatusCode: http.StatusNoContent}, nil
}

func (s *memStore) ListObjects(_ context.Context, container string, opts *pithos.ListOptions) (*pithos.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[container]
	if !ok {
		return nil, errNotFound
	}

	var names []string
	for name := range c {
		if strings.HasPrefix(name, opts.Prefix) && name > opts.Marker {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if opts.Limit > 0 && len(names) > opts.Limit {
		names = names[:opts.Limit]
	}

	objects := []pithos.ObjectEntry{}
	for _, name := range names {
		objects = append(objects, pithos.ObjectEntry{Name: name, Bytes: int64(len(c[name]))})
	}
	return &pithos.Result{StatusCode: http.StatusOK, Objects: objects}, nil
}

func testConfig(t *testing.T) *utils.Config {
	cfg, err := utils.NewConfig(utils.WithContainer("blocks"), utils.WithRootDirectory("ds/blocks"), utils.WithWorkers(4))
	require.NoError(t, err)
	return cfg
}

func openMem(t *testing.T) (*PithosDataStore, *memStore) {
	store := newMemStore()
	pds, err := Open(context.Background(), store, IpfsDefShard, testConfig(t))
	require.NoError(t, err)
	return pds, store
}

// TestOpen tests the Open function
func TestOpen(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	fun, _ := ParseShardFunc("/repo/pithosds/shard/v1/next-to-last/2")

	t.Run("TestOpen_WhenNothingExists", func(t *testing.T) {
		store := new(MockObjectStore)
		store.On("ContainerExists", ctx, "blocks").Return(false, nil)
		store.On("CreateContainer", ctx, "blocks", (*pithos.Metadata)(nil)).Return(&pithos.Result{}, nil)
		store.On("GetObject", ctx, "blocks", "ds/blocks/SHARDING", (*pithos.GetOptions)(nil)).Return(nil, errNotFound)
		store.On("CreateDirectory", ctx, "blocks", "ds/blocks").Return(&pithos.Result{}, nil)
		store.On("PutObject", ctx, "blocks", "ds/blocks/SHARDING", mock.Anything, mock.MatchedBy(func(o *pithos.PutOptions) bool {
			return o.ContentType == utils.ShardingContentType
		})).Return(&pithos.Result{}, nil)

		pds, err := Open(ctx, store, fun, cfg)
		require.NoError(t, err)
		assert.Equal(t, fun.String(), pds.ShardStr())
		store.AssertExpectations(t)
	})

	t.Run("TestOpen_WhenShardFuncMatches", func(t *testing.T) {
		store := new(MockObjectStore)
		store.On("ContainerExists", ctx, "blocks").Return(true, nil)
		store.On("GetObject", ctx, "blocks", "ds/blocks/SHARDING", (*pithos.GetOptions)(nil)).
			Return(&pithos.Result{Body: []byte(fun.String() + "\n")}, nil)

		pds, err := Open(ctx, store, fun, cfg)
		require.NoError(t, err)
		assert.NotNil(t, pds)
		store.AssertNotCalled(t, "CreateContainer", mock.Anything, mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("TestOpen_WhenShardFuncDiffers", func(t *testing.T) {
		store := new(MockObjectStore)
		store.On("ContainerExists", ctx, "blocks").Return(true, nil)
		store.On("GetObject", ctx, "blocks", "ds/blocks/SHARDING", (*pithos.GetOptions)(nil)).
			Return(&pithos.Result{Body: []byte(Prefix(3).String())}, nil)

		_, err := Open(ctx, store, fun, cfg)
		assert.ErrorIs(t, err, ErrDatastoreExists)
		store.AssertExpectations(t)
	})

	t.Run("TestOpen_WhenServiceFails", func(t *testing.T) {
		store := new(MockObjectStore)
		fail := &pithos.Error{Kind: pithos.KindUnauthorized, StatusCode: http.StatusUnauthorized}
		store.On("ContainerExists", ctx, "blocks").Return(false, fail)

		_, err := Open(ctx, store, fun, cfg)
		assert.True(t, pithos.IsUnauthorized(err))
	})
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	pds, store := openMem(t)

	validKey := ds.NewKey("/CIQILQ27JL3IOBXNVDXIPYYRVORV2EB6AZGV34TP5EVUMTCJJDA63LA")
	require.NoError(t, pds.Put(ctx, validKey, []byte("the actual is: value")))
	_, ok := store.containers["blocks"]["ds/blocks/3L/CIQILQ27JL3IOBXNVDXIPYYRVORV2EB6AZGV34TP5EVUMTCJJDA63LA.data"]
	assert.True(t, ok)

	val, err := pds.Get(ctx, validKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("the actual is: value"), val)

	has, err := pds.Has(ctx, validKey)
	require.NoError(t, err)
	assert.True(t, has)

	size, err := pds.GetSize(ctx, validKey)
	require.NoError(t, err)
	assert.Equal(t, 20, size)

	require.NoError(t, pds.Delete(ctx, validKey))
	require.NoError(t, pds.Delete(ctx, validKey), "deleting a missing key")

	_, err = pds.Get(ctx, validKey)
	assert.ErrorIs(t, err, ds.ErrNotFound)
	_, err = pds.GetSize(ctx, validKey)
	assert.ErrorIs(t, err, ds.ErrNotFound)
	has, err = pds.Has(ctx, validKey)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestInvalidKey(t *testing.T) {
	ctx := context.Background()
	pds, _ := openMem(t)
	invalid := ds.NewKey("/validKey")

	err := pds.Put(ctx, invalid, []byte("v"))
	assert.ErrorIs(t, err, utils.ErrInvalidKey)

	_, err = pds.Get(ctx, invalid)
	assert.ErrorIs(t, err, ds.ErrNotFound)

	has, err := pds.Has(ctx, invalid)
	assert.NoError(t, err)
	assert.False(t, has)

	assert.NoError(t, pds.Delete(ctx, invalid))
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	pds, store := openMem(t)

	for _, k := range []string{"/KEY3", "/KEY1", "/KEY2"} {
		require.NoError(t, pds.Put(ctx, ds.NewKey(k), []byte("value"+k)))
	}
	// Objects outside the key layout are skipped.
	_, _ = store.PutObject(ctx, "blocks", "ds/blocks/junk.txt", strings.NewReader("x"), nil)
	_, _ = store.PutObject(ctx, "blocks", "elsewhere/AB/KEY9.data", strings.NewReader("x"), nil)

	t.Run("keys only", func(t *testing.T) {
		res, err := pds.Query(ctx, dsQuery.Query{KeysOnly: true, Orders: []dsQuery.Order{dsQuery.OrderByKey{}}})
		require.NoError(t, err)
		entries, err := res.Rest()
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "/KEY1", entries[0].Key)
		assert.Nil(t, entries[0].Value)
		assert.Equal(t, 10, entries[0].Size)
	})

	t.Run("values and limit", func(t *testing.T) {
		res, err := pds.Query(ctx, dsQuery.Query{Orders: []dsQuery.Order{dsQuery.OrderByKey{}}, Limit: 2})
		require.NoError(t, err)
		entries, err := res.Rest()
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "/KEY2", entries[1].Key)
		assert.Equal(t, []byte("value/KEY2"), entries[1].Value)
	})
}

func TestQueryPaging(t *testing.T) {
	ctx := context.Background()
	store := new(MockObjectStore)
	pds := &PithosDataStore{store: store, container: "blocks", root: "ds/blocks", getDir: IpfsDefShard.Func(), numWorkers: 1}

	page := make([]pithos.ObjectEntry, utils.DefaultListMax)
	for i := range page {
		page[i] = pithos.ObjectEntry{Name: "ds/blocks/__/A.data"}
	}
	page[len(page)-1].Name = "ds/blocks/__/LAST.data"

	store.On("ListObjects", ctx, "blocks", mock.MatchedBy(func(o *pithos.ListOptions) bool { return o.Marker == "" })).
		Return(&pithos.Result{Objects: page}, nil).Once()
	store.On("ListObjects", ctx, "blocks", mock.MatchedBy(func(o *pithos.ListOptions) bool { return o.Marker == "ds/blocks/__/LAST.data" })).
		Return(&pithos.Result{Objects: []pithos.ObjectEntry{{Name: "ds/blocks/__/Z.data"}}}, nil).Once()

	res, err := pds.Query(ctx, dsQuery.Query{KeysOnly: true})
	require.NoError(t, err)
	entries, err := res.Rest()
	require.NoError(t, err)
	assert.Len(t, entries, utils.DefaultListMax+1)
	assert.Equal(t, "/Z", entries[len(entries)-1].Key)
	store.AssertExpectations(t)
}

func TestCommit(t *testing.T) {
	ctx := context.Background()
	pds, _ := openMem(t)

	n, err := pds.Batch(ctx)
	require.NoError(t, err)

	_ = n.Put(ctx, ds.NewKey("/KEY1111111111"), []byte("value1"))
	_ = n.Put(ctx, ds.NewKey("/KEY2222222222"), []byte("value2"))
	_ = n.Put(ctx, ds.NewKey("/KEY3333333333"), []byte("value3"))
	require.NoError(t, n.Commit(ctx))

	_ = n.Put(ctx, ds.NewKey("/KEY4444444444"), []byte("value4"))
	_ = n.Delete(ctx, ds.NewKey("/KEY1111111111"))
	_ = n.Delete(ctx, ds.NewKey("/KEY9999999999"))
	require.NoError(t, n.Commit(ctx))

	for k, want := range map[string]bool{
		"/KEY1111111111": false,
		"/KEY2222222222": true,
		"/KEY3333333333": true,
		"/KEY4444444444": true,
	} {
		has, err := pds.Has(ctx, ds.NewKey(k))
		require.NoError(t, err)
		assert.Equal(t, want, has, k)
	}

	// An empty commit does nothing.
	assert.NoError(t, n.Commit(ctx))
}

func TestCommitErrors(t *testing.T) {
	ctx := context.Background()
	pds, store := openMem(t)
	store.failPuts = true

	n, _ := pds.Batch(ctx)
	_ = n.Put(ctx, ds.NewKey("/KEY1"), []byte("v"))
	_ = n.Put(ctx, ds.NewKey("/KEY2"), []byte("v"))

	err := n.Commit(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pithosds: failed batch operation")
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	pds, _ := openMem(t)
	require.NoError(t, pds.Sync(ctx, ds.NewKey("/")))
	require.NoError(t, pds.Close())

	_, err := pds.Get(ctx, ds.NewKey("/KEY1"))
	assert.True(t, errors.Is(err, ErrClosed))
	assert.ErrorIs(t, pds.Put(ctx, ds.NewKey("/KEY1"), nil), ErrClosed)
	_, err = pds.Batch(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = pds.Query(ctx, dsQuery.Query{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenConfig(t *testing.T) {
	ctx := context.Background()
	store := new(MockObjectStore)

	_, err := Open(ctx, store, nil, nil)
	assert.ErrorIs(t, err, utils.ErrNilConfig)

	_, err = Open(ctx, store, nil, &utils.Config{})
	assert.ErrorIs(t, err, utils.ErrNoContainer)

	store.AssertNotCalled(t, "ContainerExists", mock.Anything, mock.Anything)
}
