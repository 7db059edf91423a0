package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stockpilot/stockpilot/internal/storage"
)

func TestPutUsesPrefixAndForwardsMetadata(t *testing.T) {
	fake := &fakeClient{}
	store, err := NewWithClient("bucket-a", "stockpilot/prod", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}

	_, err = store.Put(context.Background(), "/inventory/snapshots/snapshot-1.parquet", bytes.NewBufferString("abc"), 3, storage.PutOptions{
		ContentType: "application/vnd.apache.parquet",
		Metadata:    map[string]string{"row-count": "3"},
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if fake.lastPutBucket != "bucket-a" {
		t.Fatalf("bucket = %q", fake.lastPutBucket)
	}
	if fake.lastPutKey != "stockpilot/prod/inventory/snapshots/snapshot-1.parquet" {
		t.Fatalf("key = %q", fake.lastPutKey)
	}
	if fake.lastPutOpts.Metadata["row-count"] != "3" {
		t.Fatalf("metadata = %#v", fake.lastPutOpts.Metadata)
	}
}

func TestPutRejectsPathTraversal(t *testing.T) {
	fake := &fakeClient{}
	store, err := NewWithClient("bucket-a", "", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	_, err = store.Put(context.Background(), "../secrets.txt", bytes.NewBufferString("x"), 1, storage.PutOptions{})
	if err == nil {
		t.Fatal("expected path traversal validation error")
	}
}

func TestGetMapsMissingObject(t *testing.T) {
	fake := &fakeClient{getErr: storage.ErrObjectNotFound}
	store, err := NewWithClient("bucket-a", "", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	if _, err := store.Get(context.Background(), "inventory/snapshots/LATEST"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Get() error = %v, want ErrObjectNotFound", err)
	}
}

func TestEnsureBucketCreatesWhenMissing(t *testing.T) {
	fake := &fakeClient{bucketExists: false}
	store, err := NewWithClient("bucket-a", "", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}

	if err := store.ensureBucket(context.Background(), "us-east-1"); err != nil {
		t.Fatalf("ensureBucket() error = %v", err)
	}
	if !fake.createBucketCalled {
		t.Fatal("expected CreateBucket to be called")
	}
}

func TestDeleteIgnoresMissingObject(t *testing.T) {
	fake := &fakeClient{deleteErr: storage.ErrObjectNotFound}
	store, err := NewWithClient("bucket-a", "", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	if err := store.Delete(context.Background(), "missing/file.parquet"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestParseEndpoint(t *testing.T) {
	endpoint, secure, err := parseEndpoint("https://minio.example.com", false)
	if err != nil {
		t.Fatalf("parseEndpoint() error = %v", err)
	}
	if endpoint != "minio.example.com" || !secure {
		t.Fatalf("endpoint/secure = %q/%v", endpoint, secure)
	}
}

func TestNormalizeMetadata(t *testing.T) {
	got := normalizeMetadata(map[string]string{"X-Amz-Meta-Row-Count": "12", "Snapshot-Id": "abc"})
	if got["row-count"] != "12" || got["snapshot-id"] != "abc" {
		t.Fatalf("normalizeMetadata() = %#v", got)
	}
	if normalizeMetadata(nil) != nil {
		t.Fatal("expected nil metadata for empty input")
	}
}

func TestListAppliesAndStripsPrefix(t *testing.T) {
	client := &fakeClient{listed: []storage.ObjectInfo{
		{Key: "tenant-a/Inventory/snapshots/b.parquet"},
		{Key: "tenant-a/Inventory/snapshots/a.parquet"},
	}}
	store, err := NewWithClient("bucket", "/tenant-a/", client)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	objects, err := store.List(context.Background(), "Inventory/snapshots/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if client.listPrefix != "tenant-a/Inventory/snapshots/" {
		t.Fatalf("list prefix = %q", client.listPrefix)
	}
	if len(objects) != 2 || objects[0].Key != "Inventory/snapshots/a.parquet" || objects[1].Key != "Inventory/snapshots/b.parquet" {
		t.Fatalf("List() = %#v", objects)
	}
	if _, err := store.List(context.Background(), "../etc"); err == nil {
		t.Fatal("expected invalid prefix error")
	}
}

type fakeClient struct {
	lastPutBucket      string
	lastPutKey         string
	lastPutOpts        storage.PutOptions
	bucketExists       bool
	createBucketCalled bool
	getErr             error
	deleteErr          error
	listPrefix         string
	listed             []storage.ObjectInfo
}

func (f *fakeClient) Put(_ context.Context, bucket, key string, reader io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	f.lastPutBucket = bucket
	f.lastPutKey = key
	f.lastPutOpts = opts
	_, _ = io.Copy(io.Discard, reader)
	return storage.ObjectInfo{Key: key, Size: size, ETag: "etag-1"}, nil
}

func (f *fakeClient) Get(_ context.Context, _, key string) (io.ReadCloser, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return io.NopCloser(strings.NewReader(key)), nil
}

func (f *fakeClient) Stat(_ context.Context, _, key string) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{Key: key, Size: 10, LastModified: time.Now().UTC()}, nil
}

func (f *fakeClient) Delete(_ context.Context, _, _ string) error {
	return f.deleteErr
}

func (f *fakeClient) List(_ context.Context, _, prefix string) ([]storage.ObjectInfo, error) {
	f.listPrefix = prefix
	return f.listed, nil
}

func (f *fakeClient) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, nil
}

func (f *fakeClient) CreateBucket(_ context.Context, _, _ string) error {
	f.createBucketCalled = true
	return nil
}

func TestMinioListReturnsServerError(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message><BucketName>inventory</BucketName></Error>`)
	}))
	defer server.Close()

	c, err := newMinioClient(Config{
		Endpoint:        server.URL,
		Region:          "us-east-1",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	})
	if err != nil {
		t.Fatalf("newMinioClient() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := c.List(ctx, "inventory", "Inventory/snapshots/"); err == nil {
		t.Fatal("List() error = nil, want access denied")
	}
	if requests.Load() == 0 {
		t.Fatal("expected a list request to reach the server")
	}
}
