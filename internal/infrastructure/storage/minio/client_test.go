package minio

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

type MockMinIOAPI struct {
	mock.Mock
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	args := m.Called(ctx, bucketName, opts)
	return args.Error(0)
}

func (m *MockMinIOAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	body, _ := io.ReadAll(reader)
	args := m.Called(ctx, bucketName, objectName, body, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockMinIOAPI) ReadObject(ctx context.Context, bucketName, objectName string) ([]byte, error) {
	args := m.Called(ctx, bucketName, objectName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockMinIOAPI) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Error(0)
}

func (m *MockMinIOAPI) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	args := m.Called(ctx, bucketName, opts)
	return args.Get(0).(<-chan minio.ObjectInfo)
}

type MinIOTestSuite struct {
	suite.Suite
	api    *MockMinIOAPI
	client *MinIOClient
	store  *BlobStore
	ctx    context.Context
}

func (s *MinIOTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.api = new(MockMinIOAPI)
	s.api.On("BucketExists", mock.Anything, "ibex-basis").Return(true, nil).Once()

	client, err := NewMinIOClientWithAPI(s.ctx, s.api, &MinIOConfig{Endpoint: "localhost:9000", Prefix: "cache/"}, nil)
	s.Require().NoError(err)
	s.client = client
	s.store = NewBlobStore(client)
}

func (s *MinIOTestSuite) TestEnsureBucket_Creates() {
	api := new(MockMinIOAPI)
	api.On("BucketExists", mock.Anything, "maps").Return(false, nil)
	api.On("MakeBucket", mock.Anything, "maps", minio.MakeBucketOptions{Region: "eu-west-1"}).Return(nil)

	_, err := NewMinIOClientWithAPI(s.ctx, api, &MinIOConfig{Bucket: "maps", Region: "eu-west-1"}, nil)
	s.NoError(err)
	api.AssertExpectations(s.T())
}

func (s *MinIOTestSuite) TestEnsureBucket_Failure() {
	api := new(MockMinIOAPI)
	api.On("BucketExists", mock.Anything, "ibex-basis").Return(false, io.ErrUnexpectedEOF)

	_, err := NewMinIOClientWithAPI(s.ctx, api, &MinIOConfig{}, nil)
	s.True(errors.IsCode(err, errors.CodeStorageFailure))
}

func (s *MinIOTestSuite) TestPutAndGet() {
	payload := []byte("IBXB-payload")
	s.api.On("PutObject", mock.Anything, "ibex-basis", "cache/DPI4L1.basis", payload, int64(len(payload)),
		minio.PutObjectOptions{ContentType: blobContentType}).Return(minio.UploadInfo{ETag: "abc"}, nil)
	s.api.On("ReadObject", mock.Anything, "ibex-basis", "cache/DPI4L1.basis").Return(payload, nil)

	s.NoError(s.store.Put(s.ctx, "DPI4L1.basis", payload))
	got, err := s.store.Get(s.ctx, "DPI4L1.basis")
	s.NoError(err)
	s.True(bytes.Equal(payload, got))
	s.api.AssertExpectations(s.T())
}

func (s *MinIOTestSuite) TestGet_NotFound() {
	s.api.On("ReadObject", mock.Anything, "ibex-basis", "cache/missing.basis").
		Return(nil, errors.New(errors.CodeBlobNotFound, "object not found"))

	_, err := s.store.Get(s.ctx, "missing.basis")
	s.True(errors.IsCode(err, errors.CodeBlobNotFound))
}

func (s *MinIOTestSuite) TestPut_Failure() {
	s.api.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, io.ErrClosedPipe)
	s.True(errors.IsCode(s.store.Put(s.ctx, "k", []byte{1}), errors.CodeStorageFailure))
}

func (s *MinIOTestSuite) TestKeysAndDelete() {
	ch := make(chan minio.ObjectInfo, 2)
	ch <- minio.ObjectInfo{Key: "cache/DPI8L2.basis"}
	ch <- minio.ObjectInfo{Key: "cache/DPI4L1.basis"}
	close(ch)
	s.api.On("ListObjects", mock.Anything, "ibex-basis", minio.ListObjectsOptions{Prefix: "cache/", Recursive: true}).
		Return((<-chan minio.ObjectInfo)(ch))
	s.api.On("RemoveObject", mock.Anything, "ibex-basis", "cache/DPI4L1.basis", minio.RemoveObjectOptions{}).Return(nil)

	keys, err := s.store.Keys(s.ctx)
	s.NoError(err)
	s.Equal([]string{"DPI4L1.basis", "DPI8L2.basis"}, keys)
	s.NoError(s.store.Delete(s.ctx, "DPI4L1.basis"))
}

func (s *MinIOTestSuite) TestKeys_ListError() {
	ch := make(chan minio.ObjectInfo, 1)
	ch <- minio.ObjectInfo{Err: io.ErrUnexpectedEOF}
	close(ch)
	s.api.On("ListObjects", mock.Anything, mock.Anything, mock.Anything).Return((<-chan minio.ObjectInfo)(ch))

	_, err := s.store.Keys(s.ctx)
	s.True(errors.IsCode(err, errors.CodeStorageFailure))
}

func (s *MinIOTestSuite) TestClosedClient() {
	s.NoError(s.client.Close())
	_, err := s.store.Get(s.ctx, "k")
	s.Equal(ErrMinIOClientClosed, err)
	s.Equal(ErrMinIOClientClosed, s.client.HealthCheck(s.ctx))
}

func (s *MinIOTestSuite) TestHealthCheck() {
	s.api.On("BucketExists", mock.Anything, "ibex-basis").Return(false, nil).Once()
	s.True(errors.IsCode(s.client.HealthCheck(s.ctx), errors.CodeStorageFailure))
}

func (s *MinIOTestSuite) TestApplyDefaults() {
	cfg := &MinIOConfig{}
	applyDefaults(cfg)
	s.Equal("us-east-1", cfg.Region)
	s.Equal("ibex-basis", cfg.Bucket)
}

func TestMinIOTestSuite(t *testing.T) {
	suite.Run(t, new(MinIOTestSuite))
}
