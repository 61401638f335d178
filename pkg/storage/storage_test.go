package storage_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Rath300/research-collab/pkg/errors"
	"github.com/Rath300/research-collab/pkg/storage"
)

type memoryAPI struct {
	objects   map[string][]byte
	putErr    error
	deleteErr []types.Error
}

func newMemoryAPI() *memoryAPI {
	return &memoryAPI{objects: map[string][]byte{}}
}

func key(bucket, path string) string { return bucket + "/" + path }

func (m *memoryAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.objects[key(aws.ToString(in.Bucket), aws.ToString(in.Key))] = body
	return &s3.PutObjectOutput{}, nil
}

func (m *memoryAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := m.objects[key(aws.ToString(in.Bucket), aws.ToString(in.Key))]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (m *memoryAPI) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	for _, id := range in.Delete.Objects {
		delete(m.objects, key(aws.ToString(in.Bucket), aws.ToString(id.Key)))
	}
	return &s3.DeleteObjectsOutput{Errors: m.deleteErr}, nil
}

func newStore(api *memoryAPI) *storage.Store {
	return storage.NewWithAPI(api, storage.Config{
		Endpoint:       "http://localhost:9000",
		PublicBaseURL:  "https://cdn.example.org/storage/",
		MaxUploadBytes: 16,
	}, ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {}))
}

func TestUploadAndRemove(t *testing.T) {
	api := newMemoryAPI()
	store := newStore(api)
	ctx := context.Background()

	path, err := store.Upload(ctx, "avatars", "/u1/me.png", strings.NewReader("png!"), 4, storage.UploadOptions{ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "u1/me.png", path)
	assert.Equal(t, []byte("png!"), api.objects["avatars/u1/me.png"])

	_, err = store.Upload(ctx, "avatars", path, strings.NewReader("new"), 3, storage.UploadOptions{})
	var storeErr *apperrors.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, http.StatusConflict, storeErr.Status)

	_, err = store.Upload(ctx, "avatars", path, strings.NewReader("new"), 3, storage.UploadOptions{Upsert: true})
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), api.objects["avatars/u1/me.png"])

	require.NoError(t, store.Remove(ctx, "avatars", path, "u1/missing.png"))
	assert.Empty(t, api.objects)
	require.NoError(t, store.Remove(ctx, "avatars"))
}

func TestUploadValidation(t *testing.T) {
	store := newStore(newMemoryAPI())

	_, err := store.Upload(context.Background(), "avatars", "", strings.NewReader(""), 0, storage.UploadOptions{})
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.HasField("path"))
	assert.True(t, verr.HasField("file"))

	_, err = store.Upload(context.Background(), "avatars", "big.bin", strings.NewReader(strings.Repeat("x", 17)), 17, storage.UploadOptions{})
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.HasField("file"))
}

func TestStoreFailuresBecomeStoreErrors(t *testing.T) {
	api := newMemoryAPI()
	api.putErr = errors.New("connection reset")
	store := newStore(api)

	_, err := store.Upload(context.Background(), "files", "a.txt", strings.NewReader("a"), 1, storage.UploadOptions{Upsert: true})
	var storeErr *apperrors.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, http.StatusBadGateway, storeErr.Status)

	api.deleteErr = []types.Error{{Key: aws.String("a.txt"), Message: aws.String("AccessDenied")}}
	err = store.Remove(context.Background(), "files", "a.txt")
	require.ErrorAs(t, err, &storeErr)
	assert.Contains(t, storeErr.Err.Error(), "AccessDenied")
}

func TestPaths(t *testing.T) {
	store := newStore(newMemoryAPI())
	assert.Equal(t, "https://cdn.example.org/storage/avatars/u1/my%20photo.png", store.PublicURL("avatars", "u1/my photo.png"))

	now := time.UnixMilli(1700000000000)
	user := uuid.MustParse("6f1c2a0e-0000-4000-8000-000000000001")
	assert.Equal(t, user.String()+"/avatar-1700000000000.jpg", storage.AvatarPath(user, "Me.JPG", now))
	assert.Equal(t, user.String()+"/1700000000000-draft_v2_final_.pdf", storage.ProjectFilePath(user, "../draft v2 (final).pdf", now))
}

func TestConfigValidate(t *testing.T) {
	err := storage.Config{}.Validate()
	var cfgErr *apperrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ElementsMatch(t, []string{"STORAGE_ENDPOINT", "STORAGE_ACCESS_KEY_ID", "STORAGE_SECRET_ACCESS_KEY"}, cfgErr.Missing)
}
