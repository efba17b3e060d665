package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePut struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePut) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Upload(t *testing.T) {
	api := &fakePut{}
	up := NewS3WithClient(api, Config{Bucket: "club", Endpoint: "http://minio:9000/"})

	url, err := up.Upload(context.Background(), "org-1/player-photos/p1/x.png", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/club/org-1/player-photos/p1/x.png", url)
	assert.Equal(t, "club", aws.ToString(api.in.Bucket))
	assert.Equal(t, "image/png", aws.ToString(api.in.ContentType))
	assert.Equal(t, int64(3), aws.ToInt64(api.in.ContentLength))
	assert.Equal(t, []byte("png"), api.body)

	api.err = errors.New("denied")
	_, err = up.Upload(context.Background(), "k", strings.NewReader(""), -1, "")
	assert.ErrorContains(t, err, "denied")
	assert.Nil(t, api.in.ContentLength)
}

func TestPublicBaseURL(t *testing.T) {
	assert.Equal(t, "https://cdn.club.test", PublicBaseURL(Config{Bucket: "b", PublicBaseURL: "https://cdn.club.test/"}))
	assert.Equal(t, "http://localhost:9000/b", PublicBaseURL(Config{Bucket: "b", Endpoint: "http://localhost:9000"}))
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com", PublicBaseURL(Config{Bucket: "b", Region: "eu-west-1"}))
}

func TestNewS3_Disabled(t *testing.T) {
	_, err := NewS3(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = Disabled{}.Upload(context.Background(), "k", nil, 0, "")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("S3_BUCKET", "club-files")
	t.Setenv("S3_REGION", "")
	t.Setenv("S3_ENDPOINT", "http://minio:9000")
	cfg := ConfigFromEnv()
	assert.True(t, cfg.Enabled())
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.True(t, cfg.UsePathStyle)
}

func TestObjectKey(t *testing.T) {
	k := ObjectKey("org-1", FolderMedicalDocuments, "42", "../../Informe médico.pdf")
	parts := strings.Split(k, "/")
	require.Len(t, parts, 4)
	assert.Equal(t, []string{"org-1", FolderMedicalDocuments, "42"}, parts[:3])
	assert.True(t, strings.HasSuffix(parts[3], "-Informe_m_dico.pdf"), parts[3])
	assert.NotEqual(t, k, ObjectKey("org-1", FolderMedicalDocuments, "42", "Informe médico.pdf"))
}

func multipartRequest(t *testing.T, field, name string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	r := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestFormFile(t *testing.T) {
	r := multipartRequest(t, "file", "photo.jpg", []byte("jpeg-bytes"))
	f, err := FormFile(httptest.NewRecorder(), r, "file", 1<<20)
	require.NoError(t, err)
	defer f.Body.Close()
	assert.Equal(t, "photo.jpg", f.Name)
	assert.Equal(t, int64(10), f.Size)

	r = multipartRequest(t, "other", "photo.jpg", []byte("x"))
	_, err = FormFile(httptest.NewRecorder(), r, "file", 1<<20)
	assert.ErrorIs(t, err, ErrMissingFile)

	r = multipartRequest(t, "file", "big.bin", bytes.Repeat([]byte("x"), 4096))
	_, err = FormFile(httptest.NewRecorder(), r, "file", 1024)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestStatusFor(t *testing.T) {
	code, _ := StatusFor(ErrTooLarge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
	code, _ = StatusFor(ErrDisabled)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	code, _ = StatusFor(errors.New("boom"))
	assert.Equal(t, http.StatusBadGateway, code)
}
