package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	s3iface.S3API
	objects map[string]string
	got     *s3.GetObjectInput
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	f.got = in
	body, ok := f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey: The specified key does not exist.")
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
	}, nil
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri, bucket, key string
		ok               bool
	}{
		{"s3://dumps/amazon-meta.txt", "dumps", "amazon-meta.txt", true},
		{"s3://dumps/2006/amazon-meta.txt", "dumps", "2006/amazon-meta.txt", true},
		{"s3://dumps", "", "", false},
		{"s3:///key", "", "", false},
		{"/tmp/amazon-meta.txt", "", "", false},
	}
	for _, tt := range tests {
		b, k, err := ParseS3URI(tt.uri)
		if !tt.ok {
			assert.Error(t, err, tt.uri)
			continue
		}
		require.NoError(t, err, tt.uri)
		assert.Equal(t, tt.bucket, b)
		assert.Equal(t, tt.key, k)
	}
}

func TestOpenS3(t *testing.T) {
	svc := &fakeS3{objects: map[string]string{"dumps/meta.txt": "Id: 1\n"}}

	rc, err := Open(context.Background(), "s3://dumps/meta.txt", svc)
	require.NoError(t, err)
	defer rc.Close()

	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "Id: 1\n", string(b))
	assert.Equal(t, "dumps", aws.StringValue(svc.got.Bucket))
}

func TestOpenS3Errors(t *testing.T) {
	_, err := Open(context.Background(), "s3://dumps/missing.txt", &fakeS3{})
	assert.ErrorContains(t, err, "NoSuchKey")

	_, err = Open(context.Background(), "s3://dumps/meta.txt", nil)
	assert.ErrorContains(t, err, "no s3 client")
}

func TestOpenLocalFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "meta.txt")
	require.NoError(t, os.WriteFile(p, []byte("ASIN: A\n"), 0o644))

	rc, err := Open(context.Background(), p, nil)
	require.NoError(t, err)
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "ASIN: A\n", string(b))

	_, err = Open(context.Background(), filepath.Join(t.TempDir(), "absent"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenEmpty(t *testing.T) {
	_, err := Open(context.Background(), "", nil)
	assert.Error(t, err)
}
