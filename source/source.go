// Package source opens the catalog dump: a local file, standard input ("-") or an S3
// object ("s3://bucket/key").
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	slog "github.com/CatalogLoad/syslog"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

const (
	logid = "source: "
	// Stdin names standard input as the dump.
	Stdin = "-"
)

func syslog(s string) {
	slog.Log(logid, s)
}

// IsS3 reports whether uri names an S3 object.
func IsS3(uri string) bool {
	return strings.HasPrefix(uri, "s3://")
}

// ParseS3URI splits s3://bucket/key.
func ParseS3URI(uri string) (bucket string, key string, err error) {
	if !IsS3(uri) {
		return "", "", fmt.Errorf("%q is not an s3 uri", uri)
	}
	rest := strings.TrimPrefix(uri, "s3://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || len(bucket) == 0 || len(key) == 0 {
		return "", "", fmt.Errorf("s3 uri %q needs both bucket and key", uri)
	}
	return bucket, key, nil
}

// Open returns a reader over the dump named by uri. svc is used for s3:// uris only and
// may be nil otherwise. The caller closes the reader.
func Open(ctx context.Context, uri string, svc s3iface.S3API) (io.ReadCloser, error) {

	switch {
	case len(uri) == 0:
		return nil, errors.New("no input given")

	case uri == Stdin:
		syslog("reading standard input")
		return io.NopCloser(os.Stdin), nil

	case IsS3(uri):
		bucket, key, err := ParseS3URI(uri)
		if err != nil {
			return nil, err
		}
		if svc == nil {
			return nil, fmt.Errorf("open %s: no s3 client", uri)
		}
		out, err := svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", uri, err)
		}
		syslog(fmt.Sprintf("reading s3 object %s (%d bytes)", uri, aws.Int64Value(out.ContentLength)))
		return out.Body, nil

	default:
		f, err := os.Open(uri)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		syslog(fmt.Sprintf("reading file %s", uri))
		return f, nil
	}
}
