package artifact

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/specialistvlad/pipewright/internal/ctxlog"
)

// s3API is the subset of the S3 client the sink uses, extracted so tests
// can substitute a mock.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink publishes artifacts to an S3 bucket. PutObject under a fixed key
// gives exactly the overwrite-per-run semantics the sink contract asks for.
type S3Sink struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Sink creates a sink over the given bucket using the default AWS
// credential chain. Prefix, if non-empty, is prepended to every object key.
func NewS3Sink(ctx context.Context, bucket, prefix string) (*S3Sink, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &S3Sink{client: s3.NewFromConfig(cfg), bucket: bucket, prefix: prefix}, nil
}

// newS3SinkWithClient exists for tests.
func newS3SinkWithClient(client s3API, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

// Upload implements Sink.
func (s *S3Sink) Upload(ctx context.Context, name string, r io.Reader) error {
	key := name
	if s.prefix != "" {
		key = s.prefix + "/" + name
	}

	ctxlog.FromContext(ctx).Info("Uploading artifact.", "bucket", s.bucket, "key", key)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}
