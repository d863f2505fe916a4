package aws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/groundstation/factsys/source"
	"github.com/groundstation/factsys/types"
	"github.com/groundstation/factsys/watcher"
)

// GetObjectAPI is the subset of *s3.Client used by S3Source.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source loads a parameter document, typically a fleet profile, from one
// S3 object. It is read-only; Save returns source.ErrSaveNotSupported.
type S3Source struct {
	bucket string
	key    string
	cfg    clientConfig
	client GetObjectAPI

	clientInit    sync.Once
	clientInitErr error
}

var (
	_ source.WatchableSource = (*S3Source)(nil)
	_ types.DetailsFiller    = (*S3Source)(nil)
)

// S3Option configures an S3Source.
type S3Option func(*S3Source)

func (S3Option) awsSourceOption() {}

// WithS3Client sets the S3 client. It takes precedence over WithAWSConfig.
func WithS3Client(client GetObjectAPI) S3Option {
	return func(s *S3Source) {
		s.client = client
	}
}

// NewS3Source returns a source for the object key in bucket.
//
//	l := layer.New("fleet", aws.NewS3Source("fleet-params", "survey/quad.yaml"), yaml.New())
func NewS3Source(bucket, key string, opts ...Option) *S3Source {
	s := &S3Source{bucket: bucket, key: key}
	for _, opt := range opts {
		switch o := opt.(type) {
		case ClientOption:
			o(&s.cfg)
		case S3Option:
			o(s)
		}
	}
	return s
}

func (s *S3Source) ensureClient(ctx context.Context) error {
	if s.client != nil {
		return nil
	}
	s.clientInit.Do(func() {
		cfg, err := loadAWSConfig(ctx, &s.cfg)
		if err != nil {
			s.clientInitErr = err
			return
		}
		s.client = s3.NewFromConfig(cfg)
	})
	return s.clientInitErr
}

// URI returns the object location as "s3://bucket/key".
func (s *S3Source) URI() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key)
}

// getObject fetches the object. With a non-empty ifNoneMatch an unchanged
// object yields modified == false and no data.
func (s *S3Source) getObject(ctx context.Context, ifNoneMatch string) (data []byte, etag string, modified bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, "", false, err
	}
	if err := s.ensureClient(ctx); err != nil {
		return nil, "", false, err
	}

	in := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	}
	if ifNoneMatch != "" {
		in.IfNoneMatch = aws.String(ifNoneMatch)
	}
	out, err := s.client.GetObject(ctx, in)
	if err != nil {
		var respErr *awshttp.ResponseError
		if errors.As(err, &respErr) {
			switch respErr.HTTPStatusCode() {
			case http.StatusNotModified:
				return nil, ifNoneMatch, false, nil
			case http.StatusNotFound:
				return nil, "", false, fmt.Errorf("object %s: %w", s.URI(), errors.Join(os.ErrNotExist, err))
			}
		}
		return nil, "", false, fmt.Errorf("failed to get object %s: %w", s.URI(), err)
	}
	defer out.Body.Close()

	data, err = io.ReadAll(out.Body)
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to read object %s: %w", s.URI(), err)
	}
	return data, aws.ToString(out.ETag), true, nil
}

// Type returns source.TypeS3.
func (s *S3Source) Type() source.SourceType {
	return source.TypeS3
}

// Bucket returns the bucket name.
func (s *S3Source) Bucket() string {
	return s.bucket
}

// Key returns the object key.
func (s *S3Source) Key() string {
	return s.key
}

// FillDetails implements types.DetailsFiller.
func (s *S3Source) FillDetails(d *types.Details) {
	d.Path = s.URI()
}

// Load fetches the object. A missing object fails with an error matching
// os.ErrNotExist.
func (s *S3Source) Load(ctx context.Context) ([]byte, error) {
	data, _, _, err := s.getObject(ctx, "")
	return data, err
}

// Save returns source.ErrSaveNotSupported.
func (s *S3Source) Save(ctx context.Context, updateFunc source.UpdateFunc) error {
	return source.ErrSaveNotSupported
}

// CanSave returns false.
func (s *S3Source) CanSave() bool {
	return false
}

// Watch polls the object with If-None-Match on the last seen ETag, so an
// unchanged object costs a 304 and is not downloaded again.
func (s *S3Source) Watch() (watcher.WatcherInitializer, error) {
	var lastETag string

	poll := func(ctx context.Context) (bool, []byte, error) {
		data, etag, modified, err := s.getObject(ctx, lastETag)
		if err != nil {
			return false, nil, err
		}
		if !modified {
			return false, nil, nil
		}
		lastETag = etag
		return true, data, nil
	}
	return watcher.NewPolling(poll), nil
}
