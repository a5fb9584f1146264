package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/golang/snappy"

	"github.com/dbsmedya/tableferry/internal/config"
)

// S3Client is the narrow slice of the S3 API the store uses.
// It exists so tests can substitute a fake client.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 stores one object per table under an s3://bucket/prefix directory.
type S3 struct {
	client      S3Client
	bucket      string
	prefix      string
	compression string
}

// NewS3 creates an S3 store from an s3://bucket/prefix data directory.
func NewS3(ctx context.Context, cfg config.DataConfig) (*S3, error) {
	bucket, prefix, err := parseS3URL(cfg.Directory)
	if err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.S3.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		})
	}
	if cfg.S3.PathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3{
		client:      s3.NewFromConfig(awsCfg, s3Opts...),
		bucket:      bucket,
		prefix:      prefix,
		compression: cfg.Compression,
	}, nil
}

// NewS3WithClient creates an S3 store with a pre-configured client.
func NewS3WithClient(client S3Client, bucket, prefix, compression string) *S3 {
	return &S3{
		client:      client,
		bucket:      bucket,
		prefix:      prefix,
		compression: compression,
	}
}

// parseS3URL splits s3://bucket/prefix into its parts.
func parseS3URL(raw string) (bucket, prefix string, err error) {
	trimmed := strings.TrimPrefix(raw, "s3://")
	if trimmed == raw || trimmed == "" {
		return "", "", fmt.Errorf("invalid S3 directory %q (expected s3://bucket/prefix)", raw)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		prefix = strings.Trim(parts[1], "/")
	}
	return bucket, prefix, nil
}

// key returns the object key for a table.
func (s *S3) key(table string) string {
	return path.Join(s.prefix, fileName(table, s.compression))
}

// Open fetches the table's object for reading.
func (s *S3) Open(ctx context.Context, table string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(table)),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.bucket, s.key(table), err)
	}

	if s.compression == "snappy" {
		return &s3SnappyReader{Reader: snappy.NewReader(out.Body), body: out.Body}, nil
	}
	return out.Body, nil
}

// Create returns a writer whose content is uploaded as one object on Close.
// S3 objects are immutable, so the body is buffered locally until complete.
func (s *S3) Create(ctx context.Context, table string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := &s3Writer{
		ctx:    ctx,
		store:  s,
		table:  table,
		buf:    &bytes.Buffer{},
	}
	if s.compression == "snappy" {
		w.compressed = snappy.NewBufferedWriter(w.buf)
	}
	return w, nil
}

// Location returns the s3://bucket/prefix directory objects live under.
func (s *S3) Location() string {
	if s.prefix == "" {
		return "s3://" + s.bucket
	}
	return "s3://" + s.bucket + "/" + s.prefix
}

type s3SnappyReader struct {
	*snappy.Reader
	body io.Closer
}

func (r *s3SnappyReader) Close() error {
	return r.body.Close()
}

// s3Writer buffers writes and uploads the object on Close.
type s3Writer struct {
	ctx        context.Context
	store      *S3
	table      string
	buf        *bytes.Buffer
	compressed *snappy.Writer
	closed     bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("write after close")
	}
	if w.compressed != nil {
		return w.compressed.Write(p)
	}
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.compressed != nil {
		if err := w.compressed.Close(); err != nil {
			return err
		}
	}

	_, err := w.store.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.store.bucket),
		Key:    aws.String(w.store.key(w.table)),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("failed to put s3://%s/%s: %w", w.store.bucket, w.store.key(w.table), err)
	}
	return nil
}
