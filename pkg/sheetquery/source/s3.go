package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	log "github.com/sirupsen/logrus"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
)

// S3API is the subset of the S3 client used by S3Fetcher.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds configuration for S3 retrieval.
type S3Config struct {
	// Region is the AWS region of the bucket.
	Region string
	// Endpoint is an optional custom endpoint (for MinIO, LocalStack, etc.).
	Endpoint string
	// UsePathStyle enables path-style addressing (required for MinIO).
	UsePathStyle bool
	// TTL is the freshness window (default: 5 minutes).
	TTL time.Duration
	// Timeout bounds one download (default: 60 seconds).
	Timeout time.Duration
}

type s3Meta struct {
	contentLength int64
	contentType   string
	etag          string
	lastModified  *time.Time
}

// S3Fetcher retrieves a workbook stored as an S3 object.
type S3Fetcher struct {
	client     S3API
	bucket     string
	key        string
	timeout    time.Duration
	maxRetries int
	log        *log.Entry

	// fetchMu serializes downloads; mu guards win and meta only.
	fetchMu sync.Mutex
	mu      sync.Mutex
	win     window
	meta    s3Meta
}

// IsS3URL reports whether locator uses the s3 scheme.
func IsS3URL(locator string) bool {
	return strings.HasPrefix(strings.ToLower(locator), "s3://")
}

// ParseS3URL splits s3://bucket/key into bucket and key.
func ParseS3URL(locator string) (bucket, key string, err error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", "", fmt.Errorf("invalid s3 url %q: %w", locator, err)
	}
	if !strings.EqualFold(u.Scheme, "s3") {
		return "", "", fmt.Errorf("invalid s3 url %q: scheme must be s3", locator)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 url %q: expected s3://bucket/key", locator)
	}
	return u.Host, key, nil
}

// NewS3Fetcher creates a fetcher for an s3://bucket/key locator using the
// default AWS credential chain.
func NewS3Fetcher(ctx context.Context, locator string, cfg S3Config) (*S3Fetcher, error) {
	bucket, key, err := ParseS3URL(locator)
	if err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return NewS3FetcherWithClient(s3.NewFromConfig(awsCfg, s3Opts...), bucket, key, cfg), nil
}

// NewS3FetcherWithClient creates a fetcher with a pre-configured client.
func NewS3FetcherWithClient(client S3API, bucket, key string, cfg S3Config) *S3Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &S3Fetcher{
		client:     client,
		bucket:     bucket,
		key:        key,
		timeout:    timeout,
		maxRetries: 3,
		log:        log.WithField("component", "s3-fetcher"),
		win:        newWindow(cfg.TTL),
	}
}

// Fetch returns the held document while fresh, otherwise downloads the object.
// Fresh and Info do not wait for a download in progress.
func (s *S3Fetcher) Fetch(ctx context.Context) (*Document, error) {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	if doc := s.freshDoc(); doc != nil {
		return doc, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var body []byte
	var out *s3.GetObjectOutput
	err := s.retryWithBackoff(ctx, func() error {
		var getErr error
		out, getErr = s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key),
		})
		if getErr != nil {
			var noSuchKey *types.NoSuchKey
			if errors.As(getErr, &noSuchKey) {
				return ErrObjectNotFound
			}
			return getErr
		}
		defer out.Body.Close()
		body, getErr = io.ReadAll(out.Body)
		return getErr
	})
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: s3://%s/%s: %w", ErrFetchFailed, s.bucket, s.key, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	doc := &Document{
		Data:      body,
		Name:      path.Base(s.key),
		FetchedAt: s.win.now(),
	}
	s.mu.Lock()
	s.win.store(doc)
	s.meta = s3Meta{
		contentLength: int64(len(body)),
		contentType:   aws.ToString(out.ContentType),
		etag:          strings.Trim(aws.ToString(out.ETag), `"`),
		lastModified:  out.LastModified,
	}
	s.mu.Unlock()

	s.log.WithFields(log.Fields{
		"bucket": s.bucket,
		"key":    s.key,
		"bytes":  len(body),
	}).Info("downloaded workbook")

	return doc, nil
}

func (s *S3Fetcher) freshDoc() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.win.fresh() {
		return s.win.doc
	}
	return nil
}

// Fresh reports whether the held document is within its window.
func (s *S3Fetcher) Fresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.win.fresh()
}

// Invalidate drops the held document.
func (s *S3Fetcher) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.win.clear()
}

// Info returns diagnostics about the held document.
func (s *S3Fetcher) Info() models.FileInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	fi := models.FileInfo{
		Source:   models.SourceRemote,
		Location: fmt.Sprintf("s3://%s/%s", s.bucket, s.key),
	}
	if s.win.doc == nil {
		return fi
	}
	fetchedAt := s.win.doc.FetchedAt
	size := s.meta.contentLength
	fi.Filename = s.win.doc.Name
	fi.FetchedAt = &fetchedAt
	fi.ContentLength = &size
	fi.ContentType = s.meta.contentType
	fi.ETag = s.meta.etag
	fi.ModifiedAt = s.meta.lastModified
	return fi
}

// retryWithBackoff retries operation with exponential backoff.
// Missing objects are not retried.
func (s *S3Fetcher) retryWithBackoff(ctx context.Context, operation func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrObjectNotFound) {
			return lastErr
		}

		if attempt < s.maxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}
