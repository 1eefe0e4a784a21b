// Package storage keeps item images and thumbnails in an S3-compatible
// bucket and hands out presigned download URLs for them.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	itemdomain "github.com/ghuser/lostfound/services/item/domain"
)

// ErrInvalidPath is returned for empty paths or paths escaping the prefix.
var ErrInvalidPath = errors.New("storage: invalid path")

// API is the subset of the S3 client the store needs.
// *s3.Client satisfies it; tests substitute a mock.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Presigner signs GET requests. *s3.PresignClient satisfies it.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Store implements repositories.BlobStore on top of S3.
type Store struct {
	client    API
	presigner Presigner
	bucket    string
	prefix    string
	cfg       Config
}

// New creates a Store. client and presigner must be non-nil and
// cfg.Bucket must be set.
func New(client API, presigner Presigner, cfg Config) (*Store, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	if presigner == nil {
		return nil, errors.New("storage: presigner is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage: bucket is required")
	}
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = DefaultURLTTL
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	return &Store{
		client:    client,
		presigner: presigner,
		bucket:    cfg.Bucket,
		prefix:    prefix,
		cfg:       cfg,
	}, nil
}

// NewFromClient wires a Store to a real S3 client, presigning through it.
func NewFromClient(client *s3.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	return New(client, s3.NewPresignClient(client), cfg)
}

// Upload writes data to p with the given content type, replacing any
// existing object.
func (s *Store) Upload(ctx context.Context, p string, data []byte, contentType string) error {
	key, err := s.objectKey(p)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("storage: put %s: %w", p, err)
	}
	return nil
}

// DownloadURL returns a presigned GET URL for p.
// Returns ErrBlobNotFound when the object does not exist.
func (s *Store) DownloadURL(ctx context.Context, p string) (*url.URL, error) {
	key, err := s.objectKey(p)
	if err != nil {
		return nil, err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, itemdomain.ErrBlobNotFound
		}
		return nil, fmt.Errorf("storage: head %s: %w", p, err)
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.cfg.URLTTL))
	if err != nil {
		return nil, fmt.Errorf("storage: presign %s: %w", p, err)
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("storage: parse presigned url: %w", err)
	}
	return u, nil
}

// ListChildren returns the object paths directly under prefix, relative to
// the store prefix. Nested "directories" are not descended into.
func (s *Store) ListChildren(ctx context.Context, prefix string) ([]string, error) {
	full, err := s.listPrefix(prefix)
	if err != nil {
		return nil, err
	}

	var paths []string
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(full),
			Delimiter:         aws.String("/"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("storage: list %s: %w", prefix, err)
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if key == full {
				continue
			}
			paths = append(paths, strings.TrimPrefix(key, s.prefix))
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}

	return paths, nil
}

// Ping checks that the bucket is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("storage: head bucket: %w", err)
	}
	return nil
}

func (s *Store) objectKey(p string) (string, error) {
	if p == "" {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		return "", ErrInvalidPath
	}
	return s.prefix + cleaned, nil
}

// listPrefix normalizes prefix to a "directory" key ending in "/".
func (s *Store) listPrefix(prefix string) (string, error) {
	if prefix == "" {
		return s.prefix, nil
	}
	cleaned := path.Clean(prefix)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	if cleaned == "." {
		return s.prefix, nil
	}
	cleaned = strings.Trim(cleaned, "/")
	return s.prefix + cleaned + "/", nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey" || code == "404"
	}
	return false
}
