// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package s3 stores cache slots as objects in an S3 bucket, so a cache can be
// shared by every machine that points at the same bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	awsx "github.com/staranto/holidayctl/internal/aws"
)

var ErrNoBucket = errors.New("s3 cache store needs a bucket")

// Config is the cache.s3 block of the config file.
type Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Profile  string
	Endpoint string
}

// API is the subset of the S3 client the store uses.
type API interface {
	GetObject(ctx context.Context, in *s3v2.GetObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3v2.PutObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3v2.DeleteObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.DeleteObjectOutput, error)
}

// Store keeps one object per slot at {prefix}/{slot}.json.
type Store struct {
	client API
	bucket string
	prefix string
}

// New builds an S3 client from the shell's AWS setup plus cfg overrides.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}

	var opts []awsx.Option
	if cfg.Profile != "" {
		opts = append(opts, awsx.WithProfile(cfg.Profile))
	}
	if cfg.Region != "" {
		opts = append(opts, awsx.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsx.WithEndpoint(cfg.Endpoint))
	}

	client, err := awsx.NewS3Client(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client API, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *Store) key(slot string) string {
	return path.Join(s.prefix, slot+".json")
}

func (s *Store) GetItem(ctx context.Context, slot string) ([]byte, bool, error) {
	out, err := s.client.GetObject(ctx, &s3v2.GetObjectInput{
		Bucket: awsv2.String(s.bucket),
		Key:    awsv2.String(s.key(slot)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get S3 object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read S3 object body: %w", err)
	}
	log.Debugf("s3 get s3://%s/%s (%d bytes)", s.bucket, s.key(slot), len(data))
	return data, true, nil
}

func (s *Store) SetItem(ctx context.Context, slot string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3v2.PutObjectInput{
		Bucket: awsv2.String(s.bucket),
		Key:    awsv2.String(s.key(slot)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to put S3 object: %w", err)
	}
	return nil
}

func (s *Store) RemoveItem(ctx context.Context, slot string) error {
	_, err := s.client.DeleteObject(ctx, &s3v2.DeleteObjectInput{
		Bucket: awsv2.String(s.bucket),
		Key:    awsv2.String(s.key(slot)),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete S3 object: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) String() string { return "s3://" + path.Join(s.bucket, s.prefix) }

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
