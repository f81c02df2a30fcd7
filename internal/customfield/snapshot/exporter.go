// Package snapshot writes point-in-time YAML copies of the field schema to a
// local directory or an S3 bucket.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/faciam-dev/guidecms/internal/customfield/registry"
)

// Dest receives snapshot files.
type Dest interface {
	Write(ctx context.Context, name string, data []byte) error
}

// LocalDir writes snapshots below Path.
type LocalDir struct{ Path string }

func (l LocalDir) Write(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(l.Path, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(l.Path, name), data, 0o644)
}

// Putter is the part of the S3 client used for uploads.
type Putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads snapshots as objects under Prefix.
type S3 struct {
	Bucket string
	Prefix string
	Client Putter
}

// NewS3 builds an S3 destination from the default AWS credential chain.
func NewS3(ctx context.Context, bucket, prefix string) (S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return S3{}, err
	}
	return S3{Bucket: bucket, Prefix: prefix, Client: s3.NewFromConfig(cfg)}, nil
}

func (s S3) Write(ctx context.Context, name string, data []byte) error {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(path.Join(s.Prefix, name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/yaml"),
	})
	return err
}

// ParseDest maps "s3://bucket/prefix" to an S3 destination and anything else
// to a local directory.
func ParseDest(ctx context.Context, dest string) (Dest, error) {
	if dest == "" {
		return nil, fmt.Errorf("destination is empty")
	}
	if rest, ok := strings.CutPrefix(dest, "s3://"); ok {
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return nil, fmt.Errorf("s3 destination %q has no bucket", dest)
		}
		return NewS3(ctx, bucket, prefix)
	}
	return LocalDir{Path: dest}, nil
}

// Name is the file name of a snapshot taken at t.
func Name(t time.Time) string {
	return fmt.Sprintf("schema_%s.yaml", t.UTC().Format("2006-01-02T15-04-05"))
}

// Take encodes s and writes it to dest. It returns the file name used.
func Take(ctx context.Context, s registry.Schema, dest Dest, now time.Time) (string, error) {
	data, err := registry.EncodeYAML(s)
	if err != nil {
		return "", fmt.Errorf("encode schema: %w", err)
	}
	name := Name(now)
	if err := dest.Write(ctx, name, data); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return name, nil
}
