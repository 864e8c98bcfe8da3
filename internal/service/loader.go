package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prismtools/prism/pkg/prism"
)

// Loader orchestrates the full load protocol: create a bucket, stage the
// files, complete the bucket. Each load uses a fresh bucket; buckets are
// never reused across loads.
type Loader struct {
	buckets  *Buckets
	stager   *Stager
	approver prism.Approver
	logger   prism.Logger
}

// NewLoader creates the load orchestrator.
// Panics if buckets, stager, approver or logger is nil.
func NewLoader(buckets *Buckets, stager *Stager, approver prism.Approver, logger prism.Logger) *Loader {
	if buckets == nil {
		panic("buckets cannot be nil")
	}
	if stager == nil {
		panic("stager cannot be nil")
	}
	if approver == nil {
		panic("approver cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	return &Loader{
		buckets:  buckets,
		stager:   stager,
		approver: approver,
		logger:   logger,
	}
}

// LoadInput describes one load: the bucket parameters plus the files to
// stage. A nil Files slice stages the canonical empty file, which makes
// a TruncateAndInsert load clear the table.
type LoadInput struct {
	Bucket CreateBucketInput
	Files  []string
}

// Load runs create, stage, complete. When files were requested but none
// could be staged, the bucket is left open and the partial result is
// returned with ErrNoFilesStaged so the caller can inspect or retry.
func (l *Loader) Load(ctx context.Context, input LoadInput) (*prism.LoadResult, error) {
	bucket, err := l.buckets.Create(ctx, input.Bucket)
	if err != nil {
		return nil, err
	}

	result := &prism.LoadResult{Bucket: bucket}

	result.Files, err = l.stager.UploadToBucket(ctx, bucket.ID, input.Files)
	if err != nil {
		if errors.Is(err, prism.ErrNoFilesStaged) {
			l.logger.Warn("bucket %s left incomplete: no files staged", bucket.ID)
		}
		return result, err
	}

	result.Complete, err = l.buckets.Complete(ctx, bucket.ID)
	if err != nil {
		return result, err
	}

	return result, nil
}

// Truncate clears the target table by completing a TruncateAndInsert
// bucket holding only the canonical empty file. The approver must
// confirm before anything is sent.
func (l *Loader) Truncate(ctx context.Context, target CreateBucketInput) (*prism.LoadResult, error) {
	if err := l.requestApproval(ctx, target); err != nil {
		return nil, err
	}

	target.Operation = prism.OpTruncateAndInsert
	return l.Load(ctx, LoadInput{Bucket: target, Files: nil})
}

func (l *Loader) requestApproval(ctx context.Context, target CreateBucketInput) error {
	resource := target.TargetName
	if resource == "" {
		resource = target.TargetID
	}
	if resource == "" && target.Schema != nil {
		resource = target.Schema.ID
	}

	approved, err := l.approver.RequestApproval(ctx, resource)
	if err != nil {
		return err
	}
	if !approved {
		return fmt.Errorf("truncate of %q: %w", resource, prism.ErrApprovalDenied)
	}
	return nil
}
