package service

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/prismtools/prism/pkg/prism"
)

// Stager uploads delimited files into buckets and file containers. The
// endpoints only accept gzip content, so plain .csv files are compressed
// in memory on the way up and .csv.gz files are streamed as-is.
type Stager struct {
	http      prism.HTTPClient
	endpoints prism.Endpoints
	logger    prism.Logger
}

// NewStager creates the file staging service.
// Panics if httpClient or logger is nil.
func NewStager(httpClient prism.HTTPClient, endpoints prism.Endpoints, logger prism.Logger) *Stager {
	if httpClient == nil {
		panic("httpClient cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	return &Stager{
		http:      httpClient,
		endpoints: endpoints,
		logger:    logger,
	}
}

// stagedFile is one upload-ready file: its wire name and gzip content.
type stagedFile struct {
	name    string
	content []byte
}

// UploadToBucket stages files into the bucket. A nil files slice uploads
// the canonical empty file, which is how a truncate with no data is
// expressed; that form never fails. A non-nil slice that ends with zero
// files accepted returns ErrNoFilesStaged along with the empty page.
//
// Files that cannot be staged (missing, unsupported extension, rejected
// by the endpoint) are warned about and skipped; one bad file does not
// sink the rest.
func (s *Stager) UploadToBucket(ctx context.Context, bucketID string, files []string) (prism.Page[prism.UploadReceipt], error) {
	target := s.endpoints.Prism + "/buckets/" + url.PathEscape(bucketID) + "/files"
	return s.upload(ctx, target, files)
}

// UploadToContainer stages files into an existing file container.
// Semantics match UploadToBucket.
func (s *Stager) UploadToContainer(ctx context.Context, containerID string, files []string) (prism.Page[prism.UploadReceipt], error) {
	target := s.endpoints.Prism + "/fileContainers/" + url.PathEscape(containerID) + "/files"
	return s.upload(ctx, target, files)
}

func (s *Stager) upload(ctx context.Context, target string, files []string) (prism.Page[prism.UploadReceipt], error) {
	page := prism.Page[prism.UploadReceipt]{Data: []prism.UploadReceipt{}}

	staged, err := s.resolve(files)
	if err != nil {
		return page, err
	}

	for _, f := range staged {
		resp, err := s.http.PostFile(ctx, target, f.name, bytes.NewReader(f.content))
		if err != nil {
			s.logger.Warn("skipping %s: %v", f.name, err)
			continue
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			s.logger.Warn("skipping %s: %v", f.name, resp.StatusError())
			continue
		}

		var receipt prism.UploadReceipt
		if err := resp.Decode(&receipt); err != nil {
			s.logger.Warn("skipping %s: %v", f.name, err)
			continue
		}
		if receipt.Name == "" {
			receipt.Name = f.name
		}
		page.Data = append(page.Data, receipt)
		page.Total = len(page.Data)
		s.logger.Verbose("uploaded %s (%d bytes compressed)", f.name, len(f.content))
	}

	if files != nil && len(page.Data) == 0 {
		return page, fmt.Errorf("%d file(s) requested: %w", len(files), prism.ErrNoFilesStaged)
	}
	return page, nil
}

// resolve turns the requested paths into upload-ready files. A nil slice
// yields the single canonical empty file.
func (s *Stager) resolve(files []string) ([]stagedFile, error) {
	if files == nil {
		empty, err := gzipBytes(nil)
		if err != nil {
			return nil, err
		}
		return []stagedFile{{name: prism.EmptyUploadName, content: empty}}, nil
	}

	staged := make([]stagedFile, 0, len(files))
	for _, path := range files {
		base := filepath.Base(path)
		lower := strings.ToLower(base)

		switch {
		case strings.HasSuffix(lower, ".csv.gz"):
			content, err := os.ReadFile(path)
			if err != nil {
				s.logger.Warn("skipping %s: %v", path, err)
				continue
			}
			staged = append(staged, stagedFile{name: base, content: content})

		case strings.HasSuffix(lower, ".csv"):
			f, err := os.Open(path)
			if err != nil {
				s.logger.Warn("skipping %s: %v", path, err)
				continue
			}
			content, err := gzipReader(f)
			f.Close()
			if err != nil {
				s.logger.Warn("skipping %s: %v", path, err)
				continue
			}
			staged = append(staged, stagedFile{name: base + prism.CompressedSuffix, content: content})

		default:
			s.logger.Warn("skipping %s: only .csv and .csv.gz files can be staged", path)
		}
	}

	return staged, nil
}

func gzipReader(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := io.Copy(zw, r); err != nil {
		zw.Close()
		return nil, fmt.Errorf("compressing upload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing upload: %w", err)
	}
	return buf.Bytes(), nil
}

func gzipBytes(data []byte) ([]byte, error) {
	return gzipReader(bytes.NewReader(data))
}
