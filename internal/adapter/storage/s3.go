package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	appconfig "github.com/aegisdb/aegis/internal/config"
	"github.com/aegisdb/aegis/internal/domain"
)

const (
	transferTimeout = 10 * time.Minute
	controlTimeout  = 30 * time.Second
)

// RequestError is a transport-level failure: the service answered with a
// non-success status. The response body is carried verbatim so callers can
// surface the service's own diagnostics.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("object store returned status %d: %s", e.StatusCode, e.Body)
}

// S3Storage talks to any S3-compatible service over plain signed HTTP. No
// vendor SDK: every request goes through the Sign function in this package.
type S3Storage struct {
	endpoint string
	region   string
	bucket   string
	creds    Credentials
	client   *http.Client

	now func() time.Time
}

// NewS3 creates an S3Storage. A configured endpoint selects path-style
// addressing against it; otherwise requests go virtual-hosted to
// <bucket>.s3.<region>.amazonaws.com.
func NewS3(cfg *appconfig.ObjectStoreConfig) *S3Storage {
	return &S3Storage{
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		region:   cfg.Region,
		bucket:   cfg.Bucket,
		creds:    Credentials{AccessKey: cfg.AccessKey, SecretKey: cfg.SecretKey},
		client:   &http.Client{},
		now:      time.Now,
	}
}

// Upload streams a local file to the given key. The payload is hashed before
// the request is built, because the hash is part of the signature.
func (s *S3Storage) Upload(ctx context.Context, key string, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	size, err := io.Copy(hasher, file)
	if err != nil {
		return fmt.Errorf("failed to hash payload: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind file: %w", err)
	}
	payloadHash := hex.EncodeToString(hasher.Sum(nil))

	ctx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()

	resp, err := s.do(ctx, http.MethodPut, key, nil, file, size, payloadHash)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

// Download fetches an object into destPath.
func (s *S3Storage) Download(ctx context.Context, key string, destPath string) error {
	ctx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()

	resp, err := s.do(ctx, http.MethodGet, key, nil, nil, 0, EmptyPayloadHash)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create dest file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, resp.Body); err != nil {
		return fmt.Errorf("failed to write %s: %w", destPath, err)
	}
	return nil
}

// Delete removes an object. 204 is a normal delete response.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, controlTimeout)
	defer cancel()

	resp, err := s.do(ctx, http.MethodDelete, key, nil, nil, 0, EmptyPayloadHash)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

type listBucketResult struct {
	XMLName  xml.Name `xml:"ListBucketResult"`
	Contents []struct {
		Key          string    `xml:"Key"`
		LastModified time.Time `xml:"LastModified"`
		Size         int64     `xml:"Size"`
	} `xml:"Contents"`
}

// ListObjects returns the objects under prefix in document order. Only the
// provider's default page is fetched; no continuation tokens.
func (s *S3Storage) ListObjects(ctx context.Context, prefix string) ([]domain.ObjectInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, controlTimeout)
	defer cancel()

	query := url.Values{}
	query.Set("list-type", "2")
	query.Set("prefix", prefix)

	resp, err := s.do(ctx, http.MethodGet, "", query, nil, 0, EmptyPayloadHash)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result listBucketResult
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}

	objects := make([]domain.ObjectInfo, 0, len(result.Contents))
	for _, obj := range result.Contents {
		objects = append(objects, domain.ObjectInfo{
			Key:          obj.Key,
			LastModified: obj.LastModified,
			Size:         obj.Size,
		})
	}
	return objects, nil
}

// do builds, signs and sends one request. key is the object key ("" for
// bucket-level operations).
func (s *S3Storage) do(ctx context.Context, method, key string, query url.Values, body io.Reader, contentLength int64, payloadHash string) (*http.Response, error) {
	host, path := s.addr(key)

	rawURL := "https://" + host + path
	if s.endpoint != "" {
		rawURL = s.endpoint + path
	}
	// The sent query must be byte-identical to the canonical query that was
	// signed, so it is rendered with the same strict RFC 3986 encoding.
	if len(query) > 0 {
		rawURL += "?" + canonicalQuery(query)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.ContentLength = contentLength
	}

	headers := Sign(method, path, query, map[string]string{"host": req.URL.Host}, payloadHash, s.creds, s.region, s.now())
	for k, v := range headers {
		if strings.EqualFold(k, "host") {
			continue
		}
		req.Header.Set(k, v)
	}

	return s.client.Do(req)
}

// addr resolves the request host and path for a key under the configured
// addressing style.
func (s *S3Storage) addr(key string) (host, path string) {
	if s.endpoint != "" {
		u, err := url.Parse(s.endpoint)
		if err != nil || u.Host == "" {
			host = s.endpoint
		} else {
			host = u.Host
		}
		return host, "/" + s.bucket + "/" + key
	}
	return fmt.Sprintf("%s.s3.%s.amazonaws.com", s.bucket, s.region), "/" + key
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &RequestError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
