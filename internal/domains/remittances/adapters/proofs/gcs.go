package proofs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
)

// DefaultExpiry bounds how long a resolved proof link stays valid.
const DefaultExpiry = 15 * time.Minute

var (
	ErrUnresolvableReference = errors.New("proof reference cannot be resolved")

	_ ports.ProofResolver = (*GCSResolver)(nil)
)

type signFunc func(bucket, object string, opts *storage.SignedURLOptions) (string, error)

// GCSResolver turns gs://bucket/object references into V4 signed download URLs.
// http(s) references are returned unchanged; bare object paths resolve against the default bucket.
type GCSResolver struct {
	sign          signFunc
	accessID      string
	privateKey    []byte
	defaultBucket string
	expiry        time.Duration
	now           func() time.Time
}

// ResolverOption customises the resolver.
type ResolverOption func(*GCSResolver)

func WithDefaultBucket(bucket string) ResolverOption {
	return func(r *GCSResolver) { r.defaultBucket = strings.TrimSpace(bucket) }
}

func WithExpiry(d time.Duration) ResolverOption {
	return func(r *GCSResolver) {
		if d > 0 {
			r.expiry = d
		}
	}
}

// NewGCSResolver signs through client, which picks up the ambient service account credentials.
func NewGCSResolver(client *storage.Client, opts ...ResolverOption) *GCSResolver {
	sign := func(bucket, object string, o *storage.SignedURLOptions) (string, error) {
		return client.Bucket(bucket).SignedURL(object, o)
	}
	return newResolver(sign, opts...)
}

// NewGCSResolverFromServiceAccount signs locally with the private key of a service account JSON key file.
func NewGCSResolverFromServiceAccount(path string, opts ...ResolverOption) (*GCSResolver, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	var key struct {
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
	}
	if err := json.Unmarshal(contents, &key); err != nil {
		return nil, fmt.Errorf("decode service account json: %w", err)
	}
	if strings.TrimSpace(key.ClientEmail) == "" || strings.TrimSpace(key.PrivateKey) == "" {
		return nil, errors.New("service account json must carry client_email and private_key")
	}
	r := newResolver(storage.SignedURL, opts...)
	r.accessID = strings.TrimSpace(key.ClientEmail)
	r.privateKey = []byte(key.PrivateKey)
	return r, nil
}

func newResolver(sign signFunc, opts ...ResolverOption) *GCSResolver {
	r := &GCSResolver{sign: sign, expiry: DefaultExpiry, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Resolve returns a retrievable URL for ref.
func (r *GCSResolver) Resolve(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrUnresolvableReference
	}
	if strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://") {
		return ref, nil
	}
	bucket, object, err := r.locate(ref)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	signed, err := r.sign(bucket, object, &storage.SignedURLOptions{
		GoogleAccessID: r.accessID,
		PrivateKey:     r.privateKey,
		Method:         http.MethodGet,
		Expires:        r.now().Add(r.expiry),
		Scheme:         storage.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("sign proof url: %w", err)
	}
	return signed, nil
}

func (r *GCSResolver) locate(ref string) (string, string, error) {
	if rest, ok := strings.CutPrefix(ref, "gs://"); ok {
		bucket, object, found := strings.Cut(rest, "/")
		if !found || bucket == "" || object == "" {
			return "", "", fmt.Errorf("%w: %q", ErrUnresolvableReference, ref)
		}
		return bucket, object, nil
	}
	if strings.Contains(ref, "://") || r.defaultBucket == "" {
		return "", "", fmt.Errorf("%w: %q", ErrUnresolvableReference, ref)
	}
	return r.defaultBucket, strings.TrimPrefix(ref, "/"), nil
}
