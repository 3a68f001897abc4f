package secrets

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
)

// EnvStore reads deployment-injected secrets from the process environment.
type EnvStore struct {
	prefix string
	lookup func(string) (string, bool)
}

// NewEnvStore creates an EnvStore. Names are looked up as prefix+name.
func NewEnvStore(prefix string) *EnvStore {
	return &EnvStore{prefix: prefix, lookup: os.LookupEnv}
}

func (s *EnvStore) Name() string { return "env" }

func (s *EnvStore) Get(_ context.Context, name string) (string, error) {
	v, ok := s.lookup(s.prefix + name)
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// mapStore lazily loads a whole key-value document once and serves lookups from it.
type mapStore struct {
	name string
	read func(ctx context.Context) (map[string]string, error)

	once   sync.Once
	values map[string]string
	err    error
}

func (s *mapStore) Name() string { return s.name }

func (s *mapStore) Get(ctx context.Context, name string) (string, error) {
	s.once.Do(func() {
		s.values, s.err = s.read(ctx)
	})
	if s.err != nil {
		return "", s.err
	}
	v, ok := s.values[name]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// NewFileStore reads secrets from a local dotenv-formatted file.
// A missing file is a store failure, not a missing key.
func NewFileStore(path string) Store {
	return &mapStore{
		name: "file:" + path,
		read: func(context.Context) (map[string]string, error) {
			values, err := godotenv.Read(path)
			if err != nil {
				return nil, fmt.Errorf("reading secrets file: %w", err)
			}
			return values, nil
		},
	}
}

// ObjectGetter is the subset of the S3 client the store needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3StoreWithClient reads secrets from one dotenv-formatted S3 object.
func NewS3StoreWithClient(client ObjectGetter, bucket, key string) Store {
	return &mapStore{
		name: fmt.Sprintf("s3://%s/%s", bucket, key),
		read: func(ctx context.Context) (map[string]string, error) {
			out, err := client.GetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				return nil, fmt.Errorf("fetching secrets object: %w", err)
			}
			defer out.Body.Close()

			body, err := io.ReadAll(out.Body)
			if err != nil {
				return nil, fmt.Errorf("reading secrets object: %w", err)
			}
			values, err := godotenv.Unmarshal(strings.TrimSpace(string(body)))
			if err != nil {
				return nil, fmt.Errorf("parsing secrets object: %w", err)
			}
			return values, nil
		},
	}
}

// NewS3Store creates an S3-backed store using the default AWS credential chain.
func NewS3Store(ctx context.Context, bucket, key string) (Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewS3StoreWithClient(s3.NewFromConfig(cfg), bucket, key), nil
}
