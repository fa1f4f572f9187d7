package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/dittofm/internal/logger"
	"github.com/marmos91/dittofm/pkg/metrics"
	"github.com/marmos91/dittofm/pkg/store"
	storeBadger "github.com/marmos91/dittofm/pkg/store/badger"
	storeFs "github.com/marmos91/dittofm/pkg/store/fs"
	storeMemory "github.com/marmos91/dittofm/pkg/store/memory"
	"github.com/marmos91/dittofm/pkg/store/metered"
	storeS3 "github.com/marmos91/dittofm/pkg/store/s3"
)

// CreateStore creates the storage backend described by the configuration.
//
// This factory function uses the Type field to determine which store
// implementation to create, then decodes the type-specific configuration
// from the corresponding map and passes it to the store's constructor.
//
// Supported types:
//   - "filesystem": pkg/store/fs (local disk, the default)
//   - "memory": pkg/store/memory (volatile, for tests and demos)
//   - "s3": pkg/store/s3 (Amazon S3 or compatible storage)
//   - "badger": pkg/store/badger (embedded BadgerDB)
//
// When storeMetrics is non-nil the store is wrapped so every operation is
// observed.
func CreateStore(ctx context.Context, cfg *StoreConfig, storeMetrics metrics.StoreMetrics) (store.Store, error) {
	var (
		st  store.Store
		err error
	)

	switch cfg.Type {
	case "filesystem":
		st, err = createFilesystemStore(ctx, cfg.Filesystem)
	case "memory":
		st, err = createMemoryStore(cfg.Memory)
	case "s3":
		st, err = createS3Store(ctx, cfg.S3)
	case "badger":
		st, err = createBadgerStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if storeMetrics != nil {
		st = metered.New(st, storeMetrics)
	}
	return st, nil
}

// createFilesystemStore creates a store rooted at a local directory.
func createFilesystemStore(ctx context.Context, options map[string]any) (store.Store, error) {
	type FilesystemStoreConfig struct {
		Path string `mapstructure:"path"`
	}

	var storeCfg FilesystemStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem store: path is required")
	}

	st, err := storeFs.NewFSStore(ctx, storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem store: %w", err)
	}

	logger.Info("Filesystem store initialized: path=%s", st.BasePath())
	return st, nil
}

// createMemoryStore creates an in-memory store.
func createMemoryStore(options map[string]any) (store.Store, error) {
	type MemoryStoreConfig struct {
		MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
	}

	var storeCfg MemoryStoreConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &storeCfg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode memory store config: %w", err)
	}

	if storeCfg.MaxSizeBytes < 0 {
		return nil, fmt.Errorf("memory store: max_size_bytes must be >= 0")
	}

	logger.Info("Memory store initialized: max_size_bytes=%d", storeCfg.MaxSizeBytes)
	return storeMemory.NewMemoryStore(storeMemory.Config{MaxSizeBytes: storeCfg.MaxSizeBytes}), nil
}

// S3StoreConfig holds the options of the "s3" store type.
type S3StoreConfig struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// decodeS3Options decodes and checks the s3 option map.
func decodeS3Options(options map[string]any) (S3StoreConfig, error) {
	var storeCfg S3StoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return storeCfg, fmt.Errorf("failed to decode S3 store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return storeCfg, fmt.Errorf("S3 store: bucket is required")
	}
	if storeCfg.Region == "" {
		return storeCfg, fmt.Errorf("S3 store: region is required")
	}
	if storeCfg.MaxRetries == 0 {
		storeCfg.MaxRetries = 10
	}
	return storeCfg, nil
}

// createS3Store creates an S3-backed store.
func createS3Store(ctx context.Context, options map[string]any) (store.Store, error) {
	storeCfg, err := decodeS3Options(options)
	if err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(storeCfg.Region),
	}

	// Set credentials if provided, otherwise use default credential chain
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Retry transient S3 failures (502, 503, timeouts) more than the SDK default
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = storeCfg.MaxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Custom endpoints (MinIO, Localstack) need path-style addressing
		if storeCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeCfg.Endpoint)
			o.UsePathStyle = true
		}
		if storeCfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	// ========================================================================
	// Step 3: Create S3 Store
	// ========================================================================

	st, err := storeS3.NewS3Store(ctx, storeS3.Config{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 store: %w", err)
	}

	logger.Info("S3 store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return st, nil
}

// createBadgerStore creates a BadgerDB-backed store.
func createBadgerStore(ctx context.Context, options map[string]any) (store.Store, error) {
	var badgerCfg storeBadger.Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &badgerCfg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("invalid badger config: %w", err)
	}

	st, err := storeBadger.NewBadgerStore(ctx, badgerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Info("Badger store initialized: db_path=%s, in_memory=%v", badgerCfg.DBPath, badgerCfg.InMemory)
	return st, nil
}
