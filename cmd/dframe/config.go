package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/dframe"
	"github.com/hupe1980/dframe/blobstore"
	minioblob "github.com/hupe1980/dframe/blobstore/minio"
	s3blob "github.com/hupe1980/dframe/blobstore/s3"
	"github.com/hupe1980/dframe/resource"
)

// wrap is the column width of flag help texts.
const wrap = 50

func wrapString(text string) string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > wrap {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// initConfig loads .env files and maps DFRAME_* variables onto flags.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("dframe")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func bindFlags(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return viper.BindPFlags(cmd.InheritedFlags())
}

func setupStoreFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("store", "local", wrapString("Where pages live (memory, local, s3, minio)"))
	flags.String("dir", "./dframe-data", wrapString("Root directory of the local store"))
	flags.String("bucket", "", wrapString("Bucket of the s3 or minio store"))
	flags.String("prefix", "", wrapString("Key prefix inside the bucket"))
	flags.String("endpoint", "", wrapString("Endpoint of the minio server, or a custom S3 endpoint"))
	flags.String("region", "", wrapString("Region of the bucket"))
	flags.String("access-key", "", wrapString("Access key; the default credential chain is used for s3 when empty"))
	flags.String("secret-key", "", wrapString("Secret key"))
	flags.Bool("secure", true, wrapString("Use TLS for the minio endpoint"))
}

func setupFrameFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("compression", "lz4", wrapString("Page codec (none, lz4, zstd)"))
	flags.String("alignment", "16", wrapString("Row alignment in bytes (4, 8, 16, 32, 64 or native)"))
	flags.String("io-mode", "async", wrapString("Disk I/O mode (sync, async)"))
	flags.Int("workers", 0, wrapString("Executor workers, 0 uses GOMAXPROCS"))
	flags.Int64("memory-limit", 0, wrapString("Limit for resident slice buffers in MB, 0 is unlimited"))
	flags.Int64("io-rate", 0, wrapString("Page I/O limit in MB per second, 0 is unlimited"))
	flags.Int64("background-writes", 4, wrapString("Pages written behind concurrently in async mode"))
	flags.String("log-level", "warn", wrapString("Log level (debug, info, warn, error)"))
	flags.String("log-format", "text", wrapString("Log format (text, json)"))
}

type storeConfig struct {
	Kind      string
	Dir       string
	Bucket    string
	Prefix    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Secure    bool
}

func getStoreConfig() storeConfig {
	return storeConfig{
		Kind:      viper.GetString("store"),
		Dir:       viper.GetString("dir"),
		Bucket:    viper.GetString("bucket"),
		Prefix:    viper.GetString("prefix"),
		Endpoint:  viper.GetString("endpoint"),
		Region:    viper.GetString("region"),
		AccessKey: viper.GetString("access-key"),
		SecretKey: viper.GetString("secret-key"),
		Secure:    viper.GetBool("secure"),
	}
}

// openStore returns the page store for c. The memory kind has no store.
func openStore(ctx context.Context, c storeConfig) (blobstore.Store, error) {
	switch c.Kind {
	case "memory":
		return nil, nil
	case "local":
		if c.Dir == "" {
			return nil, errors.New("local store needs --dir")
		}
		return blobstore.NewLocalStore(c.Dir), nil
	case "s3":
		if c.Bucket == "" {
			return nil, errors.New("s3 store needs --bucket")
		}
		client, err := newS3Client(ctx, c)
		if err != nil {
			return nil, err
		}
		return s3blob.NewStore(client, c.Bucket, c.Prefix), nil
	case "minio":
		if c.Bucket == "" || c.Endpoint == "" {
			return nil, errors.New("minio store needs --bucket and --endpoint")
		}
		client, err := minio.New(c.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
			Secure: c.Secure,
			Region: c.Region,
		})
		if err != nil {
			return nil, err
		}
		return minioblob.NewStore(client, c.Bucket, c.Prefix), nil
	default:
		return nil, fmt.Errorf("invalid store %s", c.Kind)
	}
}

func newS3Client(ctx context.Context, c storeConfig) (*awss3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if c.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(c.Region))
	}
	if c.AccessKey != "" {
		creds := aws.Credentials{AccessKeyID: c.AccessKey, SecretAccessKey: c.SecretKey, Source: "dframe flags"}
		loadOpts = append(loadOpts, config.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil })))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func parseAlignment(s string) (dframe.Alignment, error) {
	if s == "native" {
		return dframe.NativeAlignment(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid alignment %q", s)
	}
	a := dframe.Alignment(n)
	if !a.Valid() {
		return 0, fmt.Errorf("%w: %d", dframe.ErrInvalidAlignment, n)
	}
	return a, nil
}

func parseIOMode(s string) (dframe.IOMode, error) {
	switch s {
	case "sync":
		return dframe.IOSync, nil
	case "async":
		return dframe.IOAsync, nil
	default:
		return dframe.IOSync, fmt.Errorf("invalid io mode %s", s)
	}
}

func getLogger() (*dframe.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		return nil, err
	}
	switch viper.GetString("log-format") {
	case "text":
		return dframe.NewTextLogger(level), nil
	case "json":
		return dframe.NewJSONLogger(level), nil
	default:
		return nil, fmt.Errorf("invalid log format %s", viper.GetString("log-format"))
	}
}

// getFrameOptions builds frame options from the bound flags.
func getFrameOptions() ([]dframe.Option, error) {
	compression, err := dframe.ParseCompression(viper.GetString("compression"))
	if err != nil {
		return nil, err
	}
	alignment, err := parseAlignment(viper.GetString("alignment"))
	if err != nil {
		return nil, err
	}
	mode, err := parseIOMode(viper.GetString("io-mode"))
	if err != nil {
		return nil, err
	}
	logger, err := getLogger()
	if err != nil {
		return nil, err
	}

	resources := resource.NewController(resource.Config{
		MemoryLimitBytes:    viper.GetInt64("memory-limit") << 20,
		IOBytesPerSec:       viper.GetInt64("io-rate") << 20,
		MaxBackgroundWrites: viper.GetInt64("background-writes"),
	})

	return []dframe.Option{
		dframe.WithCompression(compression),
		dframe.WithAlignment(alignment),
		dframe.WithIOMode(mode),
		dframe.WithLogger(logger),
		dframe.WithResourceController(resources),
	}, nil
}

// newFrame creates an empty frame on the configured store.
func newFrame(ctx context.Context, columns, rows, capacity int, opts ...dframe.Option) (*dframe.DataFrame, error) {
	c := getStoreConfig()
	switch c.Kind {
	case "memory":
		return dframe.NewMemoryFrame(columns, capacity, opts...)
	case "local":
		return dframe.NewDiskFrame(c.Dir, columns, rows, capacity, opts...)
	}
	store, err := openStore(ctx, c)
	if err != nil {
		return nil, err
	}
	return dframe.NewDiskFrame("", columns, rows, capacity, append(opts, dframe.WithStore(store))...)
}
