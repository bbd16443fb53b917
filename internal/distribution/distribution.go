package distribution

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"

	"clipmato/internal/config"
	"clipmato/internal/fileutil"
	"clipmato/internal/logging"
	"clipmato/internal/services"
	"clipmato/internal/stage"
)

// Result is the distribution outcome stored on a job record.
type Result struct {
	Mode        string `json:"mode"`
	Path        string `json:"path,omitempty"`
	Bucket      string `json:"bucket,omitempty"`
	Key         string `json:"key,omitempty"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	PublishedAt string `json:"published_at"`
}

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Distributor implements stage.Distributor.
type Distributor struct {
	mode       string
	publishDir string
	s3cfg      config.S3
	objects    ObjectPutter
	now        func() time.Time
	logger     *slog.Logger
}

// Option customizes a Distributor.
type Option func(*Distributor)

// WithObjectPutter replaces the S3 client.
func WithObjectPutter(putter ObjectPutter) Option {
	return func(d *Distributor) {
		d.objects = putter
	}
}

// WithClock overrides the publish timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Distributor) {
		if now != nil {
			d.now = now
		}
	}
}

// New builds a distributor for cfg.Distribution. In s3 mode an S3 client is
// created unless one is supplied.
func New(ctx context.Context, cfg config.Distribution, logger *slog.Logger, opts ...Option) (*Distributor, error) {
	d := &Distributor{
		mode:       cfg.Mode,
		publishDir: cfg.PublishDir,
		s3cfg:      cfg.S3,
		now:        time.Now,
		logger:     logging.NewComponentLogger(logger, "distribution"),
	}
	for _, opt := range opts {
		opt(d)
	}
	switch d.mode {
	case config.DistributionNone, config.DistributionLocal:
	case config.DistributionS3:
		if d.objects == nil {
			client, err := newS3Client(ctx, cfg.S3)
			if err != nil {
				return nil, err
			}
			d.objects = client
		}
	default:
		return nil, services.Wrap(services.ErrConfiguration, stage.Distribution, "", fmt.Sprintf("unknown distribution mode %q", d.mode), nil)
	}
	return d, nil
}

func newS3Client(ctx context.Context, cfg config.S3) (*s3.Client, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, services.Wrap(services.ErrConfiguration, stage.Distribution, "s3", "bucket required", nil)
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stage.Distribution, "s3", "load aws config", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Mode returns the configured distribution mode.
func (d *Distributor) Mode() string {
	return d.mode
}

// Distribute implements stage.Distributor.
func (d *Distributor) Distribute(ctx context.Context, file string) (json.RawMessage, error) {
	var (
		result Result
		err    error
	)
	switch d.mode {
	case config.DistributionLocal:
		result, err = d.publishLocal(file)
	case config.DistributionS3:
		result, err = d.publishS3(ctx, file)
	default:
		result = Result{Mode: config.DistributionNone, Path: file}
	}
	if err != nil {
		return nil, err
	}
	result.PublishedAt = d.now().UTC().Format(time.RFC3339)
	logging.WithContext(ctx, d.logger).Info("episode distributed",
		logging.String(logging.FieldEventType, "episode_distributed"),
		logging.String("mode", result.Mode),
		logging.String("url", result.URL),
	)
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode distribution result: %w", err)
	}
	return encoded, nil
}

func (d *Distributor) publishLocal(file string) (Result, error) {
	if err := os.MkdirAll(d.publishDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stage.Distribution, "publish", "create publish directory", err)
	}
	dst := filepath.Join(d.publishDir, filepath.Base(file))
	if err := fileutil.CopyFileVerified(file, dst); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stage.Distribution, "publish", "copy episode", err)
	}
	abs, err := filepath.Abs(dst)
	if err != nil {
		abs = dst
	}
	return Result{
		Mode: config.DistributionLocal,
		Path: dst,
		URL:  (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(),
	}, nil
}

func (d *Distributor) publishS3(ctx context.Context, file string) (Result, error) {
	contentType := "application/octet-stream"
	if mtype, err := mimetype.DetectFile(file); err == nil {
		contentType = mtype.String()
	}
	body, err := os.Open(file)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stage.Distribution, "s3 upload", "open episode", err)
	}
	defer body.Close()

	key := ObjectKey(d.s3cfg.Prefix, filepath.Base(file))
	_, err = d.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.s3cfg.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stage.Distribution, "s3 upload", "", err)
	}
	return Result{
		Mode:        config.DistributionS3,
		Bucket:      d.s3cfg.Bucket,
		Key:         key,
		URL:         PublicURL(d.s3cfg, key),
		ContentType: contentType,
	}, nil
}

// ObjectKey joins prefix and name into an object key.
func ObjectKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// PublicURL returns where an uploaded key can be fetched.
func PublicURL(cfg config.S3, key string) string {
	if base := strings.TrimRight(cfg.PublicBaseURL, "/"); base != "" {
		return base + "/" + key
	}
	if endpoint := strings.TrimRight(cfg.Endpoint, "/"); endpoint != "" {
		return endpoint + "/" + cfg.Bucket + "/" + key
	}
	return fmt.Sprintf("s3://%s/%s", cfg.Bucket, key)
}
