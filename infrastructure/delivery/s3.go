package delivery

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/felixgeelhaar/geo-mcp/domain/imagery"
)

// S3Config configures the S3 lister.
type S3Config struct {
	Region          string // default us-east-1
	AccessKeyID     string // empty uses the default credential chain
	SecretAccessKey string
	SessionToken    string
	Endpoint        string // S3-compatible storage
}

// S3Lister lists delivered objects in S3 buckets.
type S3Lister struct {
	client *s3.Client
}

var _ imagery.DeliveryLister = (*S3Lister)(nil)

// NewS3Lister creates an S3 lister.
func NewS3Lister(ctx context.Context, cfg S3Config) (*S3Lister, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Lister{client: s3.NewFromConfig(awsCfg, s3Opts...)}, nil
}

// Driver returns S3.
func (l *S3Lister) Driver() imagery.Driver {
	return imagery.DriverS3
}

// List pages through ListObjectsV2 until MaxKeys objects are collected.
func (l *S3Lister) List(ctx context.Context, req imagery.ListRequest) ([]imagery.DeliveredObject, error) {
	limit := maxKeys(req.MaxKeys)
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(req.Bucket),
		MaxKeys: aws.Int32(int32(min(limit, 1000))), // #nosec G115 -- bounded above
	}
	if req.Prefix != "" {
		input.Prefix = aws.String(req.Prefix)
	}

	objects := make([]imagery.DeliveredObject, 0)
	paginator := s3.NewListObjectsV2Paginator(l.client, input)
	for paginator.HasMorePages() && len(objects) < limit {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if len(objects) >= limit {
				break
			}
			o := imagery.DeliveredObject{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
				ETag: strings.Trim(aws.ToString(obj.ETag), "\""),
			}
			if obj.LastModified != nil {
				o.LastModified = *obj.LastModified
			}
			objects = append(objects, o)
		}
	}
	return objects, nil
}
