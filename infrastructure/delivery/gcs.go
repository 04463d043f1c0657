package delivery

import (
	"context"
	"errors"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/felixgeelhaar/geo-mcp/domain/imagery"
)

// GCSConfig configures the Google Cloud Storage lister. Without credentials
// Application Default Credentials are used.
type GCSConfig struct {
	CredentialsFile string
	CredentialsJSON []byte
}

// GCSLister lists delivered objects in GCS buckets.
type GCSLister struct {
	client *gcs.Client
}

var _ imagery.DeliveryLister = (*GCSLister)(nil)

// NewGCSLister creates a GCS lister.
func NewGCSLister(ctx context.Context, cfg GCSConfig) (*GCSLister, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case len(cfg.CredentialsJSON) > 0:
		opts = append(opts, option.WithCredentialsJSON(cfg.CredentialsJSON))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSLister{client: client}, nil
}

// Driver returns GS.
func (l *GCSLister) Driver() imagery.Driver {
	return imagery.DriverGCS
}

// Close releases the client.
func (l *GCSLister) Close() error {
	return l.client.Close()
}

// List iterates the bucket until MaxKeys objects are collected.
func (l *GCSLister) List(ctx context.Context, req imagery.ListRequest) ([]imagery.DeliveredObject, error) {
	limit := maxKeys(req.MaxKeys)
	it := l.client.Bucket(req.Bucket).Objects(ctx, &gcs.Query{Prefix: req.Prefix})

	objects := make([]imagery.DeliveredObject, 0)
	for len(objects) < limit {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		objects = append(objects, imagery.DeliveredObject{
			Key:          attrs.Name,
			Size:         attrs.Size,
			LastModified: attrs.Updated,
			ETag:         attrs.Etag,
		})
	}
	return objects, nil
}
