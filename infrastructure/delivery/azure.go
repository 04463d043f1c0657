package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/felixgeelhaar/geo-mcp/domain/imagery"
)

// AzureConfig configures the Azure Blob lister. With neither a key nor a
// connection string DefaultAzureCredential is used.
type AzureConfig struct {
	AccountName      string
	AccountKey       string
	ConnectionString string
}

// AzureLister lists delivered blobs in Azure containers.
type AzureLister struct {
	client *azblob.Client
}

var _ imagery.DeliveryLister = (*AzureLister)(nil)

// NewAzureLister creates an Azure Blob lister.
func NewAzureLister(cfg AzureConfig) (*AzureLister, error) {
	if cfg.AccountName == "" && cfg.ConnectionString == "" {
		return nil, errors.New("account name or connection string is required")
	}

	var (
		client *azblob.Client
		err    error
	)
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)

	switch {
	case cfg.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	case cfg.AccountKey != "":
		cred, credErr := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if credErr != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", credErr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	default:
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("failed to create default credential: %w", credErr)
		}
		client, err = azblob.NewClient(serviceURL, cred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create azure blob client: %w", err)
	}

	return &AzureLister{client: client}, nil
}

// Driver returns AZURE.
func (l *AzureLister) Driver() imagery.Driver {
	return imagery.DriverAzure
}

// List pages through the container until MaxKeys blobs are collected.
func (l *AzureLister) List(ctx context.Context, req imagery.ListRequest) ([]imagery.DeliveredObject, error) {
	limit := maxKeys(req.MaxKeys)
	maxResults := int32(min(limit, 5000)) // #nosec G115 -- bounded above

	opts := &container.ListBlobsFlatOptions{MaxResults: &maxResults}
	if req.Prefix != "" {
		opts.Prefix = &req.Prefix
	}

	objects := make([]imagery.DeliveredObject, 0)
	pager := l.client.ServiceClient().NewContainerClient(req.Bucket).NewListBlobsFlatPager(opts)
	for pager.More() && len(objects) < limit {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}
		for _, b := range resp.Segment.BlobItems {
			if len(objects) >= limit {
				break
			}
			o := imagery.DeliveredObject{}
			if b.Name != nil {
				o.Key = *b.Name
			}
			if p := b.Properties; p != nil {
				if p.ContentLength != nil {
					o.Size = *p.ContentLength
				}
				if p.LastModified != nil {
					o.LastModified = *p.LastModified
				}
				if p.ETag != nil {
					o.ETag = string(*p.ETag)
				}
			}
			objects = append(objects, o)
		}
	}
	return objects, nil
}
