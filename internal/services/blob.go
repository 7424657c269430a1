package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// maxImportBytes bounds how much of a staged import file is read back.
const maxImportBytes = 10 << 20

// BlobService stages uploaded import files in Azure Blob Storage.
type BlobService struct {
	client *azblob.Client

	// containers already ensured by this process.
	containers sync.Map
}

// NewBlobService creates a BlobService for the account at blobURL.
func NewBlobService(blobURL string) (*BlobService, error) {
	if blobURL == "" {
		return nil, fmt.Errorf("blob service url is required")
	}

	var client *azblob.Client
	if isLocal(blobURL) {
		slog.Info("using Azurite credentials for blob service")
		name, key := getAzuriteCredentials()
		cred, err := azblob.NewSharedKeyCredential(name, key)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(blobURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob client with shared key: %w", err)
		}
	} else {
		cred, err := newDefaultAzureCredential()
		if err != nil {
			return nil, fmt.Errorf("failed to create default azure credential: %w", err)
		}
		client, err = azblob.NewClient(blobURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob client: %w", err)
		}
	}

	slog.Info("blob service initialized", "blob_url", blobURL)
	return &BlobService{client: client}, nil
}

func (s *BlobService) ensureContainer(ctx context.Context, container string) error {
	if _, ok := s.containers.Load(container); ok {
		return nil
	}
	_, err := s.client.CreateContainer(ctx, container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("failed to create container %s: %w", container, err)
	}
	s.containers.Store(container, struct{}{})
	return nil
}

// UploadText stores text as blobName, creating the container on first use.
func (s *BlobService) UploadText(ctx context.Context, container, blobName, text string) error {
	if err := s.ensureContainer(ctx, container); err != nil {
		return err
	}
	contentType := "text/csv"
	_, err := s.client.UploadBuffer(ctx, container, blobName, []byte(text), &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob %s/%s: %w", container, blobName, err)
	}
	slog.Debug("uploaded import file", "container", container, "blob_name", blobName, "size_bytes", len(text))
	return nil
}

// DownloadText reads a staged file back. Files larger than the upload limit
// are rejected rather than truncated.
func (s *BlobService) DownloadText(ctx context.Context, container, blobName string) (string, error) {
	resp, err := s.client.DownloadStream(ctx, container, blobName, nil)
	if err != nil {
		return "", fmt.Errorf("failed to download blob %s/%s: %w", container, blobName, err)
	}
	defer resp.Body.Close()

	return readLimited(resp.Body, maxImportBytes)
}

func readLimited(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("failed to read blob content: %w", err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("blob exceeds %d bytes", limit)
	}
	return string(data), nil
}
