package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue/queueerror"
)

// QueueService hands import jobs to the queue-triggered worker.
type QueueService struct {
	serviceClient *azqueue.ServiceClient

	// queues already ensured by this process.
	queues sync.Map
}

// NewQueueService creates a QueueService for the account at queueURL.
func NewQueueService(queueURL string) (*QueueService, error) {
	if queueURL == "" {
		return nil, fmt.Errorf("queue service url is required")
	}

	var client *azqueue.ServiceClient
	if isLocal(queueURL) {
		slog.Info("using Azurite credentials for queue service")
		name, key := getAzuriteCredentials()
		cred, err := azqueue.NewSharedKeyCredential(name, key)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		client, err = azqueue.NewServiceClientWithSharedKeyCredential(queueURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create queue service client with shared key: %w", err)
		}
	} else {
		cred, err := newDefaultAzureCredential()
		if err != nil {
			return nil, fmt.Errorf("failed to create default azure credential: %w", err)
		}
		client, err = azqueue.NewServiceClient(queueURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create queue service client: %w", err)
		}
	}

	slog.Info("queue service initialized", "queue_url", queueURL)
	return &QueueService{serviceClient: client}, nil
}

// encodeMessage renders message as base64 JSON, the encoding the Functions
// queue trigger expects by default.
func encodeMessage(message any) (string, error) {
	raw, err := json.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// EnqueueMessage adds message to queueName, creating the queue on first use.
func (s *QueueService) EnqueueMessage(ctx context.Context, queueName string, message any) error {
	encoded, err := encodeMessage(message)
	if err != nil {
		return err
	}

	q := s.serviceClient.NewQueueClient(queueName)
	if _, ok := s.queues.Load(queueName); !ok {
		if _, err := q.Create(ctx, nil); err != nil && !queueerror.HasCode(err, queueerror.QueueAlreadyExists) {
			return fmt.Errorf("failed to create queue %s: %w", queueName, err)
		}
		s.queues.Store(queueName, struct{}{})
	}

	if _, err := q.EnqueueMessage(ctx, encoded, nil); err != nil {
		return fmt.Errorf("failed to enqueue message to %s: %w", queueName, err)
	}
	slog.Debug("enqueued message", "queue", queueName)
	return nil
}
