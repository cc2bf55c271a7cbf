package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// Publisher copies a run's detail dump somewhere outside the local machine
type Publisher interface {
	Publish(ctx context.Context, runID string, data []byte) (string, error)
}

// GCSPublisher uploads detail dumps to a Cloud Storage bucket as <prefix>/<run-id>.json
type GCSPublisher struct {
	client     *storage.Client
	bucketName string
	prefix     string
}

// NewGCSPublisher creates a publisher using Application Default Credentials
func NewGCSPublisher(ctx context.Context, bucketName, prefix string) (*GCSPublisher, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("bucket name must be provided to publish to GCS")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSPublisher{client: client, bucketName: bucketName, prefix: prefix}, nil
}

// Publish writes data only if the object doesn't already exist; an existing object is not an error
func (g *GCSPublisher) Publish(ctx context.Context, runID string, data []byte) (string, error) {
	objectName := path.Join(g.prefix, runID+".json")
	uri := fmt.Sprintf("gs://%s/%s", g.bucketName, objectName)

	writer := g.client.Bucket(g.bucketName).Object(objectName).
		If(storage.Conditions{DoesNotExist: true}).
		NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			slog.Info("Run already published, skipping", "object", uri)
			return uri, nil
		}
		return "", fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return uri, nil
}

// Close closes the storage client
func (g *GCSPublisher) Close() error {
	return g.client.Close()
}
