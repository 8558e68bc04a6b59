package extraction

import (
	"context"
	"fmt"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/invoicepilot/backend/internal/entity"
)

// DocAIClient calls a Document AI invoice processor and decodes its entities.
// Constructed and injected explicitly; there is no package-level client.
type DocAIClient struct {
	client        *documentai.DocumentProcessorClient
	processorName string
}

// NewDocAIClient dials the regional Document AI endpoint for the configured
// processor.
func NewDocAIClient(ctx context.Context, projectID, location, processorID string) (*DocAIClient, error) {
	if projectID == "" || processorID == "" {
		return nil, fmt.Errorf("document ai requires project and processor ids")
	}

	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)
	client, err := documentai.NewDocumentProcessorClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("create document ai client: %w", err)
	}

	return &DocAIClient{
		client:        client,
		processorName: fmt.Sprintf("projects/%s/locations/%s/processors/%s", projectID, location, processorID),
	}, nil
}

// ProcessDocument sends raw document bytes for extraction and returns the
// decoded entity list. Failures (auth, quota, malformed document) come back
// as a typed Error for the caller to record.
func (c *DocAIClient) ProcessDocument(ctx context.Context, data []byte, mimeType string) ([]entity.RawEntity, error) {
	req := &documentaipb.ProcessRequest{
		Name: c.processorName,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: mimeType,
			},
		},
	}

	resp, err := c.client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, &Error{
			Code:    ErrProcessorCall,
			Message: "document processor call failed",
			Cause:   err,
		}
	}

	return entity.FromDocument(resp.GetDocument()), nil
}

// Close releases the underlying gRPC connection.
func (c *DocAIClient) Close() error {
	return c.client.Close()
}
