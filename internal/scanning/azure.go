package scanning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAzureAPIVersion is the Document Intelligence API version the field decoding targets
	DefaultAzureAPIVersion = "2023-07-31"

	defaultPollInterval = time.Second
	defaultMaxPolls     = 120
	azureKeyHeader      = "Ocp-Apim-Subscription-Key"
)

// AzureConfig holds the connection settings for Azure Document Intelligence
type AzureConfig struct {
	Endpoint     string
	Key          string
	APIVersion   string
	PollInterval time.Duration
	MaxPolls     int // status checks before an analysis counts as failed
	HTTPClient   *http.Client
}

// Azure implements Backend using the Document Intelligence REST API.
// One pooled HTTP client is shared by every analysis in the run.
type Azure struct {
	endpoint     string
	key          string
	apiVersion   string
	pollInterval time.Duration
	maxPolls     int
	client       *http.Client
}

// NewAzure creates a new Azure backend
func NewAzure(cfg AzureConfig) (*Azure, error) {
	if cfg.Endpoint == "" || cfg.Key == "" {
		return nil, fmt.Errorf("azure endpoint and key are required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAzureAPIVersion
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = defaultMaxPolls
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	return &Azure{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		key:          cfg.Key,
		apiVersion:   cfg.APIVersion,
		pollInterval: cfg.PollInterval,
		maxPolls:     cfg.MaxPolls,
		client:       client,
	}, nil
}

// azureField mirrors a DocumentField in the analyze response
type azureField struct {
	Type          string                `json:"type"`
	Content       string                `json:"content"`
	Confidence    *float64              `json:"confidence"`
	ValueString   *string               `json:"valueString"`
	ValueNumber   *float64              `json:"valueNumber"`
	ValueInteger  *int64                `json:"valueInteger"`
	ValueDate     *string               `json:"valueDate"`
	ValueTime     *string               `json:"valueTime"`
	ValueCurrency *azureCurrency        `json:"valueCurrency"`
	ValueArray    []azureField          `json:"valueArray"`
	ValueObject   map[string]azureField `json:"valueObject"`
}

type azureCurrency struct {
	Amount         float64 `json:"amount"`
	CurrencySymbol string  `json:"currencySymbol"`
}

type azureDocument struct {
	DocType    string                `json:"docType"`
	Confidence float64               `json:"confidence"`
	Fields     map[string]azureField `json:"fields"`
}

type azureAnalyzeResult struct {
	APIVersion string          `json:"apiVersion"`
	ModelID    string          `json:"modelId"`
	Content    string          `json:"content"`
	Documents  []azureDocument `json:"documents"`
}

type azureOperation struct {
	Status        string              `json:"status"`
	AnalyzeResult *azureAnalyzeResult `json:"analyzeResult"`
	Error         *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze submits the image to the prebuilt receipt model and waits for the result
func (a *Azure) Analyze(ctx context.Context, imageData []byte, contentType string) (*AnalyzeResult, error) {
	url := fmt.Sprintf("%s/formrecognizer/documentModels/%s:analyze?api-version=%s", a.endpoint, ReceiptModelID, a.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(azureKeyHeader, a.key)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling azure API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("azure API error (status %d): %s", resp.StatusCode, string(body))
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return nil, fmt.Errorf("azure API response missing Operation-Location header")
	}

	return a.poll(ctx, operationURL)
}

// poll fetches the analyze operation until it leaves the running state.
// An operation still running after maxPolls checks is an error, so the caller can retry it.
func (a *Azure) poll(ctx context.Context, operationURL string) (*AnalyzeResult, error) {
	for polls := 1; ; polls++ {
		op, wait, err := a.getOperation(ctx, operationURL)
		if err != nil {
			return nil, err
		}

		switch strings.ToLower(op.Status) {
		case "succeeded":
			if op.AnalyzeResult == nil {
				return nil, fmt.Errorf("azure operation succeeded without an analyze result")
			}
			return convertAzureResult(op.AnalyzeResult), nil
		case "failed", "canceled":
			if op.Error != nil {
				return nil, fmt.Errorf("azure analysis %s: %s: %s", op.Status, op.Error.Code, op.Error.Message)
			}
			return nil, fmt.Errorf("azure analysis %s", op.Status)
		}

		if polls >= a.maxPolls {
			return nil, fmt.Errorf("azure analysis still %s after %d status checks", op.Status, polls)
		}
		slog.Debug("Waiting for azure analysis", "status", op.Status, "wait", wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for azure analysis: %w", ctx.Err())
		}
	}
}

func (a *Azure) getOperation(ctx context.Context, operationURL string) (*azureOperation, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating poll request: %w", err)
	}
	req.Header.Set(azureKeyHeader, a.key)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("polling azure operation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, 0, fmt.Errorf("azure poll error (status %d): %s", resp.StatusCode, string(body))
	}

	var op azureOperation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, 0, fmt.Errorf("decoding operation: %w", err)
	}

	wait := a.pollInterval
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		wait = time.Duration(secs) * time.Second
	}
	return &op, wait, nil
}

// Close closes idle connections of the shared HTTP client
func (a *Azure) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

func convertAzureResult(r *azureAnalyzeResult) *AnalyzeResult {
	result := &AnalyzeResult{
		ModelID: r.ModelID,
		Content: r.Content,
	}
	for _, doc := range r.Documents {
		result.Documents = append(result.Documents, convertAzureDocument(doc))
	}
	return result
}

func convertAzureDocument(doc azureDocument) FieldSet {
	fields := doc.Fields
	vendor := stringField(fields, "VendorName")
	if !vendor.Found {
		vendor = stringField(fields, "MerchantName")
	}

	set := FieldSet{
		VendorName:      vendor,
		TransactionDate: stringField(fields, "TransactionDate"),
		TransactionTime: stringField(fields, "TransactionTime"),
		Subtotal:        numberField(fields, "Subtotal"),
		TotalTax:        numberField(fields, "TotalTax"),
		Tip:             numberField(fields, "Tip"),
		Total:           numberField(fields, "Total"),
	}

	if items, ok := fields["Items"]; ok {
		for _, item := range items.ValueArray {
			set.Items = append(set.Items, Item{
				Description: stringField(item.ValueObject, "Description"),
				TotalPrice:  numberField(item.ValueObject, "TotalPrice"),
				Quantity:    numberField(item.ValueObject, "Quantity"),
			})
		}
	}
	return set
}

func stringField(fields map[string]azureField, name string) Field[string] {
	f, ok := fields[name]
	if !ok {
		return Field[string]{}
	}
	var value string
	switch {
	case f.ValueString != nil:
		value = *f.ValueString
	case f.ValueDate != nil:
		value = *f.ValueDate
	case f.ValueTime != nil:
		value = *f.ValueTime
	default:
		value = f.Content
	}
	if strings.TrimSpace(value) == "" {
		return Field[string]{}
	}
	return Found(value, confidenceOf(f))
}

func numberField(fields map[string]azureField, name string) Field[float64] {
	f, ok := fields[name]
	if !ok {
		return Field[float64]{}
	}
	switch {
	case f.ValueCurrency != nil:
		return Found(f.ValueCurrency.Amount, confidenceOf(f))
	case f.ValueNumber != nil:
		return Found(*f.ValueNumber, confidenceOf(f))
	case f.ValueInteger != nil:
		return Found(float64(*f.ValueInteger), confidenceOf(f))
	}
	return Field[float64]{}
}

func confidenceOf(f azureField) float64 {
	if f.Confidence == nil {
		return 0
	}
	return *f.Confidence
}
