package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/expense-approvals/internal/logger"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
	"google.golang.org/genai"
)

// ExtractTimeout is the timeout for Gemini API calls.
const ExtractTimeout = 30 * time.Second

// ErrExtractTimeout indicates the Gemini API call timed out.
var ErrExtractTimeout = errors.New("document extraction timed out")

// ErrNoData indicates no usable data could be extracted from the document.
var ErrNoData = errors.New("no usable data extracted from document")

// ErrUnsupportedType indicates a document format Gemini is not asked to read.
var ErrUnsupportedType = errors.New("unsupported document type")

var supportedMIMETypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/heic":      true,
}

// documentResponse is the JSON structure returned by Gemini.
type documentResponse struct {
	Amount     string  `json:"amount"`
	Date       string  `json:"date"`
	Confidence float64 `json:"confidence"`
}

// ExtractDocument reads the total amount and the document date from a quote,
// invoice or receipt. It applies ExtractTimeout to the API call and returns
// ErrNoData when neither value could be read.
func (c *Client) ExtractDocument(ctx context.Context, data []byte, mimeType string, kind models.DocumentKind) (*models.DocumentData, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("document data is required")
	}
	mimeType = normalizeMIMEType(mimeType, data)
	if !supportedMIMETypes[mimeType] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.generator.GenerateContent(timeoutCtx, c.model, []*genai.Content{
		{
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
				{Text: buildDocumentPrompt(kind)},
			},
		},
	}, &genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrExtractTimeout
		}
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	doc, err := parseDocumentResponse(text)
	if err != nil {
		return nil, err
	}
	if !doc.HasAmount() && !doc.HasDate() {
		return nil, ErrNoData
	}

	logger.Log.Debug().
		Str("kind", string(kind)).
		Bool("amount", doc.HasAmount()).
		Bool("date", doc.HasDate()).
		Dur("took", time.Since(start)).
		Msg("Document extracted")
	return doc, nil
}

func normalizeMIMEType(mimeType string, data []byte) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType, _, _ = strings.Cut(http.DetectContentType(data), ";")
	}
	return mimeType
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func buildDocumentPrompt(kind models.DocumentKind) string {
	dateField := "the invoice or issue date"
	if kind == models.DocumentReceipt {
		dateField = "the date of payment"
	}
	return fmt.Sprintf(`This document is a supplier %s attached to a company expense.
Return ONLY a JSON object with no additional text or markdown formatting.

Required fields:
- amount: The total amount including tax (numeric string, e.g., "1250.00")
- date: %s in YYYY-MM-DD format
- confidence: Your confidence in the extraction accuracy (0.0 to 1.0)

If a field cannot be determined, use "0" for amount and an empty string for date.

Example response:
{"amount": "1250.00", "date": "2026-01-15", "confidence": 0.9}`, kind, dateField)
}

// parseDocumentResponse decodes the model output. Unreadable dates and
// non-positive amounts are treated as absent.
func parseDocumentResponse(response string) (*models.DocumentData, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var dr documentResponse
	if err := json.Unmarshal([]byte(response), &dr); err != nil {
		return nil, fmt.Errorf("failed to parse document response: %w", err)
	}

	doc := &models.DocumentData{}
	if amount := strings.TrimSpace(dr.Amount); amount != "" {
		parsed, err := decimal.NewFromString(strings.ReplaceAll(amount, ",", ""))
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount %q: %w", dr.Amount, err)
		}
		if parsed.IsPositive() {
			doc.Amount = parsed
		}
	}

	if dr.Date != "" {
		date, err := time.Parse("2006-01-02", strings.TrimSpace(dr.Date))
		if err == nil {
			doc.Date = date
		}
	}

	return doc, nil
}
