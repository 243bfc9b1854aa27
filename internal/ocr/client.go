package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrUnavailable means the recognition service could not be reached or
	// refused the request, including the fallback model.
	ErrUnavailable = errors.New("recognition service unavailable")
	// ErrBadPayload means the model answered but no item list could be
	// extracted from its reply.
	ErrBadPayload = errors.New("no items in model response")
)

// Item is one recognized receipt line. Shared marks service/tip lines the
// model was asked to tag; it is optional in the payload and defaults false.
type Item struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Shared   bool    `json:"shared"`
}

const prompt = `Извлеки все позиции из ресторанного чека и верни строго JSON:
{
  "items": [
    {"name": "string", "price": number, "quantity": number, "shared": boolean}
  ]
}
Правила:
- Цена только числом (без валюты)
- Учитывай множители (x2, ×3 и т.п.) в quantity
- Включай блюда, напитки, сервис/чаевые
- Для сервисного сбора и чаевых ставь "shared": true, для остального false
- Никаких комментариев, только JSON`

type Client struct {
	client        *openai.Client
	model         string
	fallbackModel string
}

func NewClient(apiKey string) *Client {
	return &Client{
		client:        openai.NewClient(apiKey),
		model:         openai.GPT4oMini,
		fallbackModel: openai.GPT4o,
	}
}

// Extract asks a vision model for the receipt's line items. A model-not-found
// answer is retried once on the fallback model before giving up.
func (c *Client) Extract(ctx context.Context, image []byte) ([]Item, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
							Detail: openai.ImageURLDetailAuto,
						},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt,
					},
				},
			},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil && isModelNotFound(err) {
		req.Model = c.fallbackModel
		resp, err = c.client.CreateChatCompletion(ctx, req)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrBadPayload
	}

	return parsePayload(resp.Choices[0].Message.Content)
}

func isModelNotFound(err error) bool {
	var apiErr *openai.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound
}
