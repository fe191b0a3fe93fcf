package gpt

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"calorie-bot/internal/models"
)

var ErrEmptyResponse = errors.New("no response from GPT API")

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Client struct {
	client      chatCompleter
	model       string
	visionModel string
	maxTokens   int
}

func NewClient(apiKey string) *Client {
	return &Client{
		client:      openai.NewClient(apiKey),
		model:       openai.GPT4oMini,
		visionModel: openai.GPT4oMini,
		maxTokens:   800,
	}
}

func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

func (c *Client) WithVisionModel(model string) *Client {
	if model != "" {
		c.visionModel = model
	}
	return c
}

func (c *Client) WithMaxTokens(n int) *Client {
	if n > 0 {
		c.maxTokens = n
	}
	return c
}

type prompts struct {
	system    string
	food      string
	nutrition string
	summary   string
}

var promptsByLang = map[string]prompts{
	models.LangEnglish: {
		system: "You are a nutritionist who estimates the contents of meals.",
		food: "Analyze this food image and provide:\n" +
			"1. What food items are present\n" +
			"2. Brief description of the dish\n" +
			"Keep the response concise and clear.",
		nutrition: "Based on the food identified (%s), provide an estimation of:\n" +
			"1. Calories (kcal)\n" +
			"2. Protein (g)\n" +
			"3. Carbohydrates (g)\n" +
			"4. Fat (g)\n\n" +
			"Format as a clear list with approximate values. Consider this an estimation only.",
		summary: "Generate a friendly daily calorie intake summary in English for:\n" +
			"Total calories: %d\n" +
			"Include:\n" +
			"1. The approximate nature of the calculations\n" +
			"2. A reasonable error margin (±10-15%%)\n" +
			"3. A brief comment on whether this is within typical daily requirements\n" +
			"Keep it concise and friendly.",
	},
	models.LangRussian: {
		system: "Ты опытный диетолог, который оценивает состав блюд.",
		food: "Проанализируй это изображение еды и укажи:\n" +
			"1. Какие продукты присутствуют\n" +
			"2. Краткое описание блюда\n" +
			"Дай краткий и четкий ответ на русском языке.",
		nutrition: "На основе определенных продуктов (%s), предоставь оценку:\n" +
			"1. Калории (ккал)\n" +
			"2. Белки (г)\n" +
			"3. Углеводы (г)\n" +
			"4. Жиры (г)\n\n" +
			"Оформи в виде четкого списка с примерными значениями на русском языке.\n" +
			"Учти, что это приблизительная оценка.",
		summary: "Составь дружелюбную сводку дневного потребления калорий на русском языке для:\n" +
			"Всего калорий: %d\n" +
			"Включи:\n" +
			"1. Приблизительный характер расчётов\n" +
			"2. Разумную погрешность (±10-15%%)\n" +
			"3. Короткий комментарий, укладывается ли это в обычную дневную норму\n" +
			"Будь краток и дружелюбен.",
	},
}

func promptsFor(lang string) prompts {
	if p, ok := promptsByLang[lang]; ok {
		return p
	}
	return promptsByLang[models.DefaultLanguage]
}

// Describe names the food on the image. The image is sent inline as a data URL.
func (c *Client) Describe(ctx context.Context, lang string, image []byte) (string, error) {
	if len(image) == 0 {
		return "", errors.New("describe: empty image")
	}
	p := promptsFor(lang)
	dataURL := fmt.Sprintf("data:%s;base64,%s",
		http.DetectContentType(image), base64.StdEncoding.EncodeToString(image))

	req := openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.system},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: p.food},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailLow},
					},
				},
			},
		},
		MaxTokens: c.maxTokens,
	}

	text, err := c.complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("describe: %w", err)
	}
	return text, nil
}

// Estimate returns the approximate nutritional values of a food description.
func (c *Client) Estimate(ctx context.Context, lang, description string) (string, error) {
	p := promptsFor(lang)
	text, err := c.complete(ctx, c.textRequest(p.system, fmt.Sprintf(p.nutrition, description)))
	if err != nil {
		return "", fmt.Errorf("estimate: %w", err)
	}
	return text, nil
}

// SummarizeDay writes a short comment on the daily total for the evening summary.
func (c *Client) SummarizeDay(ctx context.Context, lang string, total int) (string, error) {
	p := promptsFor(lang)
	text, err := c.complete(ctx, c.textRequest(p.system, fmt.Sprintf(p.summary, total)))
	if err != nil {
		return "", fmt.Errorf("summarize day: %w", err)
	}
	return text, nil
}

func (c *Client) textRequest(system, prompt string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: 0.4,
	}
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
