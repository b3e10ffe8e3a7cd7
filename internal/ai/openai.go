package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"airshark/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// Summarizer defines the AI summary interface used by the digest.
type Summarizer interface {
	// SummarizePost explains in one or two sentences what a single post announces.
	SummarizePost(ctx context.Context, p model.Post, language string) (string, error)
	// SummarizeDigest writes a short overview of a set of posts.
	SummarizeDigest(ctx context.Context, posts []model.Post, language string) (string, error)
}

// OpenAIClient implements Summarizer using OpenAI Chat Completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string // optional
}

var ErrNoModel = errors.New("openai: model must be specified")

func NewOpenAI(cfg Config) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, ErrNoModel
	}
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cc), model: cfg.Model}, nil
}

func (o *OpenAIClient) SummarizePost(ctx context.Context, p model.Post, language string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()
	text := strings.TrimSpace(p.Text)
	if len([]rune(text)) > 1000 {
		text = string([]rune(text)[:1000])
	}

	sys := fmt.Sprintf(`
		Write in %s. In one or two sentences (at most 60 words), state what this social media post announces:
		which token, what kind of distribution (airdrop, presale, claim) and any date it mentions.
		Stay factual. Do not add hype, advice or links.
		`, langOrDefault(language))
	user := fmt.Sprintf("Author: @%s\nToken: %s\nPost: %s", p.Author.UserName, tokenOrUnknown(p.Token), text)
	out, err := o.create(ctx, sys, user)
	if err != nil {
		slog.Error("openai: summarize post error", "id", p.ID, "err", err)
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (o *OpenAIClient) SummarizeDigest(ctx context.Context, posts []model.Post, language string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 300*time.Second)
	defer cancel()
	if len(posts) == 0 {
		return "", nil
	}
	b := &strings.Builder{}
	for i, p := range posts {
		if i >= 10 {
			break
		}
		fmt.Fprintf(b, "- %s (score %.0f): %s\n", tokenOrUnknown(p.Token), p.QualityScore, oneLine(p.Text, 200))
	}
	sys := fmt.Sprintf(`
		Write in %s, 2 ~ 4 sentences (40–160 words), summarizing which token distributions are being discussed.
		Mention the strongest signals first. Stay neutral; never recommend participating.
		`, langOrDefault(language))
	user := fmt.Sprintf("Top airdrop posts (token, quality score, text):\n%s\nTask: Summarize the highlights. Output plain text only, no links.", b.String())
	out, err := o.create(ctx, sys, user)
	if err != nil {
		slog.Error("openai: summarize digest error", "err", err)
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (o *OpenAIClient) create(ctx context.Context, system, user string) (string, error) {
	// Default timeout guard, if caller didn't set one
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 300*time.Second)
		defer cancel()
	}
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func langOrDefault(lang string) string {
	l := strings.TrimSpace(lang)
	if l == "" {
		return "English"
	}
	return l
}

func tokenOrUnknown(t string) string {
	if t == "" {
		return "unknown"
	}
	return "$" + t
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > limit {
		return string(r[:limit]) + "…"
	}
	return s
}
