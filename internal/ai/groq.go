// Package ai talks to the Groq chat-completions API: video summaries,
// transcript-grounded Q&A, and hashtag generation.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/martinmana808/braintube/internal/quota"
)

const (
	defaultEndpoint = "https://api.groq.com/openai/v1/chat/completions"
	defaultModel    = "llama-3.3-70b-versatile"

	// transcriptClamp bounds the prompt: anything past this many characters
	// is cut before the transcript is sent to the model.
	transcriptClamp = 25000

	defaultTimeout = 60 * time.Second
)

var ErrNoAPIKey = errors.New("ai: no Groq API key configured")

// Client talks to the Groq chat-completions endpoint. Token usage from
// each call is reported to the quota tracker when one is attached.
type Client struct {
	apiKey     string
	endpoint   string
	model      string
	httpClient *http.Client
	tracker    *quota.Tracker
}

func NewClient(apiKey string, tracker *quota.Tracker) *Client {
	return &Client{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		model:    defaultModel,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		tracker: tracker,
	}
}

// SetEndpoint overrides the API endpoint, for tests.
func (c *Client) SetEndpoint(u string) { c.endpoint = u }

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.apiKey != "" }

// Message is one turn of a chat-completions conversation. Role is one of
// "system", "user", or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Summarize produces a concise summary of a video from its transcript.
func (c *Client) Summarize(ctx context.Context, title, transcript string) (string, error) {
	if len(transcript) > transcriptClamp {
		transcript = transcript[:transcriptClamp]
	}
	system := "You summarize YouTube videos from their transcripts. " +
		"Write a tight summary in 3-6 bullet points followed by a one-line takeaway. " +
		"No preamble, no fluff."
	user := fmt.Sprintf("Video title: %s\n\nTranscript:\n%s", title, transcript)
	return c.complete(ctx, system, user)
}

// Chat answers a follow-up question about a video, grounded on its
// transcript. history carries the earlier turns of the conversation so the
// model keeps context across questions.
func (c *Client) Chat(ctx context.Context, transcript string, history []Message, question string) (string, error) {
	if len(transcript) > transcriptClamp {
		transcript = transcript[:transcriptClamp]
	}
	system := "You answer questions about a YouTube video based on its transcript.\n" +
		"Here is the transcript:\n" + transcript + "\n\n" +
		"Answer based ONLY on the transcript. If the answer is not in the transcript, say so."

	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{Role: "system", Content: system})
	msgs = append(msgs, history...)
	msgs = append(msgs, Message{Role: "user", Content: question})
	return c.completeMessages(ctx, msgs)
}

// GenerateTags produces 3-5 hashtags for a video from its title and
// channel name.
func (c *Client) GenerateTags(ctx context.Context, title, channelTitle string) ([]string, error) {
	prompt := fmt.Sprintf("Generate 3-5 relevant hashtags for a YouTube video with the following details:\n"+
		"Title: %q\nChannel: %q\n\n"+
		"Return ONLY the hashtags separated by spaces (e.g., #Tech #AI #Coding). Do not include any other text.", title, channelTitle)

	out, err := c.completeMessages(ctx, []Message{{Role: "user", Content: prompt}})
	if err != nil {
		return nil, err
	}
	return strings.Fields(out), nil
}

// complete performs one system+user chat-completions call and returns the
// first choice.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	return c.completeMessages(ctx, []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
}

func (c *Client) completeMessages(ctx context.Context, msgs []Message) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("ai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("ai: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ai: read response: %w", err)
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("ai: decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil {
			return "", fmt.Errorf("ai: HTTP %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("ai: HTTP %d: %s", resp.StatusCode, body)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("ai: empty response")
	}

	if c.tracker != nil && out.Usage.TotalTokens > 0 {
		c.tracker.AddGroq(out.Usage.TotalTokens)
	}
	return out.Choices[0].Message.Content, nil
}
