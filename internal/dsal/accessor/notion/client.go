package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/worldline-go/klient"
)

const (
	baseURL       = "https://api.notion.com/v1"
	notionVersion = "2022-06-28"
)

// client wraps klient.Client with the Notion-specific headers (spec §6:
// "Bearer auth, JSON bodies... version header 2022-06-28").
type client struct {
	http *klient.Client
}

func newClient(apiKey string) (*client, error) {
	headers := http.Header{
		"Content-Type":   []string{"application/json"},
		"Notion-Version": []string{notionVersion},
		"Authorization":  []string{"Bearer " + apiKey},
	}
	c, err := klient.New(
		klient.WithBaseURL(baseURL),
		klient.WithLogger(slog.Default()),
		klient.WithHeaderSet(headers),
		klient.WithDisableEnvValues(true),
	)
	if err != nil {
		return nil, err
	}
	return &client{http: c}, nil
}

func (c *client) do(ctx context.Context, method, path string, body any) (map[string]any, int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, path, reader)
	if err != nil {
		return nil, 0, err
	}

	var result map[string]any
	status := 0
	err = c.http.Do(req, func(r *http.Response) error {
		status = r.StatusCode
		data, readErr := io.ReadAll(r.Body)
		if readErr != nil {
			return readErr
		}
		if len(data) == 0 {
			return nil
		}
		if unmarshalErr := json.Unmarshal(data, &result); unmarshalErr != nil {
			return fmt.Errorf("notion: decode response: %w (body: %s)", unmarshalErr, string(data))
		}
		return nil
	})
	return result, status, err
}
