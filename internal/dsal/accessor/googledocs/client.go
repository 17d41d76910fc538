package googledocs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/rakunlabs/at/internal/dsal/auth"
	"github.com/worldline-go/klient"
)

const (
	docsBaseURL  = "https://docs.googleapis.com/v1"
	driveBaseURL = "https://www.googleapis.com/drive/v3"

	// DefaultRefreshExchangeURI is the compile-time default token exchange
	// endpoint (spec §6: "refreshExchangeUri... default is a compile-time
	// constant").
	DefaultRefreshExchangeURI = "https://oauth2.googleapis.com/token"
)

type client struct {
	docs  *klient.Client
	drive *klient.Client
	coord *auth.Coordinator
}

func newClient(coord *auth.Coordinator) (*client, error) {
	docs, err := klient.New(
		klient.WithBaseURL(docsBaseURL),
		klient.WithLogger(slog.Default()),
		klient.WithDisableEnvValues(true),
	)
	if err != nil {
		return nil, err
	}
	drive, err := klient.New(
		klient.WithBaseURL(driveBaseURL),
		klient.WithLogger(slog.Default()),
		klient.WithDisableEnvValues(true),
	)
	if err != nil {
		return nil, err
	}
	return &client{docs: docs, drive: drive, coord: coord}, nil
}

// doWithAuth runs the OAuth refresh protocol (spec §4.8): ensure a fresh
// token before the call, and on a 401 run exactly one reactive refresh and
// retry.
func (c *client) doWithAuth(ctx context.Context, target *klient.Client, method, path string, body any) (map[string]any, int, error) {
	token, err := c.coord.EnsureFresh(ctx)
	if err != nil {
		return nil, 0, err
	}

	result, status, err := c.doOnce(ctx, target, method, path, body, token)
	if err != nil {
		return nil, status, err
	}
	if status == http.StatusUnauthorized {
		token, err = c.coord.ReactiveRefresh(ctx)
		if err != nil {
			return nil, status, err
		}
		return c.doOnce(ctx, target, method, path, body, token)
	}
	return result, status, nil
}

func (c *client) doOnce(ctx context.Context, target *klient.Client, method, path string, body any, token string) (map[string]any, int, error) {
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
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	var result map[string]any
	status := 0
	err = target.Do(req, func(r *http.Response) error {
		status = r.StatusCode
		data, readErr := io.ReadAll(r.Body)
		if readErr != nil {
			return readErr
		}
		if len(data) == 0 {
			return nil
		}
		if unmarshalErr := json.Unmarshal(data, &result); unmarshalErr != nil {
			return fmt.Errorf("googledocs: decode response: %w (body: %s)", unmarshalErr, string(data))
		}
		return nil
	})
	return result, status, err
}

// tokenExchanger implements auth.TokenRefresher by POSTing the refresh
// token to the configured exchange endpoint (spec §4.8 step 2).
type tokenExchanger struct {
	exchangeURI  string
	clientID     string
	clientSecret string
	http         *klient.Client
}

func newTokenExchanger(exchangeURI, clientID, clientSecret string) (*tokenExchanger, error) {
	if exchangeURI == "" {
		exchangeURI = DefaultRefreshExchangeURI
	}
	c, err := klient.New(klient.WithDisableEnvValues(true))
	if err != nil {
		return nil, err
	}
	return &tokenExchanger{exchangeURI: exchangeURI, clientID: clientID, clientSecret: clientSecret, http: c}, nil
}

func (t *tokenExchanger) Refresh(refreshToken string) (auth.RefreshResult, error) {
	form := url.Values{}
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", t.clientID)
	form.Set("client_secret", t.clientSecret)
	form.Set("grant_type", "refresh_token")

	req, err := http.NewRequest(http.MethodPost, t.exchangeURI, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return auth.RefreshResult{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var result struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	err = t.http.Do(req, func(r *http.Response) error {
		data, readErr := io.ReadAll(r.Body)
		if readErr != nil {
			return readErr
		}
		if r.StatusCode >= 400 {
			return fmt.Errorf("googledocs: token exchange status %d: %s", r.StatusCode, string(data))
		}
		return json.Unmarshal(data, &result)
	})
	if err != nil {
		return auth.RefreshResult{}, err
	}

	return auth.RefreshResult{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(result.ExpiresIn) * time.Second),
	}, nil
}
