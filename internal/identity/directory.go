package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotFound reports an email with no directory account.
var ErrNotFound = errors.New("identity: account not found")

// Record is an account as the directory knows it.
type Record struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
	Disabled    bool
}

// Directory is the Auth store: the external authority on which emails
// have a login identity. The profile store never substitutes for it.
type Directory interface {
	GetByEmail(ctx context.Context, email string) (*Record, error)
	Create(ctx context.Context, email, displayName string) (*Record, error)
}

// Client talks to the identity platform's REST accounts API.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		base:   baseURL,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

type apiAccount struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
	Disabled    bool   `json:"disabled"`
}

func (a apiAccount) record() *Record {
	return &Record{
		UID:         a.LocalID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		PhotoURL:    a.PhotoURL,
		Disabled:    a.Disabled,
	}
}

func (c *Client) post(ctx context.Context, action string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/accounts:%s?key=%s", c.base, action, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error.Message == "EMAIL_NOT_FOUND" {
			return ErrNotFound
		}
		return fmt.Errorf("identity api %s: status %d %s", action, resp.StatusCode, apiErr.Error.Message)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) GetByEmail(ctx context.Context, email string) (*Record, error) {
	in := struct {
		Email []string `json:"email"`
	}{Email: []string{email}}
	var out struct {
		Users []apiAccount `json:"users"`
	}
	if err := c.post(ctx, "lookup", in, &out); err != nil {
		return nil, err
	}
	if len(out.Users) == 0 {
		return nil, ErrNotFound
	}
	return out.Users[0].record(), nil
}

func (c *Client) Create(ctx context.Context, email, displayName string) (*Record, error) {
	in := struct {
		Email       string `json:"email"`
		DisplayName string `json:"displayName,omitempty"`
	}{Email: email, DisplayName: displayName}
	var out apiAccount
	if err := c.post(ctx, "signUp", in, &out); err != nil {
		return nil, err
	}
	if out.DisplayName == "" {
		out.DisplayName = displayName
	}
	return out.record(), nil
}
