package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"
	"github.com/ibtikar-org-tr/membership-app/pkg/xerrors"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"
	sheetsScope    = "https://www.googleapis.com/auth/spreadsheets"

	// Refresh slightly before the token actually expires.
	expirySkew = 2 * time.Minute
)

// Credentials is the relevant subset of a Google service-account key file.
type Credentials struct {
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
	TokenURI     string `json:"token_uri"`
}

// Session is an access token with its expiry, passed around explicitly
// instead of hiding token state inside the client.
type Session struct {
	Token  string
	Expiry time.Time
}

// Valid reports whether the session can still be used.
func (s Session) Valid() bool {
	return s.Token != "" && time.Now().Before(s.Expiry.Add(-expirySkew))
}

// Client talks to the Google Sheets values API.
type Client struct {
	creds    Credentials
	http     *http.Client
	baseURL  string
	tokenURL string

	mu      sync.Mutex
	session Session
}

func New(creds Credentials) *Client {
	tokenURL := creds.TokenURI
	if tokenURL == "" {
		tokenURL = "https://oauth2.googleapis.com/token"
	}
	return &Client{
		creds:    creds,
		http:     &http.Client{Timeout: 30 * time.Second},
		baseURL:  defaultBaseURL,
		tokenURL: tokenURL,
	}
}

// ParseCredentials decodes a service-account key file.
func ParseCredentials(raw []byte) (Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to decode service account credentials: %w", err)
	}
	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		return Credentials{}, fmt.Errorf("service account credentials missing client_email or private_key")
	}
	return creds, nil
}

// EnsureValid returns s unchanged while it is still valid, otherwise a fresh
// session obtained through the service-account JWT grant.
func (c *Client) EnsureValid(ctx context.Context, s Session) (Session, error) {
	if s.Valid() {
		return s, nil
	}

	assertion, err := c.signAssertion()
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", xerrors.ErrStoreUnavailable, err)
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", xerrors.ErrStoreUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("%w: token exchange: %v", xerrors.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Session{}, fmt.Errorf("%w: token exchange returned %d: %s", xerrors.ErrStoreUnavailable, resp.StatusCode, body)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Session{}, fmt.Errorf("%w: decoding token response: %v", xerrors.ErrStoreUnavailable, err)
	}

	return Session{
		Token:  payload.AccessToken,
		Expiry: time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}, nil
}

func (c *Client) signAssertion() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(c.creds.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse service account key: %w", err)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   c.creds.ClientEmail,
		"scope": sheetsScope,
		"aud":   c.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})
	token.Header["kid"] = c.creds.PrivateKeyID

	return token.SignedString(key)
}

func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.EnsureValid(ctx, c.session)
	if err != nil {
		return "", err
	}
	c.session = s
	return s.Token, nil
}

// ReadRange fetches all cell values in the range. An empty range yields an
// empty snapshot, not an error.
func (c *Client) ReadRange(ctx context.Context, resourceID, rangeSpec string) (domain.SheetSnapshot, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return domain.SheetSnapshot{}, err
	}

	endpoint := fmt.Sprintf("%s/%s/values/%s", c.baseURL, url.PathEscape(resourceID), url.PathEscape(rangeSpec))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.SheetSnapshot{}, fmt.Errorf("%w: %v", xerrors.ErrStoreUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.SheetSnapshot{}, fmt.Errorf("%w: read %s: %v", xerrors.ErrStoreUnavailable, rangeSpec, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.SheetSnapshot{}, fmt.Errorf("%w: read %s returned %d: %s", xerrors.ErrStoreUnavailable, rangeSpec, resp.StatusCode, body)
	}

	var payload struct {
		Values [][]string `json:"values"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.SheetSnapshot{}, fmt.Errorf("%w: decoding values: %v", xerrors.ErrStoreUnavailable, err)
	}

	if len(payload.Values) == 0 {
		return domain.SheetSnapshot{}, nil
	}
	return domain.SheetSnapshot{
		Headers: payload.Values[0],
		Rows:    payload.Values[1:],
	}, nil
}

// OverwriteRange replaces the full contents of the range with rows. The
// caller includes the header row as rows[0]. Last writer wins; the store has
// no optimistic concurrency token.
func (c *Client) OverwriteRange(ctx context.Context, resourceID, rangeSpec string, rows [][]string) error {
	return c.putValues(ctx, resourceID, rangeSpec, rows)
}

// WriteCell overwrites exactly one cell, leaving the rest of the sheet
// untouched.
func (c *Client) WriteCell(ctx context.Context, resourceID, cellAddr, value string) error {
	return c.putValues(ctx, resourceID, cellAddr, [][]string{{value}})
}

func (c *Client) putValues(ctx context.Context, resourceID, rangeSpec string, rows [][]string) error {
	token, err := c.bearer(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]interface{}{"values": rows})
	if err != nil {
		return fmt.Errorf("failed to encode values: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/values/%s?valueInputOption=USER_ENTERED",
		c.baseURL, url.PathEscape(resourceID), url.PathEscape(rangeSpec))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", xerrors.ErrStoreUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", xerrors.ErrStoreUnavailable, rangeSpec, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: write %s returned %d: %s", xerrors.ErrStoreUnavailable, rangeSpec, resp.StatusCode, respBody)
	}
	return nil
}
