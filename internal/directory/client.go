// Package directory is a stateless HTTP client for the VereinOnline
// member API. Three operations are wrapped: VerifyLogin, GetMember and
// GetMembers, all POSTs against `{base}/?api=<op>` signed with the
// configured account token.
package directory

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // the wire protocol mandates md5 tokens
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	connectTimeout = 5 * time.Second
	totalTimeout   = 10 * time.Second

	// Responses are small JSON documents; a 10 MiB cap is generous.
	maxResponseBytes = 10 << 20
)

// Member is the GetMember payload, field names as the API sends them.
type Member struct {
	Login     string `json:"userlogin"`
	FirstName string `json:"vorname"`
	LastName  string `json:"nachname"`
	Email     string `json:"p_email"`
	GroupIDs  string `json:"gruppenids"`
	Photo     string `json:"foto"`
	Deleted   string `json:"geloescht"`
}

// IsDeleted reports whether the directory flagged the member deleted.
// The API sends "0" for live members and a date or "1" otherwise.
func (m Member) IsDeleted() bool {
	return m.Deleted != "" && m.Deleted != "0"
}

// DisplayName joins first and last name. Empty when the directory has
// neither.
func (m Member) DisplayName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// RosterEntry is one row of the GetMembers roster.
type RosterEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client talks to one directory instance. Safe for concurrent use.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// NewClient creates a directory client for the given API base URL and
// account. The trailing slash is normalized away.
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http: &http.Client{
			Timeout: totalTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: connectTimeout,
				}).DialContext,
			},
		},
	}
}

// token builds the API authorization header value:
// `A/<username>/<hex md5(password)>`.
func (c *Client) token() string {
	sum := md5.Sum([]byte(c.password)) //nolint:gosec // wire protocol

	return "A/" + c.username + "/" + hex.EncodeToString(sum[:])
}

// VerifyLogin checks the member's credentials and returns their
// external id. An empty id means the credentials are invalid, that is
// not an error.
func (c *Client) VerifyLogin(ctx context.Context, user, password string) (string, error) {
	body := map[string]string{
		"user":     user,
		"password": password,
		"result":   "id",
	}

	raw, err := c.post(ctx, "VerifyLogin", body)
	if err != nil {
		return "", err
	}

	var results []any
	if err := json.Unmarshal(raw, &results); err != nil {
		return "", &TransportError{Op: "VerifyLogin", Err: fmt.Errorf("unexpected response: %w", err)}
	}

	if len(results) == 0 {
		return "", nil
	}

	return stringify(results[0]), nil
}

// GetMember fetches the profile payload for one external member id.
func (c *Client) GetMember(ctx context.Context, externalID string) (*Member, error) {
	raw, err := c.post(ctx, "GetMember", map[string]string{"id": externalID})
	if err != nil {
		return nil, err
	}

	var member Member
	if err := json.Unmarshal(raw, &member); err != nil {
		return nil, &TransportError{Op: "GetMember", Err: fmt.Errorf("unexpected response: %w", err)}
	}

	return &member, nil
}

// GetMembers fetches the full roster of member ids and names.
func (c *Client) GetMembers(ctx context.Context) ([]RosterEntry, error) {
	raw, err := c.post(ctx, "GetMembers", map[string]string{})
	if err != nil {
		return nil, err
	}

	var roster []RosterEntry
	if err := json.Unmarshal(raw, &roster); err != nil {
		return nil, &TransportError{Op: "GetMembers", Err: fmt.Errorf("unexpected response: %w", err)}
	}

	return roster, nil
}

// Check probes the API with a throwaway user to validate URL and
// credentials. The probe user does not exist; what matters is whether
// the directory accepts our token at all.
func (c *Client) Check(ctx context.Context) error {
	_, err := c.VerifyLogin(ctx, "vobridge-connection-check", "-")
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.AccessDenied() {
			return ErrAccessDenied
		}
		// Reachable and authorized, the complaint is about the probe
		// user itself.
		return nil
	}

	return err
}

// PhotoURL resolves a member photo reference against the API base and
// enforces the domain trust boundary: the photo host must be the
// directory's host or a subdomain of it. Anything else is rejected,
// we do not fetch avatar bytes from arbitrary origins.
func (c *Client) PhotoURL(photo string) (string, error) {
	if c.baseURL == "" {
		return "", ErrNoBaseURL
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}

	ref, err := url.Parse(photo)
	if err != nil {
		return "", fmt.Errorf("parse photo url: %w", err)
	}

	resolved := ref
	if !ref.IsAbs() {
		resolved, err = url.Parse(c.baseURL + "/" + strings.TrimPrefix(photo, "/"))
		if err != nil {
			return "", fmt.Errorf("parse photo url: %w", err)
		}
	}

	host := resolved.Hostname()
	trusted := base.Hostname()
	if host != trusted && !strings.HasSuffix(host, "."+trusted) {
		return "", ErrUntrustedPhotoHost
	}

	return resolved.String(), nil
}

// FetchPhoto downloads the photo bytes from an already trust-checked
// URL.
func (c *Client) FetchPhoto(ctx context.Context, photoURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		return nil, &TransportError{Op: "FetchPhoto", Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "FetchPhoto", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "FetchPhoto", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Op: "FetchPhoto", Err: err}
	}

	return data, nil
}

// post performs one signed API call and returns the raw JSON response,
// with the directory's error payloads already converted to APIError.
func (c *Client) post(ctx context.Context, op string, body any) (json.RawMessage, error) {
	if c.baseURL == "" {
		return nil, ErrNoBaseURL
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	endpoint := c.baseURL + "/?api=" + op

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.token())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	// Error payloads are objects with an "error" key, regular results
	// are arrays or plain objects without one.
	var probe struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err == nil && probe.Error != nil {
		return nil, &APIError{Op: op, Message: *probe.Error}
	}

	return data, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// Member ids are numeric in some deployments.
		return fmt.Sprintf("%.0f", t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
