package gateway

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

	"inviteguard/lib/sl"
)

// Config for the gateway adapter connection.
type Config struct {
	BaseURL string
	Token   string
}

// Client talks to the gateway adapter process over HTTP. The adapter owns
// the chat-platform connection; this client only mirrors its REST surface.
// A 403 from the adapter maps to ErrPermissionDenied so callers can
// distinguish "platform said no" from transport failures.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *slog.Logger
}

func NewClient(conf Config, log *slog.Logger) *Client {
	return &Client{
		baseURL: conf.BaseURL,
		token:   conf.Token,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log.With(sl.Module("gateway.client")),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", method, path, ErrPermissionDenied)
	case resp.StatusCode >= 400:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) GuildInvites(ctx context.Context, guildID int64) ([]Invite, error) {
	var invites []Invite
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/guilds/%d/invites", guildID), nil, &invites)
	return invites, err
}

func (c *Client) DeleteInvite(ctx context.Context, guildID int64, code, reason string) error {
	path := fmt.Sprintf("/guilds/%d/invites/%s?reason=%s", guildID, url.PathEscape(code), url.QueryEscape(reason))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) TextChannels(ctx context.Context, guildID int64) ([]Channel, error) {
	var channels []Channel
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/guilds/%d/channels?text=true", guildID), nil, &channels)
	return channels, err
}

func (c *Client) EditChannelSlowmode(ctx context.Context, channelID int64, seconds int, reason string) error {
	body := map[string]any{"slowmode_seconds": seconds, "reason": reason}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/channels/%d", channelID), body, nil)
}

func (c *Client) KickMember(ctx context.Context, guildID, memberID int64, reason string) error {
	body := map[string]any{"reason": reason}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/guilds/%d/members/%d", guildID, memberID), body, nil)
}

func (c *Client) TimeoutMember(ctx context.Context, guildID, memberID int64, until time.Time, reason string) error {
	body := map[string]any{"timed_out_until": until.UTC(), "reason": reason}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/guilds/%d/members/%d", guildID, memberID), body, nil)
}

func (c *Client) GuildRoles(ctx context.Context, guildID int64) ([]Role, error) {
	var roles []Role
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/guilds/%d/roles", guildID), nil, &roles)
	return roles, err
}

func (c *Client) AddMemberRole(ctx context.Context, guildID, memberID, roleID int64, reason string) error {
	body := map[string]any{"reason": reason}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/guilds/%d/members/%d/roles/%d", guildID, memberID, roleID), body, nil)
}

func (c *Client) SendChannelMessage(ctx context.Context, channelID int64, content string) error {
	body := map[string]any{"content": content}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%d/messages", channelID), body, nil)
}
