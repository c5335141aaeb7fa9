package api

import (
	"context"
	"net/http"

	"github.com/stemsi/exstem-cli/internal/model"
)

// Login authenticates with email and password and stores the issued bearer
// token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	req := model.LoginRequest{Email: email, Password: password}

	var out model.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.AccessToken)
	return &out, nil
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// refreshToken exchanges the current (possibly expired) token for a fresh
// one. Concurrent callers share a single refresh request.
func (c *Client) refreshToken(ctx context.Context) error {
	c.refreshMu.Lock()
	if ch := c.refreshCh; ch != nil {
		c.refreshMu.Unlock()
		select {
		case <-ch:
			c.refreshMu.Lock()
			err := c.refreshErr
			c.refreshMu.Unlock()
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	ch := make(chan struct{})
	c.refreshCh = ch
	c.refreshMu.Unlock()

	var out model.LoginResponse
	err := c.doOnce(ctx, http.MethodPost, refreshPath, nil, &out)
	if err == nil {
		c.SetToken(out.AccessToken)
		c.log.Debug().Msg("bearer token refreshed")
	}

	c.refreshMu.Lock()
	c.refreshErr = err
	c.refreshCh = nil
	c.refreshMu.Unlock()
	close(ch)

	return err
}
