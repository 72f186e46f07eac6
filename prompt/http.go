/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package prompt supplies question bundles for dice rolls.
package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/reveal/session"
)

const (
	FallbackCategory = "Error Mode"
	FallbackText     = "Could not reach the question bank. Play truth or dare instead?"

	maxResponseSize = 1 << 20
)

// Fallback is returned whenever a prompt cannot be fetched.
func Fallback() session.Prompt {
	return session.Prompt{
		Category: FallbackCategory,
		ForA:     FallbackText,
		ForB:     FallbackText,
	}
}

// Payload is the question bank's JSON shape.
type Payload struct {
	Category    string `json:"category"`
	ForPartnerA string `json:"for_partner_a"`
	ForPartnerB string `json:"for_partner_b"`
}

// HTTP fetches prompts from a question bank at <url>?roll=N.
type HTTP struct {
	endpoint   string
	httpClient *http.Client
	logf       func(format string, args ...any)
}

func NewHTTP(endpoint string, timeout time.Duration, logf func(format string, args ...any)) *HTTP {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &HTTP{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logf:       logf,
	}
}

// FetchPrompt never fails; problems are logged and yield Fallback.
func (h *HTTP) FetchPrompt(ctx context.Context, roll int) session.Prompt {
	p, err := h.fetch(ctx, roll)
	if err != nil {
		h.logf("PROMPT: Falling back for roll %d: %v", roll, err)
		return Fallback()
	}
	return p
}

func (h *HTTP) fetch(ctx context.Context, roll int) (session.Prompt, error) {
	u, err := url.Parse(h.endpoint)
	if err != nil {
		return session.Prompt{}, fmt.Errorf("parse question bank url: %w", err)
	}
	q := u.Query()
	q.Set("roll", strconv.Itoa(roll))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return session.Prompt{}, err
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return session.Prompt{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return session.Prompt{}, fmt.Errorf("question bank returned %s", resp.Status)
	}

	var payload Payload
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&payload); err != nil {
		return session.Prompt{}, fmt.Errorf("decode question bank response: %w", err)
	}

	if strings.TrimSpace(payload.ForPartnerA) == "" && strings.TrimSpace(payload.ForPartnerB) == "" {
		return session.Prompt{}, errors.New("question bank returned no questions")
	}

	return session.Prompt{
		Category: payload.Category,
		ForA:     payload.ForPartnerA,
		ForB:     payload.ForPartnerB,
	}, nil
}
