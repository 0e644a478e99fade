package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ticketing_app_echo/internal/config"
)

type WahaService struct {
	baseURL     string
	apiKey      string
	session     string
	countryCode string
	client      *http.Client
	pause       func(ctx context.Context, d time.Duration) error
}

func NewWahaService(cfg config.WahaConfig) *WahaService {
	url := cfg.BaseURL
	if url == "" {
		url = "http://waha:3000"
	}
	session := cfg.Session
	if session == "" {
		session = "default"
	}
	return &WahaService{
		baseURL:     strings.TrimRight(url, "/"),
		apiKey:      cfg.APIKey,
		session:     session,
		countryCode: cfg.CountryCode,
		client:      &http.Client{Timeout: 10 * time.Second},
		pause:       sleepContext,
	}
}

func (s *WahaService) makeRequest(ctx context.Context, method, endpoint string, payload interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s%s", s.baseURL, endpoint), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

func (s *WahaService) chatAction(ctx context.Context, endpoint, chatId string) error {
	return s.makeRequest(ctx, http.MethodPost, endpoint, map[string]string{
		"chatId":  chatId,
		"session": s.session,
	})
}

func (s *WahaService) sendText(ctx context.Context, chatId, text string) error {
	return s.makeRequest(ctx, http.MethodPost, "/api/sendText", map[string]string{
		"chatId":  chatId,
		"text":    text,
		"session": s.session,
	})
}

// NormalizeChatID adds the WhatsApp suffix and replaces a leading trunk '0'
// with the given country code. Group ids are returned unchanged.
func NormalizeChatID(chatId, countryCode string) string {
	chatId = strings.TrimSpace(chatId)

	if strings.HasSuffix(chatId, "@g.us") {
		return chatId
	}

	chatId = strings.TrimSuffix(chatId, "@c.us")
	chatId = strings.TrimPrefix(chatId, "+")
	chatId = strings.NewReplacer(" ", "", "-", "").Replace(chatId)

	if strings.HasPrefix(chatId, "0") && countryCode != "" {
		chatId = countryCode + strings.TrimPrefix(chatId, "0")
	}

	return chatId + "@c.us"
}

// SendMessage sends a message the way a person would: seen, typing, then text
func (s *WahaService) SendMessage(ctx context.Context, chatId, text string) error {
	chatId = NormalizeChatID(chatId, s.countryCode)

	if err := s.chatAction(ctx, "/api/sendSeen", chatId); err != nil {
		return fmt.Errorf("failed to send seen: %w", err)
	}
	if err := s.pause(ctx, 100*time.Millisecond); err != nil {
		return err
	}

	if err := s.chatAction(ctx, "/api/startTyping", chatId); err != nil {
		return fmt.Errorf("failed to start typing: %w", err)
	}
	if err := s.pause(ctx, 150*time.Millisecond); err != nil {
		return err
	}

	if err := s.chatAction(ctx, "/api/stopTyping", chatId); err != nil {
		return fmt.Errorf("failed to stop typing: %w", err)
	}
	if err := s.pause(ctx, 50*time.Millisecond); err != nil {
		return err
	}

	if err := s.sendText(ctx, chatId, text); err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}

	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
