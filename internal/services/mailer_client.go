package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MailerClient talks to the internal mail service. Delivery is
// fire-and-forget: failures are logged, never surfaced to payment flows.
type MailerClient struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewMailerClient(baseURL string, log *zap.Logger) *MailerClient {
	return &MailerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// Send asks the mail service to render the given template for a user.
// The mail service resolves the user id to an address.
func (c *MailerClient) Send(ctx context.Context, userID, template string, data map[string]any) {
	body, _ := json.Marshal(map[string]any{
		"user_id":  userID,
		"template": template,
		"data":     data,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/mail", strings.NewReader(string(body)))
	if err != nil {
		c.log.Warn("failed to build mail request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("failed to send mail notification",
			zap.String("template", template),
			zap.Error(err),
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("mail service rejected notification",
			zap.String("template", template),
			zap.Int("status", resp.StatusCode),
		)
	}
}
