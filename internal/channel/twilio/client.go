package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const defaultAPIBaseURL = "https://api.twilio.com"

// RESTClient is a minimal Messages API sender: one form POST per call,
// single attempt, no retry or rate limiting.
type RESTClient struct {
	accountSID string
	authToken  string
	baseURL    string
	httpClient *http.Client
}

// NewRESTClient creates a carrier REST sender. An empty baseURL selects
// the production API endpoint.
func NewRESTClient(accountSID, authToken, baseURL string) *RESTClient {
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	return &RESTClient{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

type apiMessage struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// CreateMessage submits one message to the carrier's Messages endpoint.
func (c *RESTClient) CreateMessage(ctx context.Context, p SendPayload) (SendResult, error) {
	form := url.Values{}
	form.Set("To", p.To)
	form.Set("Body", p.Body)
	if p.MessagingServiceSID != "" {
		form.Set("MessagingServiceSid", p.MessagingServiceSID)
	} else {
		form.Set("From", p.From)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return SendResult{}, fmt.Errorf("twilio: building send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("twilio: sending message: %w", err)
	}
	defer resp.Body.Close()

	var msg apiMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return SendResult{}, fmt.Errorf("twilio: decoding response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 {
		return SendResult{}, fmt.Errorf("twilio: send rejected (status %d, code %d): %s", resp.StatusCode, msg.Code, msg.Message)
	}

	return SendResult{SID: msg.SID, Status: msg.Status}, nil
}
