package twilio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/smsbridge/smsbridge/internal/domain"
	"github.com/smsbridge/smsbridge/internal/identity"
	"github.com/smsbridge/smsbridge/internal/logging"
)

// emptyResponse is the empty TwiML document acknowledged to the carrier.
const emptyResponse = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

const defaultDeliverTimeout = 30 * time.Second

// Dispatcher places canonical incoming messages on the bus.
type Dispatcher interface {
	DispatchIncoming(ctx context.Context, msg domain.IncomingMessage) bool
}

// Webhook handles inbound carrier POSTs: it authenticates the request,
// acknowledges it immediately, and hands the normalized message to the
// bus asynchronously.
type Webhook struct {
	authToken  string
	identity   *identity.Resolver
	dispatcher Dispatcher
	timeout    time.Duration
	log        *logging.Logger
}

// NewWebhook creates the inbound webhook handler.
func NewWebhook(authToken string, resolver *identity.Resolver, dispatcher Dispatcher, log *logging.Logger) *Webhook {
	return &Webhook{
		authToken:  authToken,
		identity:   resolver,
		dispatcher: dispatcher,
		timeout:    defaultDeliverTimeout,
		log:        log.Sub("twilio.webhook"),
	}
}

// inboundPayload is the carrier POST body for the duration of one request.
type inboundPayload struct {
	Body        string
	From        string
	FromCountry string
	FromCity    string
	FromState   string
	SmsSid      string
	MessageSid  string
	To          string
	AccountSid  string
	Media       []domain.MediaItem
}

func (h *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.log.Debug().Str("host", r.Host).Str("url", r.URL.RequestURI()).Msg("incoming carrier message")

	// Hard gate: an unverified request gets a 403 and nothing else — no
	// user creation, no bus delivery.
	if !ValidateRequest(r, h.authToken) {
		h.log.Debug().Msg("signature verification failed")
		w.WriteHeader(http.StatusForbidden)
		return
	}

	payload := payloadFromForm(r.PostForm)

	// The carrier expects a fast synchronous acknowledgment independent
	// of downstream processing; everything after this write is async.
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, emptyResponse)

	go h.deliver(payload)
}

// payloadFromForm captures the webhook fields this channel consumes.
func payloadFromForm(form url.Values) inboundPayload {
	return inboundPayload{
		Body:        form.Get("Body"),
		From:        form.Get("From"),
		FromCountry: form.Get("FromCountry"),
		FromCity:    form.Get("FromCity"),
		FromState:   form.Get("FromState"),
		SmsSid:      form.Get("SmsSid"),
		MessageSid:  form.Get("SmsMessageSid"),
		To:          form.Get("To"),
		AccountSid:  form.Get("AccountSid"),
		Media:       extractMedia(form),
	}
}

// extractMedia builds the ordered attachment list from the indexed
// MediaContentType{i}/MediaUrl{i} fields. A missing, non-numeric or
// non-positive NumMedia yields nil, so the canonical message carries no
// media field at all rather than an empty one.
func extractMedia(form url.Values) []domain.MediaItem {
	count, err := strconv.Atoi(form.Get("NumMedia"))
	if err != nil || count <= 0 {
		return nil
	}
	media := make([]domain.MediaItem, 0, count)
	for i := 0; i < count; i++ {
		media = append(media, domain.MediaItem{
			ContentType: form.Get(fmt.Sprintf("MediaContentType%d", i)),
			URL:         form.Get(fmt.Sprintf("MediaUrl%d", i)),
		})
	}
	return media
}

// deliver resolves the sender's identity and dispatches the canonical
// message. It runs after the HTTP response has been sent: the carrier has
// no retry contract for an acknowledged message, so failures here are
// logged and dropped, never retried.
func (h *Webhook) deliver(p inboundPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	user, err := h.identity.GetOrCreate(ctx, p.From)
	if err != nil {
		h.log.Error().Err(err).Str("from", p.From).Msg("user resolution failed, message dropped")
		return
	}

	msg := domain.IncomingMessage{
		Platform: Platform,
		Type:     domain.TypeMessage,
		User:     user,
		Text:     p.Body,
		Media:    p.Media,
		Raw: map[string]any{
			"message":     p.Body,
			"media":       p.Media,
			"fromNumber":  p.From,
			"fromCountry": p.FromCountry,
			"fromCity":    p.FromCity,
			"fromState":   p.FromState,
			"smsSid":      p.SmsSid,
			"messageSid":  p.MessageSid,
		},
	}

	if !h.dispatcher.DispatchIncoming(ctx, msg) {
		h.log.Error().Str("from", p.From).Msg("bus dispatch failed, message dropped")
		return
	}
	h.log.Debug().Str("from", p.From).Msg("message delivered to bus")
}
