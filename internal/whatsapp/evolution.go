package whatsapp

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/territorio/internal/logging"
)

// EvolutionOpts configures an Evolution client.
type EvolutionOpts struct {
	BaseURL string
	Timeout time.Duration
	Logger  logrus.FieldLogger
}

// Evolution is a Gateway over the Evolution API REST endpoints.
type Evolution struct {
	http *resty.Client
	log  logrus.FieldLogger
}

type sendTextBody struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type sendMediaBody struct {
	Number    string `json:"number"`
	MediaType string `json:"mediatype"`
	MimeType  string `json:"mimetype"`
	Caption   string `json:"caption"`
	Media     string `json:"media"`
}

// NewEvolution builds a client for the Evolution API at opts.BaseURL.
func NewEvolution(opts EvolutionOpts) (*Evolution, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("whatsapp: base URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Evolution{
		http: client,
		log:  logging.Component(opts.Logger, "evolution"),
	}, nil
}

// SendText posts a plain text message.
func (e *Evolution) SendText(ctx context.Context, msg Message) error {
	return e.post(ctx, "/message/sendText/", msg, sendTextBody{
		Number: msg.Target,
		Text:   msg.Text,
	})
}

// SendImage posts an image with msg.Text as caption.
func (e *Evolution) SendImage(ctx context.Context, msg Message) error {
	if msg.ImageURL == "" {
		return fmt.Errorf("whatsapp: image URL is required")
	}
	return e.post(ctx, "/message/sendMedia/", msg, sendMediaBody{
		Number:    msg.Target,
		MediaType: "image",
		MimeType:  "image/png",
		Caption:   msg.Text,
		Media:     msg.ImageURL,
	})
}

func (e *Evolution) post(ctx context.Context, path string, msg Message, body interface{}) error {
	if msg.Instance == "" {
		return fmt.Errorf("whatsapp: instance is required")
	}
	if msg.APIKey == "" {
		return fmt.Errorf("whatsapp: api key is required")
	}
	if msg.Target == "" {
		return fmt.Errorf("whatsapp: target is required")
	}

	log := e.log.WithFields(logrus.Fields{"instance": msg.Instance, "target": msg.Target, "path": path})
	resp, err := e.http.R().
		SetContext(ctx).
		SetHeader("apikey", msg.APIKey).
		SetPathParam("instance", msg.Instance).
		SetBody(body).
		Post(path + "{instance}")
	if err != nil {
		log.WithError(err).Error("send failed")
		return fmt.Errorf("whatsapp: send to %s: %w", msg.Target, err)
	}
	if resp.IsError() {
		log.WithField("status", resp.StatusCode()).Error("send rejected")
		return fmt.Errorf("whatsapp: send to %s: status %d", msg.Target, resp.StatusCode())
	}
	log.Debug("message sent")
	return nil
}
