package crm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// dealAndContactEvents are the change notifications the sync needs
var dealAndContactEvents = []string{
	"ONCRMDEALUPDATE",
	"ONCRMDEALADD",
	"ONCRMCONTACTUPDATE",
}

// RegisterWebhooks binds the CRM change events to the given handler
// URLs, skipping bindings that already exist. Paths are joined onto
// callbackBase, e.g. callbackBase + /webhook/deal.
func (c *Client) RegisterWebhooks(ctx context.Context, callbackBase string) error {
	existing, err := c.listWebhooks(ctx)
	if err != nil {
		return fmt.Errorf("listing webhook bindings: %w", err)
	}

	for _, event := range dealAndContactEvents {
		handler := callbackBase + handlerPath(event)
		if existing[event] == handler {
			continue
		}
		_, err := c.Call(ctx, "event.bind", map[string]any{
			"event":   event,
			"handler": handler,
		})
		if err != nil {
			return fmt.Errorf("binding %s: %w", event, err)
		}
		c.logger.Info("registered CRM webhook",
			zap.String("event", event),
			zap.String("handler", handler))
	}
	return nil
}

// UnregisterWebhooks removes every binding pointing at callbackBase
func (c *Client) UnregisterWebhooks(ctx context.Context, callbackBase string) error {
	existing, err := c.listWebhooks(ctx)
	if err != nil {
		return fmt.Errorf("listing webhook bindings: %w", err)
	}

	for event, handler := range existing {
		if !strings.HasPrefix(handler, callbackBase) {
			continue
		}
		_, err := c.Call(ctx, "event.unbind", map[string]any{
			"event":   event,
			"handler": handler,
		})
		if err != nil {
			return fmt.Errorf("unbinding %s: %w", event, err)
		}
		c.logger.Info("removed CRM webhook", zap.String("event", event))
	}
	return nil
}

// listWebhooks returns event -> handler for the current bindings
func (c *Client) listWebhooks(ctx context.Context) (map[string]string, error) {
	result, err := c.Call(ctx, "event.get", nil)
	if err != nil {
		return nil, err
	}

	bindings := map[string]string{}
	items, ok := result["result"].([]any)
	if !ok {
		return bindings, nil
	}
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		event := strings.ToUpper(anyToID(m["event"]))
		handler := anyToID(m["handler"])
		if event != "" && handler != "" {
			bindings[event] = handler
		}
	}
	return bindings, nil
}

// handlerPath maps an event to the inbound endpoint that handles it
func handlerPath(event string) string {
	if strings.Contains(event, "CONTACT") {
		return "/webhook/contact"
	}
	return "/webhook/deal"
}
