package smarther

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/sjson"
)

// RegisterWebhook subscribes endpointURL to status-change notifications for a
// plant. The portal confirms the subscription with a 201 and the assigned
// subscription id.
func (c *AuthorizedClient) RegisterWebhook(ctx context.Context, plantID, endpointURL string) (*SubscriptionInfo, error) {
	body, err := sjson.SetBytes([]byte(`{}`), "EndPointUrl", endpointURL)
	if err != nil {
		return nil, fmt.Errorf("failed to encode subscription request: %w", err)
	}

	path := fmt.Sprintf("/plants/%s/subscription", url.PathEscape(plantID))
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var info SubscriptionInfo
	if err := c.do(req, http.StatusCreated, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// UnregisterWebhook removes a notification subscription from a plant.
func (c *AuthorizedClient) UnregisterWebhook(ctx context.Context, plantID, subscriptionID string) error {
	path := fmt.Sprintf("/plants/%s/subscription/%s", url.PathEscape(plantID), url.PathEscape(subscriptionID))
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, http.StatusOK, nil)
}

// GetWebhooks lists every notification subscription held by the authorized
// account across all plants.
func (c *AuthorizedClient) GetWebhooks(ctx context.Context) ([]SubscriptionInfo, error) {
	var subscriptions []SubscriptionInfo
	if err := c.getJSON(ctx, "/subscription", &subscriptions); err != nil {
		return nil, err
	}
	return subscriptions, nil
}
