// Package stripeclient wraps the Stripe SDK for per-seat subscription billing.
package stripeclient

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/customer"
	"github.com/stripe/stripe-go/v75/subscription"
)

// Client holds billing configuration.
type Client struct {
	apiKey      string
	seatPriceID string
}

// NewClient builds the client.
func NewClient(apiKey, seatPriceID string) *Client {
	return &Client{apiKey: apiKey, seatPriceID: seatPriceID}
}

// CreateCustomer registers the agency with Stripe.
// The Stripe Go SDK v75 does not accept a context, so ctx is unused.
func (c *Client) CreateCustomer(ctx context.Context, agencyID, name, email string) (*stripe.Customer, error) {
	stripe.Key = c.apiKey
	params := &stripe.CustomerParams{
		Name:  stripe.String(name),
		Email: stripe.String(email),
	}
	params.AddMetadata("agency_id", agencyID)
	return customer.New(params)
}

// CreateSeatSubscription subscribes the customer to the per-seat price.
func (c *Client) CreateSeatSubscription(ctx context.Context, customerID string, seats int64, idempotencyKey string) (*stripe.Subscription, error) {
	stripe.Key = c.apiKey
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(c.seatPriceID), Quantity: stripe.Int64(seats)},
		},
	}
	params.SetIdempotencyKey(idempotencyKey)
	return subscription.New(params)
}

// UpdateSeatQuantity changes the subscribed seat count; Stripe handles
// proration.
func (c *Client) UpdateSeatQuantity(ctx context.Context, subscriptionID string, seats int64) (*stripe.Subscription, error) {
	stripe.Key = c.apiKey

	sub, err := subscription.Get(subscriptionID, nil)
	if err != nil {
		return nil, err
	}
	if len(sub.Items.Data) == 0 {
		return nil, fmt.Errorf("subscription %s has no items", subscriptionID)
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{ID: stripe.String(sub.Items.Data[0].ID), Quantity: stripe.Int64(seats)},
		},
	}
	return subscription.Update(subscriptionID, params)
}
