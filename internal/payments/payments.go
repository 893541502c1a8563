// Package payments receives Stripe webhook events and applies their billing
// outcomes: plan changes, capacity pack purchases, and subscription status
// transitions driven by payment success or failure.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v81"

	"github.com/jmwangi/schoolgrid/internal/limits"
	"github.com/jmwangi/schoolgrid/internal/subscription"
)

// Checkout metadata keys. Set on the Stripe checkout session when it is
// created so the completed event can be routed back to the school.
const (
	MetaSchoolID = "schoolId"
	MetaKind     = "kind"
	MetaPlanID   = "planId"
	MetaPackType = "packType"
	MetaPackQty  = "packQty"
)

// Checkout kinds.
const (
	KindPlan = "plan"
	KindPack = "pack"
)

// Subscriber applies billing outcomes to a school's subscription.
// *subscription.Service satisfies this.
type Subscriber interface {
	ChangePlan(ctx context.Context, schoolID, planID string) (*subscription.Subscription, error)
	AppendPack(ctx context.Context, schoolID string, pack limits.Pack) (*subscription.Subscription, error)
	SetStatus(ctx context.Context, schoolID string, status subscription.Status) (*subscription.Subscription, error)
}

// Processor turns verified Stripe events into subscription changes.
type Processor struct {
	subs Subscriber
}

// NewProcessor creates a payment event processor.
func NewProcessor(subs Subscriber) *Processor {
	return &Processor{subs: subs}
}

// Process applies one verified Stripe event. Unknown event types are ignored
// so the endpoint can be subscribed to a broad event set without churn.
func (p *Processor) Process(ctx context.Context, event *stripe.Event) error {
	switch string(event.Type) {
	case "checkout.session.completed":
		return p.handleCheckoutCompleted(ctx, event)
	case "invoice.paid":
		return p.setStatusFromMetadata(ctx, event, subscription.StatusActive)
	case "invoice.payment_failed":
		return p.setStatusFromMetadata(ctx, event, subscription.StatusPastDue)
	case "customer.subscription.deleted":
		return p.setStatusFromMetadata(ctx, event, subscription.StatusCancelled)
	default:
		return nil
	}
}

func (p *Processor) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("payments: parse checkout session: %w", err)
	}

	schoolID := session.Metadata[MetaSchoolID]
	if schoolID == "" {
		return fmt.Errorf("payments: checkout session %s missing schoolId metadata", session.ID)
	}

	switch session.Metadata[MetaKind] {
	case KindPlan:
		planID := session.Metadata[MetaPlanID]
		if planID == "" {
			return fmt.Errorf("payments: plan checkout for %s missing planId", schoolID)
		}
		_, err := p.subs.ChangePlan(ctx, schoolID, planID)
		return err

	case KindPack:
		packType := limits.Resource(session.Metadata[MetaPackType])
		qty, err := strconv.ParseUint(session.Metadata[MetaPackQty], 10, 64)
		if err != nil {
			return fmt.Errorf("payments: pack checkout for %s has bad qty: %w", schoolID, err)
		}
		pack := limits.Pack{
			Type:  packType,
			Qty:   qty,
			Price: limits.FormatCents(session.AmountTotal),
		}
		_, err = p.subs.AppendPack(ctx, schoolID, pack)
		return err

	default:
		return fmt.Errorf("payments: checkout session %s has unknown kind %q", session.ID, session.Metadata[MetaKind])
	}
}

// setStatusFromMetadata reads the school from the event object's metadata.
// Both Stripe invoices and subscriptions carry the metadata we set at
// checkout time.
func (p *Processor) setStatusFromMetadata(ctx context.Context, event *stripe.Event, status subscription.Status) error {
	var obj struct {
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		return fmt.Errorf("payments: parse event object: %w", err)
	}
	schoolID := obj.Metadata[MetaSchoolID]
	if schoolID == "" {
		// Not one of ours; Stripe sends events for every object on the account.
		return nil
	}
	_, err := p.subs.SetStatus(ctx, schoolID, status)
	return err
}
