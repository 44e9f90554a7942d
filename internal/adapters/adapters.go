// Package adapters defines the contracts of the dependent subsystems the
// state manager fans out to: attribution/targeting, engagement campaigns,
// and authenticated-request headers.
//
// All adapter calls are best-effort from the manager's point of view:
// failures are logged at the call site and never surface to the caller of a
// manager operation, and never roll back committed state.
package adapters

import "context"

// AttributionSink receives user attributes for audience segmentation
// (analytics / monetization targeting).
type AttributionSink interface {
	// SetUserAttributes replaces the tracked attribute set; nil clears it.
	SetUserAttributes(ctx context.Context, attrs map[string]any) error
}

// CampaignTrigger starts and stops the engagement (re-activation) campaign,
// typically a scheduled sequence of local notifications.
type CampaignTrigger interface {
	StartEngagementCampaign(ctx context.Context) error
	StopEngagementCampaign(ctx context.Context) error
}

// RequestAuthSink propagates the session token to whatever performs outbound
// authenticated calls. An empty token clears the credential.
type RequestAuthSink interface {
	SetBearerToken(token string) error
}
