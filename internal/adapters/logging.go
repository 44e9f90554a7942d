package adapters

import (
	"context"

	"github.com/dmitrijs2005/sessionstate/internal/logging"
)

// LoggingAttribution is an AttributionSink that only logs. Stands in for a
// real analytics SDK in demos and local runs.
type LoggingAttribution struct {
	Log logging.Logger
}

func (a *LoggingAttribution) SetUserAttributes(ctx context.Context, attrs map[string]any) error {
	a.Log.Info(ctx, "attribution attributes updated", "count", len(attrs))
	return nil
}

// LoggingCampaign is a CampaignTrigger that only logs.
type LoggingCampaign struct {
	Log logging.Logger
}

func (c *LoggingCampaign) StartEngagementCampaign(ctx context.Context) error {
	c.Log.Info(ctx, "engagement campaign started")
	return nil
}

func (c *LoggingCampaign) StopEngagementCampaign(ctx context.Context) error {
	c.Log.Info(ctx, "engagement campaign stopped")
	return nil
}
