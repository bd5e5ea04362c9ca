package pipeline

import (
	"context"
	"errors"

	"github.com/roomline/chatgate/internal/identity"
	"github.com/roomline/chatgate/internal/reports"
	"github.com/roomline/chatgate/pkg/metrics"
)

// ReportOutcome is the response body for POST /api/report on success.
type ReportOutcome struct {
	Success     bool  `json:"success"`
	ReportsOnIP int64 `json:"reports_on_ip"`
}

// Report runs the abuse-report pipeline and translates its sentinel errors
// into spec section 6's HTTP envelope shapes.
func (p *Pipeline) Report(ctx context.Context, messageID, reportedBrowserID string, reporter identity.Context) (ReportOutcome, Outcome, error) {
	result, err := p.deps.Reports.Report(ctx, messageID, reportedBrowserID, reporter)
	switch {
	case err == nil:
		metrics.ReportsProcessed.Inc()
		if result.Shadowbanned {
			metrics.ShadowbansIssued.WithLabelValues("report_threshold").Inc()
		}
		return ReportOutcome{Success: true, ReportsOnIP: result.ReportsOnIP}, Outcome{}, nil
	case errors.Is(err, reports.ErrMessageNotFound):
		return ReportOutcome{}, clientError(404, "not_found", "Message not found"), nil
	case errors.Is(err, reports.ErrTampered):
		return ReportOutcome{}, clientError(400, "validation_error", "Reported author does not match message"), nil
	case errors.Is(err, reports.ErrSelfReport):
		return ReportOutcome{}, clientError(400, "validation_error", "Cannot report your own message"), nil
	default:
		return ReportOutcome{}, storeError("failed to process report"), err
	}
}
