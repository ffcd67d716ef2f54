package validator

import (
	"context"
	"encoding/json"

	"github.com/danielpatrickdp/aisp-verify/internal/logging"
)

// logRun appends the result to the run log. A failed write is logged and
// does not change the result.
func (v *Validator) logRun(ctx context.Context, res *Result) {
	if v.runLog == nil {
		return
	}
	entry := logging.RunEntry{
		RunID:       res.RunID,
		Document:    res.Document,
		ContentHash: res.ContentHash,
		Valid:       res.Valid,
		Tier:        res.Tier,
		Delta:       res.Delta,
		Ambiguity:   res.Ambiguity,
		SoftScore:   res.SoftScore,
	}
	if res.Decision != nil {
		entry.Reason = res.Decision.Reason
		if len(res.Decision.VetoSignals) > 0 {
			if raw, err := json.Marshal(res.Decision.VetoSignals); err == nil {
				entry.VetoesJSON = string(raw)
			}
		}
	}
	if _, err := logging.LogRun(context.WithoutCancel(ctx), v.runLog, entry); err != nil {
		v.logger.Warn("run log write failed", "run_id", res.RunID, "error", err)
	}
}
