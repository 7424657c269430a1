package handler

import (
	"log/slog"
	"net/http"
)

// HandleNightlyTrigger emails an alert for categories that have gone over
// budget.
func (d *Dependencies) HandleNightlyTrigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slog.Info("starting nightly budget check")

	if d.Email == nil || len(d.Recipients) == 0 {
		slog.Warn("no alert recipients configured; skipping budget check")
		w.WriteHeader(http.StatusOK)
		return
	}

	over, err := d.Categories.OverBudget(ctx)
	if err != nil {
		slog.Error("failed to check category budgets", "error", err)
		http.Error(w, "Failed to check category budgets", http.StatusInternalServerError)
		return
	}
	if len(over) == 0 {
		slog.Info("no categories over budget")
		w.WriteHeader(http.StatusOK)
		return
	}

	for _, c := range over {
		slog.Info("category over budget",
			"category_id", c.ID,
			"category", c.Name,
			"budget", c.Budget.StringFixed(2),
			"used", c.BudgetUsed.StringFixed(2))
	}

	if err := d.Email.SendBudgetAlert(ctx, d.Recipients, over); err != nil {
		// The next run reports the same categories again.
		slog.Error("failed to send budget alert", "count", len(over), "error", err)
	} else {
		slog.Info("budget alert sent", "count", len(over))
	}

	slog.Info("nightly budget check complete")
	w.WriteHeader(http.StatusOK)
}
