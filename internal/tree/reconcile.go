package tree

import (
	"context"
	"fmt"
)

// ReconcileReport summarizes a reconcile sweep.
type ReconcileReport struct {
	Checked  int      `json:"checked"`
	Repaired []string `json:"repaired,omitempty"`
	Failed   []string `json:"failed,omitempty"`
}

// Reconcile walks the owner's nodes and re-creates content entries that are
// missing from the content store: directories for containers, the metadata
// content for files. It repairs what it can and reports the rest.
func (s *Service) Reconcile(ctx context.Context, owner string) (*ReconcileReport, error) {
	nodes, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{}
	for i := range nodes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		n := &nodes[i]
		report.Checked++

		p := contentPath(n)
		ok, err := s.content.Exists(p)
		if err != nil {
			report.Failed = append(report.Failed, fmt.Sprintf("%s: %v", n.Path, err))
			continue
		}
		if ok {
			continue
		}

		if err := s.materialize(n); err != nil {
			report.Failed = append(report.Failed, fmt.Sprintf("%s: %v", n.Path, err))
			continue
		}
		report.Repaired = append(report.Repaired, n.Path)
	}

	if len(report.Repaired) > 0 || len(report.Failed) > 0 {
		s.log.Info("reconcile finished",
			"owner", owner, "checked", report.Checked,
			"repaired", len(report.Repaired), "failed", len(report.Failed))
	}
	return report, nil
}
