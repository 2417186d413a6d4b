package main

import (
	"context"

	donationservice "givers/internal/donation/service"
	id "givers/pkg/domain"
)

// totalsProxy breaks the construction cycle between the project service
// (which reads the live monthly total) and the donation service (which gates
// donations on project status). The project service is built against the
// proxy; the donation service is attached once it exists.
type totalsProxy struct {
	svc *donationservice.Service
}

func (p *totalsProxy) CurrentMonthlyTotal(ctx context.Context, projectID id.ProjectID) (id.Money, error) {
	return p.svc.CurrentMonthlyTotal(ctx, projectID)
}
