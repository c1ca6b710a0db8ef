package worker

import (
	"github.com/spec-kit/testnet-portal/internal/service"
)

// StartAuditWorker registers the login audit handlers. Delivery runs on the
// session registry's event loop.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
