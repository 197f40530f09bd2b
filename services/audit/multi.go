package auditsvc

import "github.com/mwalimuhq/ngao/core"

type multiService struct {
	sinks []core.AuditService
}

var _ core.AuditService = (*multiService)(nil)

// NewMultiService fans events out to every sink; one broken sink does not
// starve the others.
func NewMultiService(sinks ...core.AuditService) *multiService {
	return &multiService{sinks: sinks}
}

func (svc *multiService) RecordEvents(events ...core.SecurityEvent) {
	for _, sink := range svc.sinks {
		sink.RecordEvents(events...)
	}
}
