package auditsvc

import (
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/mwalimuhq/ngao/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

type sendgridService struct {
	key        string
	from       *sgmail.Email
	to         []*sgmail.Email
	subjPrefix string
	logger     core.Logger
}

var _ core.AuditService = (*sendgridService)(nil)

// NewSendgridService alerts the configured admin addresses on high and
// critical events. Lower severities are left to the other sinks.
func NewSendgridService(conf *core.Config, logger core.Logger) *sendgridService {
	from := conf.FromEmail()
	svc := &sendgridService{
		key:        conf.SendgridApiKey,
		from:       sgmail.NewEmail(from.Name, from.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
	for _, addr := range conf.AlertEmails {
		svc.to = append(svc.to, sgmail.NewEmail("", addr))
	}
	return svc
}

func (svc sendgridService) RecordEvents(events ...core.SecurityEvent) {
	if len(svc.to) == 0 {
		return
	}
	for _, ev := range events {
		if !(ev.Severity == core.SeverityHigh || ev.Severity == core.SeverityCritical) {
			continue
		}
		ev := ev
		go svc.send(ev)
	}
}

func (svc sendgridService) prepare(ev core.SecurityEvent) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = fmt.Sprintf("%sSecurity alert: %s (%s)", svc.subjPrefix, ev.Type, ev.Severity)
	for _, to := range svc.to {
		p.AddTos(to)
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)

	body := fmt.Sprintf(
		"Event: %s\nSeverity: %s\nSubject: %s\nDetails: %s\nTime: %s\nEvent ID: %s\n",
		ev.Type, ev.Severity, ev.UserID, ev.Details, ev.Time.Format("2006-01-02 15:04:05 MST"), ev.ID,
	)
	m.AddContent(sgmail.NewContent("text/plain", body))
	return m
}

func (svc sendgridService) send(ev core.SecurityEvent) {
	req := sendgrid.GetRequest(svc.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(svc.prepare(ev))

	resp, err := sendgrid.API(req)
	if err != nil {
		if svc.logger != nil {
			svc.logger.Error(fmt.Sprintf("audit: sending alert email: %v", err), ev)
		}
		return
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if svc.logger != nil {
			svc.logger.Error(fmt.Sprintf("audit: sending alert email: status %d: %s", resp.StatusCode, resp.Body), ev)
		}
	}
}
