package report

import (
	"fmt"
	"time"
)

// Mail is what the mail collaborator needs to deliver one report.
type Mail struct {
	To             string
	Subject        string
	Body           string
	AttachmentPath string
}

const mailBodyTemplate = `Hello!

Your sales call analysis report is ready. Please find the detailed analysis attached.

Meeting: %s
Analysis Date: %s

The report includes:
- Overall performance score
- Category-specific scores and feedback
- Conversation highlights
- Missed opportunities
- Actionable improvement suggestions
- Full transcript

Best regards,
Your Sales Analysis System
`

// NewReportMail builds the delivery message for a rendered report.
func NewReportMail(to, meetingTitle, artifactPath string, now time.Time) Mail {
	return Mail{
		To:             to,
		Subject:        fmt.Sprintf("Sales Call Analysis Report - %s", meetingTitle),
		Body:           fmt.Sprintf(mailBodyTemplate, meetingTitle, now.Format(generatedAtLayout)),
		AttachmentPath: artifactPath,
	}
}
