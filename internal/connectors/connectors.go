// Package connectors pulls raw quotation mail from a mailbox provider and
// keeps a copy of every message on disk.
package connectors

import (
	"context"

	"toolcost/internal"
)

// MailConnector fetches up to max raw messages from a mailbox label.
type MailConnector interface {
	FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error)
}
