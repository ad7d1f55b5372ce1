package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"toolcost/internal/connectors"
	"toolcost/internal/listener"
	"toolcost/internal/pipeline"
)

var (
	mailProvider  string
	mailLabel     string
	mailMax       int
	mailMessageID string
	mailBatch     int
)

var mailFetchCmd = &cobra.Command{
	Use:   "mail:fetch",
	Short: "Download new messages into the raw mail store",
	RunE:  runMailFetch,
}

var mailProcessCmd = &cobra.Command{
	Use:   "mail:process",
	Short: "Extract quotations from fetched messages",
	RunE:  runMailProcess,
}

var mailListenCmd = &cobra.Command{
	Use:   "mail:listen",
	Short: "Poll the mailbox and refresh comparisons until interrupted",
	RunE:  runMailListen,
}

func init() {
	mailFetchCmd.Flags().StringVar(&mailProvider, "provider", "", "gmail|imap (default MAIL_LISTENER_PROVIDER)")
	mailFetchCmd.Flags().StringVar(&mailLabel, "label", "", "Mailbox or label (default MAIL_LISTENER_LABEL)")
	mailFetchCmd.Flags().IntVar(&mailMax, "max", 50, "Maximum messages to fetch")

	mailProcessCmd.Flags().StringVar(&mailProvider, "provider", "", "Only process mail of this provider")
	mailProcessCmd.Flags().StringVar(&mailMessageID, "message-id", "", "Process one message by Message-ID")
	mailProcessCmd.Flags().IntVar(&mailBatch, "batch", 20, "Batch size")
}

func provider() string {
	if p := strings.TrimSpace(mailProvider); p != "" {
		return strings.ToLower(p)
	}
	return strings.ToLower(cfg.MailListenerProvider)
}

func runMailFetch(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, err := listener.NewMailConnector(ctx, provider(), cfg)
	if err != nil {
		return err
	}
	label := mailLabel
	if label == "" {
		label = cfg.MailListenerLabel
	}
	result, err := connectors.NewFetchService(db, cfg.RawMailDir, conn, logger).FetchAndStore(ctx, label, mailMax)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "mail fetch done provider=%s fetched=%d stored=%d unchanged=%d\n",
		provider(), result.Fetched, result.Stored, result.Unchanged)
	return nil
}

func runMailProcess(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	processor := pipeline.NewProcessingService(db, cfg, logger)
	if strings.TrimSpace(mailMessageID) != "" {
		res, err := processor.ProcessByProviderMessageID(provider(), mailMessageID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "processed email id=%d quotations=%d\n", res.EmailID, res.Quotations)
		return nil
	}

	emails, quotations, err := processor.ProcessPending(mailBatch, strings.ToLower(strings.TrimSpace(mailProvider)))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "processed pending emails=%d quotations=%d\n", emails, quotations)
	return nil
}

func runMailListen(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return listener.NewService(db, cfg, logger).Run(ctx)
}
