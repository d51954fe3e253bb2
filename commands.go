package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tanpawarit/vendor-desk-assistant/agent/agents/orchestrator"
	"github.com/tanpawarit/vendor-desk-assistant/agent/cache"
	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
	"github.com/tanpawarit/vendor-desk-assistant/agent/records"
	configx "github.com/tanpawarit/vendor-desk-assistant/pkg/config"
	logx "github.com/tanpawarit/vendor-desk-assistant/pkg/logger"
	"github.com/tanpawarit/vendor-desk-assistant/pkg/repository"
	"github.com/tanpawarit/vendor-desk-assistant/server"
	"github.com/tanpawarit/vendor-desk-assistant/tui"
)

/* -------------------------------- serve -------------------------------- */

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the resource store API with metrics and websocket chat",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dbCfg, err := configx.New[repository.Config]("DB")
		if err != nil {
			return err
		}
		serverCfg, err := configx.New[server.Config]("SERVER")
		if err != nil {
			return err
		}
		assistantCfg, err := loadAssistantConfig()
		if err != nil {
			return err
		}
		transcripts, err := newTranscriptStore()
		if err != nil {
			return err
		}

		repo, err := repository.Open(ctx, *dbCfg)
		if err != nil {
			return fmt.Errorf("opening repository: %w", err)
		}
		defer repo.Close()

		orch, err := orchestrator.New(repo, assistantCfg)
		if err != nil {
			return err
		}
		chat := server.NewChatHandler(repo, orch,
			server.WithReplyDelay(assistantCfg.ReplyDelay),
			server.WithTranscripts(transcripts),
			server.WithOriginPatterns(originPatterns(serverCfg.AllowedOrigins)),
		)

		srv, err := server.New(*serverCfg, repo, server.WithChat(chat))
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	},
}

// originPatterns strips schemes; websocket origin patterns match host only.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(o), "https://"), "http://")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

/* ----------------------------- chat / ask ----------------------------- */

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat assistant",
	RunE: func(cmd *cobra.Command, args []string) error {
		logFile, _ := cmd.Flags().GetString("log-file")
		sessionID, _ := cmd.Flags().GetString("session")

		var sink io.Writer = io.Discard
		if logFile != "" {
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("opening log file: %w", err)
			}
			defer f.Close()
			sink = f
		}
		logCfg, err := configx.New[logx.Config]("LOG")
		if err != nil {
			return err
		}
		logx.InitWriter(sink, logx.Config{Debug: logCfg.Debug})

		store, err := newEntityStore()
		if err != nil {
			return err
		}
		session, err := openSession(cmd.Context(), store, sessionID)
		if err != nil {
			return err
		}
		log.Info().Str("session_id", session.ID()).Msg("chat started")
		return tui.Run(cmd.Context(), session)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send one message to the assistant and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")

		store, err := newEntityStore()
		if err != nil {
			return err
		}
		session, err := openSession(cmd.Context(), store, sessionID)
		if err != nil {
			return err
		}
		reply, err := session.Send(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
		return nil
	},
}

func init() {
	chatCmd.Flags().String("log-file", "", "write logs to this file instead of discarding them")
	chatCmd.Flags().String("session", "", "resume the transcript stored under this id")
	askCmd.Flags().String("session", "", "resume the transcript stored under this id")
}

/* ------------------------------- records ------------------------------- */

func newManager() (*records.Manager, error) {
	store, err := newEntityStore()
	if err != nil {
		return nil, err
	}
	return records.NewManager(store, cache.New())
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

var vendorCmd = &cobra.Command{
	Use:   "vendor",
	Short: "Manage vendors",
}

var vendorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List vendors",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		if err := m.Refresh(cmd.Context()); err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tADDRESS\tPHONE\tEMAIL")
		for _, v := range m.Cache().Vendors() {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", v.ID, v.Name, v.Address, v.Phone, v.Email)
		}
		return w.Flush()
	},
}

func vendorFieldsFromFlags(cmd *cobra.Command) contractx.VendorFields {
	name, _ := cmd.Flags().GetString("name")
	address, _ := cmd.Flags().GetString("address")
	phone, _ := cmd.Flags().GetString("phone")
	email, _ := cmd.Flags().GetString("email")
	return contractx.VendorFields{Name: name, Address: address, Phone: phone, Email: email}
}

var vendorAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a vendor",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		v, err := m.CreateVendor(cmd.Context(), vendorFieldsFromFlags(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Vendor created: %s (id %d)\n", v.Name, v.ID)
		return nil
	},
}

var vendorUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Replace a vendor's fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		m, err := newManager()
		if err != nil {
			return err
		}
		v, err := m.UpdateVendor(cmd.Context(), id, vendorFieldsFromFlags(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Vendor updated: %s (id %d)\n", v.Name, v.ID)
		return nil
	},
}

var vendorDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a vendor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		m, err := newManager()
		if err != nil {
			return err
		}
		if err := m.DeleteVendor(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Vendor %d deleted.\n", id)
		return nil
	},
}

var poCmd = &cobra.Command{
	Use:   "po",
	Short: "Manage purchase orders",
}

var poListCmd = &cobra.Command{
	Use:   "list",
	Short: "List purchase orders, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		if err := m.Refresh(cmd.Context()); err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPO\tAMOUNT\tVENDOR\tSTATUS")
		for _, o := range m.Cache().Orders() {
			fmt.Fprintf(w, "%d\t%d\t%g\t%s\t%s\n", o.ID, o.PONumber, o.Amount, o.Vendor, o.Status.OrDefault())
		}
		return w.Flush()
	},
}

func orderFieldsFromFlags(cmd *cobra.Command) contractx.OrderFields {
	number, _ := cmd.Flags().GetInt("number")
	amount, _ := cmd.Flags().GetFloat64("amount")
	vendor, _ := cmd.Flags().GetString("vendor")
	status, _ := cmd.Flags().GetString("status")
	return contractx.OrderFields{
		PONumber: number,
		Amount:   amount,
		Vendor:   vendor,
		Status:   contractx.Status(status),
	}
}

var poCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a purchase order",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		o, err := m.CreateOrder(cmd.Context(), orderFieldsFromFlags(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "PO created: #%d (id %d)\n", o.PONumber, o.ID)
		return nil
	},
}

var poReviseCmd = &cobra.Command{
	Use:   "revise <id>",
	Short: "Replace a purchase order's number, amount, vendor and status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		m, err := newManager()
		if err != nil {
			return err
		}
		o, err := m.ReviseOrder(cmd.Context(), id, orderFieldsFromFlags(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "PO revised: #%d (id %d, %s)\n", o.PONumber, o.ID, o.Status.OrDefault())
		return nil
	},
}

var poArchiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Archive a purchase order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		m, err := newManager()
		if err != nil {
			return err
		}
		if err := m.ArchiveOrder(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "PO %d archived.\n", id)
		return nil
	},
}

var poDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a purchase order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		m, err := newManager()
		if err != nil {
			return err
		}
		if err := m.DeleteOrder(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "PO %d deleted.\n", id)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{vendorAddCmd, vendorUpdateCmd} {
		c.Flags().String("name", "", "vendor name (required)")
		c.Flags().String("address", "", "vendor address")
		c.Flags().String("phone", "", "vendor phone")
		c.Flags().String("email", "", "vendor email")
	}
	vendorCmd.AddCommand(vendorListCmd, vendorAddCmd, vendorUpdateCmd, vendorDeleteCmd)

	for _, c := range []*cobra.Command{poCreateCmd, poReviseCmd} {
		c.Flags().Int("number", 0, "purchase order number")
		c.Flags().Float64("amount", 0, "amount")
		c.Flags().String("vendor", "", "vendor name")
		c.Flags().String("status", "", "Open, Released, Closed or Archived")
	}
	poCmd.AddCommand(poListCmd, poCreateCmd, poReviseCmd, poArchiveCmd, poDeleteCmd)

	rootCmd.AddCommand(serveCmd, chatCmd, askCmd, vendorCmd, poCmd)
}
