package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/smallbiznis/opsdesk/internal/config"
	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
	"github.com/smallbiznis/opsdesk/internal/invoice/render"
	"github.com/smallbiznis/opsdesk/internal/invoiceclient"
	formdomain "github.com/smallbiznis/opsdesk/internal/invoiceform/domain"
	"github.com/smallbiznis/opsdesk/internal/invoiceform/formfile"
	formservice "github.com/smallbiznis/opsdesk/internal/invoiceform/service"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// runtime is what every command needs: configuration, a logger and an API
// client that doubles as the form gateway.
type runtime struct {
	cfg    config.Config
	log    *zap.Logger
	client *invoiceclient.Client
}

func newRuntime(c *cli.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if url := strings.TrimSpace(c.String("api-url")); url != "" {
		cfg.Client.BaseURL = strings.TrimRight(url, "/")
	}
	if timeout := c.Duration("timeout"); timeout > 0 {
		cfg.Client.Timeout = timeout
	}

	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	log, err := zcfg.Build()
	if err != nil {
		return nil, err
	}

	var opts []invoiceclient.Option
	if actor := c.String("actor"); actor != "" {
		opts = append(opts, invoiceclient.WithActor(actor))
	}
	return &runtime{
		cfg:    cfg,
		log:    log,
		client: invoiceclient.New(cfg.Client, log, opts...),
	}, nil
}

func (r *runtime) reconciler() *formservice.Reconciler {
	return formservice.NewReconciler(r.client, r.log, nil)
}

func fileFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "file",
		Aliases:  []string{"f"},
		Usage:    "YAML invoice form",
		Required: true,
	}
}

func invoiceID(c *cli.Context) (string, error) {
	id := strings.TrimSpace(c.Args().First())
	if id == "" {
		return "", cli.Exit("invoice id is required", 2)
	}
	return id, nil
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "create an invoice from a YAML form",
		Flags: []cli.Flag{fileFlag()},
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			file, err := formfile.Load(c.String("file"))
			if err != nil {
				return err
			}

			editor := formservice.NewCreateEditor(rt.reconciler(), file.Defaults(rt.cfg.Invoice), time.Now())
			if status := strings.TrimSpace(file.Status); status != "" {
				if err := editor.Update(func(f *formdomain.Form) error {
					f.Status = strings.ToLower(status)
					return nil
				}); err != nil {
					return err
				}
			}
			return saveAndPrint(c.Context, c.App.Writer, editor)
		},
	}
}

func applyCommand() *cli.Command {
	return &cli.Command{
		Name:      "apply",
		Usage:     "apply a YAML form to an existing invoice",
		ArgsUsage: "ID",
		Flags:     []cli.Flag{fileFlag()},
		Action: func(c *cli.Context) error {
			id, err := invoiceID(c)
			if err != nil {
				return err
			}
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			file, err := formfile.Load(c.String("file"))
			if err != nil {
				return err
			}

			editor, err := formservice.OpenEditor(c.Context, rt.reconciler(), id, formdomain.ModeEdit)
			if err != nil {
				return err
			}
			if err := editor.Update(func(f *formdomain.Form) error {
				file.ApplyTo(f)
				return nil
			}); err != nil {
				return err
			}
			return saveAndPrint(c.Context, c.App.Writer, editor)
		},
	}
}

func saveAndPrint(ctx context.Context, w io.Writer, editor *formservice.Editor) error {
	if errs := editor.Validate(); !errs.Valid() {
		return errs
	}
	saved, err := editor.Save(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "saved invoice %s\n", saved.ID)
	return printTotals(w, editor.Totals())
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "print an invoice with its line items and totals",
		ArgsUsage: "ID",
		Action: func(c *cli.Context) error {
			id, err := invoiceID(c)
			if err != nil {
				return err
			}
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			editor, err := formservice.OpenEditor(c.Context, rt.reconciler(), id, formdomain.ModeView)
			if err != nil {
				return err
			}
			return printInvoice(c.App.Writer, editor.Record(), editor.Totals())
		},
	}
}

func payCommand() *cli.Command {
	return &cli.Command{
		Name:      "pay",
		Usage:     "record a payment against an invoice",
		ArgsUsage: "ID",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "amount", Usage: "payment amount", Required: true},
			&cli.StringFlag{Name: "method", Usage: "payment method"},
			&cli.StringFlag{Name: "reference", Usage: "payment reference"},
		},
		Action: func(c *cli.Context) error {
			id, err := invoiceID(c)
			if err != nil {
				return err
			}
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			payment, err := rt.client.RecordPayment(c.Context, id, invoicedomain.RecordPaymentRequest{
				Amount:    c.Float64("amount"),
				Method:    c.String("method"),
				Reference: c.String("reference"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "recorded payment %s of %.2f\n", payment.ID, payment.Amount)
			return nil
		},
	}
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "render an invoice to HTML or PDF",
		ArgsUsage: "ID",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file (.html or .pdf)", Required: true},
		},
		Action: func(c *cli.Context) error {
			id, err := invoiceID(c)
			if err != nil {
				return err
			}
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			inv, err := rt.client.FetchInvoice(c.Context, id)
			if err != nil {
				return err
			}
			if inv == nil {
				return formdomain.ErrInvoiceNotFound
			}

			output := c.String("output")
			body, err := renderInvoice(render.NewInput(render.TemplateFromBranding(rt.cfg.Branding), inv), output)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, body, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "wrote %s\n", output)
			return nil
		},
	}
}

func renderInvoice(input render.RenderInput, output string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".pdf":
		return render.NewPDFRenderer().RenderPDF(input)
	case ".html", ".htm":
		html, err := render.NewRenderer().RenderHTML(input)
		return []byte(html), err
	default:
		return nil, cli.Exit("output must end in .html or .pdf", 2)
	}
}

func printInvoice(w io.Writer, inv *invoicedomain.Invoice, totals formdomain.Totals) error {
	number := inv.InvoiceNumber
	if number == "" {
		number = "-"
	}
	fmt.Fprintf(w, "invoice %s  number %s  status %s\n", inv.ID, number, inv.Status)
	fmt.Fprintf(w, "client %s  issued %s  due %s\n\n", inv.ClientID, inv.InvoiceDate, inv.DueDate)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDESCRIPTION\tQTY\tUNIT\tAMOUNT")
	for _, item := range inv.LineItems {
		fmt.Fprintf(tw, "%s\t%s\t%g\t%.2f\t%.2f\n", item.ID, item.Description, item.Quantity, item.UnitPrice, item.Amount)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return printTotals(w, totals)
}

func printTotals(w io.Writer, t formdomain.Totals) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "subtotal\t%.2f\t\n", t.Subtotal)
	fmt.Fprintf(tw, "tax\t%.2f\t\n", t.TaxAmount)
	fmt.Fprintf(tw, "total\t%.2f\t\n", t.Total)
	fmt.Fprintf(tw, "paid\t%.2f\t\n", t.AmountPaid)
	fmt.Fprintf(tw, "balance due\t%.2f\t\n", t.BalanceDue)
	return tw.Flush()
}
