package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/wooyoungkug/photocafe-sub007/app"
	"github.com/wooyoungkug/photocafe-sub007/internal/pricing"
)

var quoteFlags struct {
	subject       string
	specification string
	client        string
	quantity      int
	colorMode     string
	side          string
	pages         int
	measure       string
	options       []string
	asJSON        bool
}

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price one line item against the configured database",
	Args:  cobra.NoArgs,
	RunE:  runQuote,
}

func init() {
	f := quoteCmd.Flags()
	f.StringVar(&quoteFlags.subject, "subject", "", "pricing subject id [REQUIRED]")
	f.StringVar(&quoteFlags.specification, "specification", "", "specification id")
	f.StringVar(&quoteFlags.client, "client", "", "client id; omit for an anonymous quote")
	f.IntVarP(&quoteFlags.quantity, "quantity", "q", 1, "ordered quantity")
	f.StringVar(&quoteFlags.colorMode, "color", "", "color mode (four, six)")
	f.StringVar(&quoteFlags.side, "side", "", "print side (single, double)")
	f.IntVar(&quoteFlags.pages, "pages", 0, "page count for per-page subjects")
	f.StringVar(&quoteFlags.measure, "measure", "", "measure for range-priced subjects, e.g. 1.5")
	f.StringSliceVar(&quoteFlags.options, "option", nil, "selected option as kind=id, repeatable")
	f.BoolVar(&quoteFlags.asJSON, "json", false, "print the full result as JSON")
	_ = quoteCmd.MarkFlagRequired("subject")
}

func runQuote(cmd *cobra.Command, args []string) error {
	req, err := quoteRequest()
	if err != nil {
		return err
	}

	application, err := app.New()
	if err != nil {
		return err
	}
	defer application.Close()

	result, err := application.PricingService.Calculate(cmd.Context(), req)
	if err != nil {
		return err
	}

	if quoteFlags.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printQuote(cmd.OutOrStdout(), result)
}

func quoteRequest() (pricing.Request, error) {
	req := pricing.Request{
		Quantity: quoteFlags.quantity,
		Attributes: pricing.LineAttributes{
			ColorMode: pricing.ColorMode(quoteFlags.colorMode),
			Side:      pricing.Side(quoteFlags.side),
			PageCount: quoteFlags.pages,
		},
	}

	var err error
	if req.SubjectID, err = uuid.Parse(quoteFlags.subject); err != nil {
		return req, fmt.Errorf("--subject: %w", err)
	}
	if quoteFlags.specification != "" {
		if req.SpecificationID, err = uuid.Parse(quoteFlags.specification); err != nil {
			return req, fmt.Errorf("--specification: %w", err)
		}
	}
	if quoteFlags.client != "" {
		if req.ClientID, err = uuid.Parse(quoteFlags.client); err != nil {
			return req, fmt.Errorf("--client: %w", err)
		}
	}
	if quoteFlags.measure != "" {
		measure, err := decimal.NewFromString(quoteFlags.measure)
		if err != nil {
			return req, fmt.Errorf("--measure: %w", err)
		}
		req.Attributes.Measure = &measure
	}
	for _, raw := range quoteFlags.options {
		kind, id, ok := strings.Cut(raw, "=")
		if !ok {
			return req, fmt.Errorf("--option %q: want kind=id", raw)
		}
		optionID, err := uuid.Parse(id)
		if err != nil {
			return req, fmt.Errorf("--option %q: %w", raw, err)
		}
		req.Options = append(req.Options, pricing.OptionSelection{Kind: pricing.OptionKind(kind), ID: optionID})
	}
	return req, nil
}

func printQuote(out io.Writer, result pricing.Result) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "source\t%s\n", result.AppliedPolicy.Source)
	fmt.Fprintf(w, "variant\t%s\n", result.AppliedPolicy.Variant)
	fmt.Fprintf(w, "base price\t%s\n", result.BasePrice)
	for _, option := range result.Options {
		fmt.Fprintf(w, "  %s %s\t%s\n", option.Kind, option.ID, option.Delta)
	}
	fmt.Fprintf(w, "unit price\t%s\n", result.UnitPrice)
	if result.DiscountRate > 0 {
		fmt.Fprintf(w, "discount\t%d%% (%s)\n", result.DiscountRate, result.DiscountAmount)
	}
	fmt.Fprintf(w, "final unit price\t%s\n", result.FinalUnitPrice)
	fmt.Fprintf(w, "quantity\t%d\n", result.Quantity)
	fmt.Fprintf(w, "total\t%s\n", result.TotalPrice)
	return w.Flush()
}
