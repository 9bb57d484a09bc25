package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ehr/medledger/internal/domain/billing"
	"github.com/ehr/medledger/internal/domain/patient"
	"github.com/ehr/medledger/internal/intake"
	"github.com/ehr/medledger/internal/platform/apperr"
	"github.com/ehr/medledger/internal/platform/export"
)

func intakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "intake",
		Short: "Register a patient interactively, quote the bill and take payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			out := cmd.OutOrStdout()
			return withApp(ctx, func(a *app) error {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				fields, err := intake.RunLines(scanner, out, intake.NewSession(a.directory))
				if err != nil {
					return err
				}
				p, err := a.registry.Create(ctx, fields, a.directory)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\nRegistered %s\n\n", p)
				_, err = quoteAndSettle(ctx, a, p.ID, scanner, out, "")
				return err
			})
		},
	}
}

func patientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "Inspect the patient registry",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			sortBy, _ := cmd.Flags().GetString("sort")
			search, _ := cmd.Flags().GetString("search")
			if sortBy != "" && sortBy != "age" && sortBy != "name" {
				return fmt.Errorf("--sort must be age or name, got %q", sortBy)
			}
			return withApp(contextOf(cmd), func(a *app) error {
				patients := a.registry.All()
				if search != "" {
					patients = patient.FilterByName(patients, search)
				}
				switch sortBy {
				case "age":
					patients = patient.SortByAge(patients)
				case "name":
					patients = patient.SortByName(patients)
				}
				printPatients(cmd.OutOrStdout(), patients)
				return nil
			})
		},
	}
	listCmd.Flags().String("sort", "", "Order by age or name")
	listCmd.Flags().String("search", "", "Case-insensitive name substring")
	cmd.AddCommand(listCmd)

	return cmd
}

func printPatients(w io.Writer, patients []*patient.Patient) {
	if len(patients) == 0 {
		fmt.Fprintln(w, "No patients in the system.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tAGE\tURGENT\tSPECIALIST\tDOCTOR\tINSURANCE")
	for _, p := range patients {
		doc := "-"
		if p.AssignedDoctor != nil {
			doc = p.AssignedDoctor.ID + " " + p.AssignedDoctor.Name
		}
		ins := "none"
		if p.HasInsurance {
			ins = string(p.InsuranceType)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Age,
			patient.FormatFlag(p.UrgentCare), patient.FormatFlag(p.SpecialistNeeded), doc, ins)
	}
	tw.Flush()
}

func billingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "billing",
		Short: "Quote bills, take payments and read the payment ledger",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "quote <patient-id>",
		Short: "Show the bill for a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			return withApp(ctx, func(a *app) error {
				q, err := a.engine.QuotePatient(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), q.Display())
				return nil
			})
		},
	})

	payCmd := &cobra.Command{
		Use:   "pay <patient-id>",
		Short: "Quote a patient's bill and record the payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, _ := cmd.Flags().GetString("method")
			ctx := contextOf(cmd)
			return withApp(ctx, func(a *app) error {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				_, err := quoteAndSettle(ctx, a, args[0], scanner, cmd.OutOrStdout(), method)
				return err
			})
		},
	}
	payCmd.Flags().String("method", "", "cash or card; prompted for when omitted")
	cmd.AddCommand(payCmd)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Print the payment ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, _ := cmd.Flags().GetString("patient")
			ctx := contextOf(cmd)
			return withApp(ctx, func(a *app) error {
				var (
					records []billing.PaymentRecord
					err     error
				)
				if patientID != "" {
					records, err = a.engine.HistoryFor(ctx, patientID)
				} else {
					records, err = a.engine.PaymentHistory(ctx)
				}
				printHistory(cmd.OutOrStdout(), records)
				return err
			})
		},
	}
	historyCmd.Flags().String("patient", "", "Only show payments for this patient id")
	cmd.AddCommand(historyCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the payment ledger to a Parquet file",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			ctx := contextOf(cmd)
			return withApp(ctx, func(a *app) error {
				w, err := export.NewLedgerWriter(out)
				if err != nil {
					return err
				}
				n, err := a.engine.Export(ctx, w)
				if cerr := w.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					os.Remove(out)
					return fmt.Errorf("export ledger: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d payment record(s) to %s\n", n, out)
				return nil
			})
		},
	}
	exportCmd.Flags().String("out", "ledger.parquet", "Destination file")
	cmd.AddCommand(exportCmd)

	return cmd
}

func printHistory(w io.Writer, records []billing.PaymentRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No payment history found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATIENT\tSERVICE\tCOST\tTOTAL\tDISCOUNTED\tMETHOD\tDATE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", r.PatientID, r.Service,
			r.Cost.StringFixed(2), r.Total.StringFixed(2), r.DiscountedTotal.StringFixed(2),
			r.Method, r.Date)
	}
	tw.Flush()
}

// quoteAndSettle quotes the patient's bill and records the payment. With an
// empty method the user is asked until they name an accepted one.
func quoteAndSettle(ctx context.Context, a *app, patientID string, scanner *bufio.Scanner, out io.Writer, method string) ([]billing.PaymentRecord, error) {
	q, err := a.engine.QuotePatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	fmt.Fprint(out, q.Display())
	if len(q.Items) == 0 {
		fmt.Fprintln(out, "Nothing to bill.")
		return nil, nil
	}

	interactive := method == ""
	for {
		if interactive {
			fmt.Fprint(out, "Payment method (cash/card): ")
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return nil, fmt.Errorf("read payment method: %w", err)
				}
				return nil, intake.ErrAborted
			}
			method = strings.TrimSpace(scanner.Text())
		}

		records, err := a.engine.RecordPayment(ctx, billing.RequestFor(q, method))
		if err == nil {
			fmt.Fprintln(out, "Payment processed successfully.")
			return records, nil
		}
		if !interactive || !isMethodError(err) {
			return nil, err
		}
		fmt.Fprintf(out, "  %v\n", err)
	}
}

func isMethodError(err error) bool {
	var verr *apperr.ValidationError
	return errors.As(err, &verr) && verr.Field == "method"
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect billable services",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "List services with their price bands and the billing rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(contextOf(cmd), func(a *app) error {
				out := cmd.OutOrStdout()
				entries := a.engine.Catalog().Entries()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No services loaded.")
				} else {
					tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "SERVICE\tMIN\tMAX")
					for _, e := range entries {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.MinPrice.StringFixed(2), e.MaxPrice.StringFixed(2))
					}
					tw.Flush()
				}

				fmt.Fprintln(out)
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "WHEN\tSERVICE\tPRICE")
				for _, r := range a.engine.Policy().Rules {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Flag, r.Service, r.Price)
				}
				tw.Flush()
				return nil
			})
		},
	})

	return cmd
}
