package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/cleaning-ops/internal/booking"
	"github.com/example/cleaning-ops/internal/client"
)

type prompt struct {
	label string
	field string
	set   func(f *booking.Form, value string) error
}

func textField(dst func(*booking.Form) *string) func(*booking.Form, string) error {
	return func(f *booking.Form, value string) error {
		*dst(f) = value
		return nil
	}
}

func countField(dst func(*booking.Form) *int) func(*booking.Form, string) error {
	return func(f *booking.Form, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("enter a whole number")
		}
		*dst(f) = n
		return nil
	}
}

var bookingPrompts = map[booking.Step][]prompt{
	booking.StepContact: {
		{"First name", "firstName", textField(func(f *booking.Form) *string { return &f.FirstName })},
		{"Last name", "lastName", textField(func(f *booking.Form) *string { return &f.LastName })},
		{"Email", "email", textField(func(f *booking.Form) *string { return &f.Email })},
		{"Phone", "phone", textField(func(f *booking.Form) *string { return &f.Phone })},
	},
	booking.StepLocation: {
		{"Address", "address", textField(func(f *booking.Form) *string { return &f.Address })},
		{"City", "city", textField(func(f *booking.Form) *string { return &f.City })},
		{"Postcode", "postcode", textField(func(f *booking.Form) *string { return &f.Postcode })},
	},
	booking.StepServiceDetails: {
		{"Service type", "serviceType", textField(func(f *booking.Form) *string { return &f.ServiceType })},
		{"Property type", "propertyType", textField(func(f *booking.Form) *string { return &f.PropertyType })},
		{"Bedrooms", "bedrooms", countField(func(f *booking.Form) *int { return &f.Bedrooms })},
		{"Bathrooms", "bathrooms", countField(func(f *booking.Form) *int { return &f.Bathrooms })},
	},
	booking.StepSchedule: {
		{"Preferred date (YYYY-MM-DD)", "preferredDate", textField(func(f *booking.Form) *string { return &f.PreferredDate })},
		{"Alternative date (optional)", "alternativeDate", textField(func(f *booking.Form) *string { return &f.AlternativeDate })},
		{"Time slot", "timeSlot", textField(func(f *booking.Form) *string { return &f.TimeSlot })},
	},
	booking.StepReview: {
		{"Service provider", "serviceProviderId", textField(func(f *booking.Form) *string { return &f.ServiceProviderID })},
		{"Notes (optional)", "notes", textField(func(f *booking.Form) *string { return &f.Notes })},
	},
}

var errInputEnded = errors.New("input ended before the booking was submitted")

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Take a customer booking step by step",
	Long: `Walk through contact, location, service details, schedule and review. Each step
must be complete before the next one. The estimate shown on review is
recomputed by the server when the booking is submitted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		api := newClient()

		prices, err := api.Prices(ctx)
		if err != nil {
			return fmt.Errorf("error fetching prices: %w", err)
		}
		wizard := booking.NewWizard(booking.PriceList(prices.Prices))
		in := bufio.NewScanner(cmd.InOrStdin())

		cmd.Printf("Service types: %s\n", strings.Join(serviceNames(prices), ", "))
		for wizard.Step() < booking.StepReview {
			step := wizard.Step()
			cmd.Printf("\n[%s]\n", step)
			if err := askStep(cmd, in, wizard, bookingPrompts[step]); err != nil {
				return err
			}
			if err := wizard.Next(); err != nil {
				if incomplete, ok := booking.AsIncomplete(err); ok {
					cmd.Printf("Missing: %s\n", fieldNames(incomplete.Fields))
					continue
				}
				return err
			}
		}

		for {
			cmd.Printf("\n[%s]\n", booking.StepReview)
			if err := askStep(cmd, in, wizard, bookingPrompts[booking.StepReview]); err != nil {
				return err
			}
			printReview(cmd, wizard.Form(), prices)

			answer, err := readLine(cmd, in, "Submit booking? [y/N]")
			if err != nil {
				return err
			}
			if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
				cmd.Println("Booking not submitted.")
				return nil
			}

			record, err := wizard.Submit(ctx, api)
			if err == nil {
				cmd.Printf("Booking %s received", record.ID)
				if record.Reference != "" {
					cmd.Printf(" (reference %s)", record.Reference)
				}
				cmd.Println()
				return nil
			}
			if incomplete, ok := booking.AsIncomplete(err); ok {
				cmd.Printf("Missing: %s\n", fieldNames(incomplete.Fields))
				continue
			}
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
				return fmt.Errorf("booking rejected: %s", fieldNames(apiErr.Fields))
			}
			return fmt.Errorf("booking failed: %w", err)
		}
	},
}

// askStep prompts for each field of a step. An empty answer keeps the
// current value so a step can be revisited.
func askStep(cmd *cobra.Command, in *bufio.Scanner, wizard *booking.Wizard, prompts []prompt) error {
	for _, p := range prompts {
		for {
			value, err := readLine(cmd, in, p.label)
			if err != nil {
				return err
			}
			if value == "" {
				break
			}
			var setErr error
			if err := wizard.Update(func(f *booking.Form) { setErr = p.set(f, value) }); err != nil {
				return err
			}
			if setErr == nil {
				break
			}
			cmd.Printf("%s: %v\n", p.field, setErr)
		}
	}
	return nil
}

func readLine(cmd *cobra.Command, in *bufio.Scanner, label string) (string, error) {
	cmd.Printf("%s: ", label)
	if !in.Scan() {
		if err := in.Err(); err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		cmd.Println()
		return "", errInputEnded
	}
	return strings.TrimSpace(in.Text()), nil
}

func printReview(cmd *cobra.Command, form booking.Form, prices *client.Prices) {
	cmd.Println("\nReview")
	cmd.Printf("  %s %s <%s> %s\n", form.FirstName, form.LastName, form.Email, form.Phone)
	cmd.Printf("  %s, %s %s\n", form.Address, form.City, form.Postcode)
	cmd.Printf("  %s clean of a %s, %d bedrooms, %d bathrooms\n", form.ServiceType, form.PropertyType, form.Bedrooms, form.Bathrooms)
	cmd.Printf("  %s (%s)\n", form.PreferredDate, form.TimeSlot)
	if estimate, err := booking.Estimate(booking.PriceList(prices.Prices), form.ServiceType, form.Bedrooms, form.Bathrooms); err == nil {
		cmd.Printf("  Estimate: £%d\n", estimate)
	}
}

func serviceNames(prices *client.Prices) []string {
	names := make([]string, 0, len(prices.Prices))
	for name := range prices.Prices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fieldNames(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name, reason := range fields {
		names = append(names, name+" ("+reason+")")
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func init() {
	rootCmd.AddCommand(bookCmd)
}
