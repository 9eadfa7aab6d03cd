package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/gartstein/fieldfiles/internal/pkg/utils"
	"github.com/gartstein/fieldfiles/internal/uploader/controller"
	"github.com/gartstein/fieldfiles/internal/uploader/models"
	"github.com/spf13/cobra"
)

// withRegistry runs fn against a registry service bound to the configured store.
func (cli *CLI) withRegistry(fn func(*controller.RegistryService) error) error {
	repo, err := openRepository(cli.cfg, cli.logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	producer := newEventSink(cli.cfg, cli.logger)
	defer producer.Close()

	return fn(controller.NewRegistryService(repo, producer, cli.logger))
}

func newCompanyCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "company",
		Short: "Manage companies",
	}

	var email, phone, address string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			company := &models.NewCompany{Name: args[0]}
			if email != "" {
				company.ContactEmail = utils.Ptr(email)
			}
			if phone != "" {
				company.ContactPhone = utils.Ptr(phone)
			}
			if address != "" {
				company.Address = utils.Ptr(address)
			}
			return cli.withRegistry(func(s *controller.RegistryService) error {
				id, err := s.CreateCompany(cmd.Context(), company)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created company %d\n", id)
				return nil
			})
		},
	}
	add.Flags().StringVar(&email, "email", "", "contact email")
	add.Flags().StringVar(&phone, "phone", "", "contact phone")
	add.Flags().StringVar(&address, "address", "", "postal address")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List active companies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withRegistry(func(s *controller.RegistryService) error {
				companies, err := s.ListActiveCompanies(cmd.Context())
				if err != nil {
					return err
				}
				return printCompanies(cmd.OutOrStdout(), companies)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "deactivate <id>",
		Short: "Hide a company from the registration list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid company id %q", args[0])
			}
			return cli.withRegistry(func(s *controller.RegistryService) error {
				if err := s.DeactivateCompany(cmd.Context(), uint(id)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deactivated company %d\n", id)
				return nil
			})
		},
	})
	return cmd
}

func newStaffCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Inspect registered staff",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List active staff",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withRegistry(func(s *controller.RegistryService) error {
				staff, err := s.ListActiveStaff(cmd.Context())
				if err != nil {
					return err
				}
				return printStaff(cmd.OutOrStdout(), staff)
			})
		},
	})
	return cmd
}

func printCompanies(out io.Writer, companies []models.Company) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE")
	for _, c := range companies {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, c.Name, utils.Deref(c.ContactEmail), utils.Deref(c.ContactPhone))
	}
	return w.Flush()
}

func printStaff(out io.Writer, staff []models.Staff) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLE\tCOMPANY\tFOLDER")
	for _, s := range staff {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", s.ID, s.Name, s.Role, s.CompanyID, s.FolderPath)
	}
	return w.Flush()
}
