package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/territorio/internal/db"
)

func newCongregationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "congregation",
		Aliases: []string{"cong"},
		Short:   "Congregation management commands",
	}

	cmd.AddCommand(newCongregationCreateCmd())
	cmd.AddCommand(newCongregationBindCmd())
	return cmd
}

func newCongregationCreateCmd() *cobra.Command {
	var (
		configPath string
		name       string
		number     int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a congregation",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := openDB(configPath)
			if err != nil {
				return err
			}
			defer closeDB(gormDB)

			c, err := db.CreateCongregation(gormDB, name, number)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created congregation %d %q (id: %s)\n", c.Number, c.Name, c.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to territorio config file")
	cmd.Flags().StringVar(&name, "name", "", "congregation name (required)")
	cmd.Flags().IntVar(&number, "number", 0, "congregation number (required)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("number")
	return cmd
}

func newCongregationBindCmd() *cobra.Command {
	var (
		configPath string
		number     int
		binding    db.WhatsappBinding
	)

	cmd := &cobra.Command{
		Use:   "bind",
		Short: "Bind a congregation to a WhatsApp instance and group",
		Long:  "Stores the Evolution instance name, API key and group JID the bot listens to. Omitted flags keep their stored values.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := openDB(configPath)
			if err != nil {
				return err
			}
			defer closeDB(gormDB)

			c, err := db.BindWhatsapp(gormDB, number, binding)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Congregation %d bound\n", c.Number)
			fmt.Fprintf(out, "  Instance: %s\n", c.WhatsappInstanceName)
			fmt.Fprintf(out, "  Group:    %s\n", c.WhatsappGroupID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to territorio config file")
	cmd.Flags().IntVar(&number, "number", 0, "congregation number (required)")
	cmd.Flags().StringVar(&binding.InstanceName, "instance", "", "Evolution instance name")
	cmd.Flags().StringVar(&binding.APIKey, "api-key", "", "Evolution instance API key")
	cmd.Flags().StringVar(&binding.GroupID, "group", "", "WhatsApp group JID, e.g. 1203630000@g.us")
	cmd.MarkFlagRequired("number")
	return cmd
}
