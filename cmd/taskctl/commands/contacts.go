package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskmaster/autotasks/internal/client/store"
	"github.com/taskmaster/autotasks/internal/client/views"
	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/ports"
)

func (c *cli) contactsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contacts",
		Aliases: []string{"contact", "c"},
		Short:   "Manage contacts",
	}

	cmd.AddCommand(c.contactsListCommand())
	cmd.AddCommand(c.contactsSearchCommand())
	cmd.AddCommand(c.contactsShowCommand())
	cmd.AddCommand(c.contactsCreateCommand())
	cmd.AddCommand(c.contactsUpdateCommand())
	cmd.AddCommand(c.contactsDeleteCommand())
	cmd.AddCommand(c.contactsStatsCommand())
	return cmd
}

type contactFilterFlags struct {
	skip, limit int
	channel     string
	all         bool
}

func (f *contactFilterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.skip, "skip", 0, "number of contacts to skip")
	cmd.Flags().IntVar(&f.limit, "limit", 100, "maximum contacts to return")
	cmd.Flags().StringVar(&f.channel, "channel", "", "whatsapp, email or telegram")
	cmd.Flags().BoolVar(&f.all, "all", false, "include deactivated contacts")
}

func (f *contactFilterFlags) query() (store.ContactQuery, error) {
	q := store.ContactQuery{Page: store.Page{Skip: f.skip, Limit: f.limit}, IncludeInactive: f.all}
	if f.channel != "" {
		ct := entities.ChannelType(f.channel)
		if !ct.IsValid() {
			return q, entities.ErrInvalidChannel
		}
		q.ChannelType = &ct
	}
	return q, nil
}

func (c *cli) contactsListCommand() *cobra.Command {
	var flags contactFilterFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts",
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			q, err := flags.query()
			if err != nil {
				return err
			}
			contacts := c.app.Contacts
			if err := contacts.Fetch(cmd.Context(), q); err != nil {
				return fmt.Errorf("%s", contacts.Error())
			}
			return views.Contacts(cmd.OutOrStdout(), contacts.Contacts())
		}),
	}
	flags.bind(cmd)
	return cmd
}

func (c *cli) contactsSearchCommand() *cobra.Command {
	var flags contactFilterFlags
	cmd := &cobra.Command{
		Use:   "search TEXT",
		Short: "Search contacts by name or channel value",
		Args:  cobra.ExactArgs(1),
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			q, err := flags.query()
			if err != nil {
				return err
			}
			contacts := c.app.Contacts
			if err := contacts.Search(cmd.Context(), args[0], q); err != nil {
				return fmt.Errorf("%s", contacts.Error())
			}
			return views.Contacts(cmd.OutOrStdout(), contacts.Contacts())
		}),
	}
	flags.bind(cmd)
	return cmd
}

func (c *cli) contactsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one contact",
		Args:  cobra.ExactArgs(1),
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			contact, err := c.app.Contacts.FetchOne(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("%s", c.app.Contacts.Error())
			}
			if err := views.Contacts(cmd.OutOrStdout(), []entities.Contact{*contact}); err != nil {
				return err
			}
			if contact.Notes != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nNotes: %s\n", *contact.Notes)
			}
			return nil
		}),
	}
}

func (c *cli) contactsCreateCommand() *cobra.Command {
	var (
		req   ports.CreateContactRequest
		notes string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a contact",
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			if !req.ChannelType.IsValid() {
				return entities.ErrInvalidChannel
			}
			if notes != "" {
				req.Notes = &notes
			}
			contact, err := c.app.Contacts.Create(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("%s", c.app.Contacts.Error())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created contact #%d (%s %s)\n", contact.ID, contact.ChannelType, contact.ChannelValue)
			return nil
		}),
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "contact name")
	cmd.Flags().StringVar((*string)(&req.ChannelType), "channel", "", "whatsapp, email or telegram")
	cmd.Flags().StringVar(&req.ChannelValue, "value", "", "phone number, email address or @handle")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("channel")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func (c *cli) contactsUpdateCommand() *cobra.Command {
	var (
		name, channel, value, notes string
		active                      bool
	)
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change a contact",
		Args:  cobra.ExactArgs(1),
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var req ports.UpdateContactRequest
			flags := cmd.Flags()
			if flags.Changed("name") {
				req.Name = &name
			}
			if flags.Changed("channel") {
				ct := entities.ChannelType(channel)
				if !ct.IsValid() {
					return entities.ErrInvalidChannel
				}
				req.ChannelType = &ct
			}
			if flags.Changed("value") {
				req.ChannelValue = &value
			}
			if flags.Changed("notes") {
				req.Notes = &notes
			}
			if flags.Changed("active") {
				req.IsActive = &active
			}

			contact, err := c.app.Contacts.Update(cmd.Context(), id, req)
			if err != nil {
				return fmt.Errorf("%s", c.app.Contacts.Error())
			}
			return views.Contacts(cmd.OutOrStdout(), []entities.Contact{*contact})
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&channel, "channel", "", "new channel type")
	cmd.Flags().StringVar(&value, "value", "", "new channel value")
	cmd.Flags().StringVar(&notes, "notes", "", "new notes")
	cmd.Flags().BoolVar(&active, "active", true, "reactivate or deactivate")
	return cmd
}

func (c *cli) contactsDeleteCommand() *cobra.Command {
	var permanent bool
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Deactivate a contact, or remove it with --permanent",
		Args:  cobra.ExactArgs(1),
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			contacts := c.app.Contacts
			if permanent {
				err = contacts.DeletePermanent(cmd.Context(), id)
			} else {
				err = contacts.Delete(cmd.Context(), id)
			}
			if err != nil {
				return fmt.Errorf("%s", contacts.Error())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Contact #%d removed\n", id)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&permanent, "permanent", false, "delete instead of deactivating")
	return cmd
}

func (c *cli) contactsStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count active contacts per channel",
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			stats, err := c.app.Contacts.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("%s", c.app.Contacts.Error())
			}
			return views.ContactStats(cmd.OutOrStdout(), stats)
		}),
	}
}
