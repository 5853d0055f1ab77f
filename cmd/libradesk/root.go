// cmd/libradesk/root.go
package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"libradesk/internal/clients"
	"libradesk/internal/config"
	"libradesk/internal/library"
)

func newRootCmd() *cobra.Command {
	var server string

	root := &cobra.Command{
		Use:           "libradesk",
		Short:         "Library desk backend and command line client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&server, "server", "", "API base URL (default $LIBRADESK_SERVER_URL)")

	client := func() (*clients.LibraryClient, error) {
		if server != "" {
			return clients.NewLibraryClient(server), nil
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		return clients.NewLibraryClient(cfg.ServerURL), nil
	}

	root.AddCommand(
		newServeCmd(),
		newBooksCmd(client),
		newMembersCmd(client),
		newBorrowingsCmd(client),
		newBorrowCmd(client),
		newReturnCmd(client),
		newStatsCmd(client),
		newActivityCmd(client),
	)
	return root
}

type clientFactory func() (*clients.LibraryClient, error)

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func table(w io.Writer, header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func printBooks(w io.Writer, books []library.Book) error {
	tw := table(w, "ID", "TITLE", "AUTHOR", "ISBN", "GENRE", "AVAILABLE")
	for _, b := range books {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d/%d\n", b.ID, b.Title, b.Author, b.ISBN, b.Genre, b.AvailableCopies, b.TotalCopies)
	}
	return tw.Flush()
}

func newBooksCmd(client clientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books [query]",
		Short: "List books, optionally filtered by title, author or ISBN",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			books, err := c.ListBooks(cmd.Context(), optionalArg(args))
			if err != nil {
				return err
			}
			return printBooks(cmd.OutOrStdout(), books)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "available",
		Short: "List books with at least one copy on the shelf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			books, err := c.ListAvailableBooks(cmd.Context())
			if err != nil {
				return err
			}
			return printBooks(cmd.OutOrStdout(), books)
		},
	})
	return cmd
}

func newMembersCmd(client clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "members [query]",
		Short: "List members, optionally filtered by name, email or member id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			members, err := c.ListMembers(cmd.Context(), optionalArg(args))
			if err != nil {
				return err
			}
			tw := table(cmd.OutOrStdout(), "ID", "MEMBER", "NAME", "EMAIL", "TYPE", "JOINED")
			for _, m := range members {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", m.ID, m.MemberID, m.Name, m.Email, m.MemberType, m.JoinDate)
			}
			return tw.Flush()
		},
	}
}

func printBorrowings(w io.Writer, borrowings []library.Borrowing) error {
	tw := table(w, "ID", "BOOK", "MEMBER", "BORROWED", "DUE", "RETURNED")
	for _, b := range borrowings {
		returned := "-"
		if b.ReturnDate != nil {
			returned = b.ReturnDate.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", b.ID, b.BookTitle, b.MemberName, b.BorrowDate, b.DueDate, returned)
	}
	return tw.Flush()
}

func newBorrowingsCmd(client clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "borrowings [query]",
		Short: "List borrowings, optionally filtered by book title, member name or id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			borrowings, err := c.ListBorrowings(cmd.Context(), optionalArg(args))
			if err != nil {
				return err
			}
			return printBorrowings(cmd.OutOrStdout(), borrowings)
		},
	}
}

func newBorrowCmd(client clientFactory) *cobra.Command {
	var (
		bookID   int64
		memberID int64
		due      string
	)
	cmd := &cobra.Command{
		Use:   "borrow",
		Short: "Lend a copy of a book to a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := library.BorrowRequest{BookID: bookID, MemberID: memberID}
			if due != "" {
				d, err := civil.ParseDate(due)
				if err != nil {
					return fmt.Errorf("invalid --due %q: want YYYY-MM-DD", due)
				}
				req.DueDate = d
			}
			c, err := client()
			if err != nil {
				return err
			}
			b, err := c.BorrowBook(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "borrowing %d: %q lent to %s, due %s\n", b.ID, b.BookTitle, b.MemberName, b.DueDate)
			return nil
		},
	}
	cmd.Flags().Int64Var(&bookID, "book", 0, "book id")
	cmd.Flags().Int64Var(&memberID, "member", 0, "member id")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD), defaults to the server loan period")
	_ = cmd.MarkFlagRequired("book")
	_ = cmd.MarkFlagRequired("member")
	return cmd
}

func newReturnCmd(client clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "return <borrowingID>",
		Short: "Return a borrowed copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid borrowing id %q", args[0])
			}
			c, err := client()
			if err != nil {
				return err
			}
			b, err := c.ReturnBook(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "borrowing %d: %q returned on %s\n", b.ID, b.BookTitle, b.ReturnDate)
			return nil
		},
	}
}

func newStatsCmd(client clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			s, err := c.DashboardStats(cmd.Context())
			if err != nil {
				return err
			}
			tw := table(cmd.OutOrStdout(), "BOOKS", "MEMBERS", "BORROWED", "OVERDUE")
			fmt.Fprintf(tw, "%d\t%d\t%d\t%d\n", s.TotalBooks, s.TotalMembers, s.BooksBorrowed, s.OverdueBooks)
			return tw.Flush()
		},
	}
}

func newActivityCmd(client clientFactory) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the most recent library activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			items, err := c.RecentActivity(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := table(cmd.OutOrStdout(), "WHEN", "WHAT", "DETAIL")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", it.OccurredAt.Format("2006-01-02 15:04"), it.Label, it.Summary)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of entries")
	return cmd
}
