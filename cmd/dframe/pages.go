package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/dframe/blobstore"
	"github.com/hupe1980/dframe/internal/slice"
)

var (
	pagesCmd = &cobra.Command{
		Use:   "pages",
		Short: "Inspect and remove frame pages in a store",
	}

	pagesListCmd = &cobra.Command{
		Use:     "list [prefix]",
		Short:   "List pages with their header",
		Args:    cobra.MaximumNArgs(1),
		PreRunE: bindFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openPageStore(cmd)
			if err != nil {
				return err
			}
			return listPages(cmd.Context(), cmd.OutOrStdout(), store, prefixArg(args))
		},
	}

	pagesPurgeCmd = &cobra.Command{
		Use:     "purge [prefix]",
		Short:   "Delete pages left behind by frames that were not closed",
		Args:    cobra.MaximumNArgs(1),
		PreRunE: bindFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openPageStore(cmd)
			if err != nil {
				return err
			}
			prefix := prefixArg(args)
			names, err := store.List(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			if err := blobstore.DeletePrefix(cmd.Context(), store, prefix); err != nil {
				return err
			}
			cmd.Printf("deleted %d pages\n", len(names))
			return nil
		},
	}
)

func init() {
	pagesCmd.AddCommand(pagesListCmd)
	pagesCmd.AddCommand(pagesPurgeCmd)
}

func prefixArg(args []string) string {
	if len(args) == 0 {
		return "frame-"
	}
	return args[0]
}

func openPageStore(cmd *cobra.Command) (blobstore.Store, error) {
	c := getStoreConfig()
	if c.Kind == "memory" {
		return nil, errors.New("the memory store keeps no pages")
	}
	return openStore(cmd.Context(), c)
}

// listPages prints one line per page. Pages with an unreadable header are
// listed with the error.
func listPages(ctx context.Context, out io.Writer, store blobstore.Store, prefix string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	names, err := store.List(ctx, prefix)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "page\tbytes\trows\tstride\tcompression")
	for _, name := range names {
		h, size, err := readHeader(ctx, store, name)
		if err != nil {
			fmt.Fprintf(w, "%s\t%d\t-\t-\t%v\n", name, size, err)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", name, size, h.Rows, h.Stride, h.Compression)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d pages\n", len(names))
	return nil
}

func readHeader(ctx context.Context, store blobstore.Store, name string) (slice.Header, int64, error) {
	var h slice.Header
	b, err := store.Open(ctx, name)
	if err != nil {
		return h, 0, err
	}
	defer b.Close()

	if b.Size() < slice.HeaderSize {
		return h, b.Size(), slice.ErrCorrupted
	}
	buf, err := blobstore.ReadRange(ctx, b, 0, slice.HeaderSize)
	if err != nil {
		return h, b.Size(), err
	}
	err = h.Unmarshal(buf)
	return h, b.Size(), err
}
