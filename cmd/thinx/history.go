package main

import (
	"fmt"
	"sort"

	"github.com/harunnryd/thinx/internal/formatter"
	"github.com/harunnryd/thinx/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// The history commands only read, so they work while the server holds the
// directory lock.
var historyCmd = &cobra.Command{
	Use:   "history [identity]",
	Short: "Show conversation history",
	Long:  `Print the most recent entries of a conversation log. Without an identity the web chat user is shown.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		formatFlag, _ := cmd.Flags().GetString("format")
		format, err := formatter.ParseOutputFormat(formatFlag)
		if err != nil {
			return err
		}
		f, err := formatter.New(format)
		if err != nil {
			return err
		}

		if list, _ := cmd.Flags().GetBool("list"); list {
			metas, err := listIdentities(cfg.Paths.History)
			if err != nil {
				return err
			}
			out, err := f.FormatIdentities(metas)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		}

		identity := cfg.Chat.UserID
		if len(args) == 1 {
			identity = args[0]
		}
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = cfg.Chat.HistoryLimit
		}

		path, err := store.LogPath(cfg.Paths.History, identity)
		if err != nil {
			return err
		}
		entries, err := store.ReadLog(path, limit)
		if err != nil {
			return fmt.Errorf("read history for %s: %w", identity, err)
		}

		out, err := f.FormatEntries(entries)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func listIdentities(dir string) ([]store.IdentityMeta, error) {
	index, err := store.LoadIndex(dir)
	if err != nil {
		return nil, fmt.Errorf("load history index: %w", err)
	}
	metas := make([]store.IdentityMeta, 0, len(index.Identities))
	for _, meta := range index.Identities {
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Identity < metas[j].Identity })
	return metas, nil
}

func addHistoryFlags(fs *pflag.FlagSet) {
	fs.IntP("limit", "n", 0, "number of entries to show (default chat.history_limit)")
	fs.StringP("format", "f", string(formatter.OutputFormatTable), "output format (table, json, yaml)")
	fs.BoolP("list", "l", false, "list known identities instead of entries")
}

func init() {
	addHistoryFlags(historyCmd.Flags())
	rootCmd.AddCommand(historyCmd)
}
