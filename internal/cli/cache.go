package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MKhiriev/go-offline-sync/models"
)

func newClearCacheCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache [kind...]",
		Short: "Drop cached entities of the given kinds, or of every kind",
		Long: `Drop cached entities. Without arguments every kind is cleared.

Kinds: poi, media, loyalty, reward, profile. Entities referenced by pending
transactions are kept.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(args)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), open, opts, func(s *Session) error {
				if err := s.Sync.ClearCache(cmd.Context(), kinds...); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
				return nil
			})
		},
	}
}

func parseKinds(args []string) ([]models.EntityKind, error) {
	kinds := make([]models.EntityKind, 0, len(args))
	for _, a := range args {
		k := models.EntityKind(a)
		if !k.Valid() {
			return nil, fmt.Errorf("%w: %q", models.ErrUnknownEntityKind, a)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
