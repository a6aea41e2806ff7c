package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MKhiriev/go-offline-sync/models"
)

func newPreloadCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "preload <bundle>",
		Short: "Seed the cache from a JSON or YAML bundle",
		Long: `Seed the cache from a bundle shaped like a sync response:
pois, rewards, media, loyalty and profile. Entries older than what is
cached are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := readBundle(afero.NewOsFs(), args[0])
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), open, opts, func(s *Session) error {
				if err := s.Sync.Preload(cmd.Context(), seed); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "preloaded %d pois, %d rewards, %d media\n",
					len(seed.POIs), len(seed.Rewards), len(seed.Media))
				return nil
			})
		},
	}
}

func readBundle(fs afero.Fs, path string) (models.ServerUpdates, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return models.ServerUpdates{}, fmt.Errorf("read bundle: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
	case ".yaml", ".yml":
		var doc any
		if err = yaml.Unmarshal(data, &doc); err != nil {
			return models.ServerUpdates{}, fmt.Errorf("decode bundle: %w", err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return models.ServerUpdates{}, fmt.Errorf("convert bundle: %w", err)
		}
	default:
		return models.ServerUpdates{}, fmt.Errorf("unsupported bundle format %q", ext)
	}

	var u models.ServerUpdates
	if err = json.Unmarshal(data, &u); err != nil {
		return models.ServerUpdates{}, fmt.Errorf("decode bundle: %w", err)
	}
	return u, nil
}
