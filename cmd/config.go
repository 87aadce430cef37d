package cmd

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/whatsmeow-ffi/build-tools/pkg/config"
)

type resolvedPaths struct {
	Root        string   `yaml:"root"`
	ArtifactDir string   `yaml:"artifact_dir"`
	Library     string   `yaml:"library"`
	Def         string   `yaml:"def"`
	ImportLib   string   `yaml:"import_lib"`
	Primary     string   `yaml:"primary"`
	Aux         []string `yaml:"aux"`
}

type configDump struct {
	Config *config.Config `yaml:"config"`
	Paths  resolvedPaths  `yaml:"paths"`
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Prints the resolved configuration",
	Long:  `Prints the configuration (defaults, ffibuild.toml and FFI_* variables merged) and the resulting paths as YAML.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, b, err := prepare(cmd)
		if err != nil {
			return err
		}

		p := b.Paths
		dump := configDump{
			Config: cfg,
			Paths: resolvedPaths{
				Root:        p.Root,
				ArtifactDir: p.ArtifactDir,
				Library:     p.Library(),
				Def:         p.Def(),
				ImportLib:   p.ImportLib(),
				Primary:     p.PrimaryLibrary(),
				Aux:         p.AuxLibraries(),
			},
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(dump); err != nil {
			return eris.Wrap(err, "failed to encode configuration")
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
