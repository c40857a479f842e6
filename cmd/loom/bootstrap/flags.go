package bootstrap

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/loom/pkg/config"
)

// EngineFlags are the registry keys every engine-running command exposes.
var EngineFlags = []string{
	config.FlagProvider,
	config.FlagModel,
	config.FlagModelTarget,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagUserID,
	config.FlagMaxSteps,
	config.FlagCompactionThreshold,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagEventStreamProv,
	config.FlagEventStreamBrokers,
	config.FlagEventStreamTopic,
}

// OptionsFromCommand resolves the layered configuration for cmd, whose flags
// must have been registered with config.AddFlags for the given keys.
func OptionsFromCommand(cmd *cobra.Command, keys []string, surface string) (Options, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return Options{}, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, keys)

	return Options{
		ConfigDir:      configDir,
		Config:         config.FromViper(v),
		TemperatureSet: v.IsSet("model.temperature"),
		Surface:        surface,
	}, nil
}
