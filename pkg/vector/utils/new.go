// Package vectorutils builds a vector.Driver from configuration.
package vectorutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/loom/pkg/vector"
	"github.com/papercomputeco/loom/pkg/vector/sqlitevec"
)

type NewVectorDriverOpts struct {
	ProviderType string
	TargetURL    string
	Dimensions   uint
	Logger       *slog.Logger
}

func NewVectorDriver(o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "sqlite", "sqlite-vec", "sqlitevec":
		return sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath:     o.TargetURL,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
