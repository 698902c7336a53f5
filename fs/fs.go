// Package appfs embeds the files the binaries need at runtime.
package appfs

import (
	"embed"

	"github.com/trezcool/attendance/core/refdata"
)

//go:embed migrations/*.sql refdata/*.json
var FS embed.FS

const (
	MigrationsDir = "migrations"
	SchoolsFile   = "refdata/schools.json"
)

// LoadRefData reads the school directory from path, or from the embedded dataset when path is empty.
func LoadRefData(path string) (*refdata.Provider, error) {
	if path != "" {
		return refdata.LoadFile(path)
	}
	return refdata.LoadFS(FS, SchoolsFile)
}
