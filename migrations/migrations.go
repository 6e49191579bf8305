// Package migrations embeds the PostgreSQL schema applied by collegectl migrate.
package migrations

import (
	"embed"
	"io/fs"
	"sort"

	"github.com/campusdesk/college-admin-api/pkg/database"
)

//go:embed *.sql
var files embed.FS

// All returns the embedded scripts in filename order.
func All() ([]database.Script, error) {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	scripts := make([]database.Script, 0, len(names))
	for _, name := range names {
		raw, err := files.ReadFile(name)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, database.Script{Name: name, SQL: string(raw)})
	}
	return scripts, nil
}
