package migrator

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

//go:embed sql
var sqlFS embed.FS

// semver of the schema after each migration version
var semverByVersion = map[int]string{
	1: "0.1.0",
	2: "0.2.0",
}

// loadMigrations reads sql/<dir>/NNNN_name.{up,down}.sql pairs.
func loadMigrations(dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(sqlFS, path.Join("sql", dir))
	if err != nil {
		return nil, err
	}
	byVersion := map[int]*Migration{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		num, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("bad migration name %q", name)
		}
		v, err := strconv.Atoi(num)
		if err != nil {
			return nil, fmt.Errorf("bad migration version %q: %w", name, err)
		}
		data, err := sqlFS.ReadFile(path.Join("sql", dir, name))
		if err != nil {
			return nil, err
		}
		m := byVersion[v]
		if m == nil {
			m = &Migration{Version: v, SemVer: semverByVersion[v]}
			byVersion[v] = m
		}
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			m.UpSQL = string(data)
		case strings.HasSuffix(name, ".down.sql"):
			m.DownSQL = string(data)
		}
	}
	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	for i, m := range out {
		if m.Version != i+1 {
			return nil, fmt.Errorf("migration versions are not contiguous at %d", m.Version)
		}
	}
	return out, nil
}
