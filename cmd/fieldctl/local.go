package main

import (
	"database/sql"
	"os/user"

	"github.com/faciam-dev/guidecms/internal/content"
	"github.com/faciam-dev/guidecms/internal/customfield/audit"
	"github.com/faciam-dev/guidecms/internal/customfield/ordering"
	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/internal/domain/capability"
	"github.com/faciam-dev/guidecms/internal/usecase/fields"
)

// local is the set of stores a database command works on.
type local struct {
	db       *sql.DB
	store    *registry.Store
	resolver *registry.Resolver
	fields   *fields.Service
	meta     *content.MetaStore
}

func openLocal(f *localFlags) (*local, error) {
	static, err := registry.NewStaticProvider()
	if err != nil {
		return nil, err
	}
	if f.SchemaFile != "" {
		if err := static.LoadFile(f.SchemaFile); err != nil {
			return nil, err
		}
	}
	db, err := f.Open()
	if err != nil {
		return nil, err
	}
	store := &registry.Store{DB: db, Driver: f.Driver, TablePrefix: f.TablePrefix}
	resolver := &registry.Resolver{DB: store, Static: static}
	return &local{
		db:       db,
		store:    store,
		resolver: resolver,
		fields: &fields.Service{
			Store:     store,
			Mover:     &ordering.Resolver{Store: store},
			Audit:     &audit.Recorder{DB: db, Driver: f.Driver, TablePrefix: f.TablePrefix},
			PostTypes: resolver,
		},
		meta: &content.MetaStore{DB: db, Driver: f.Driver, TablePrefix: f.TablePrefix},
	}, nil
}

func (l *local) Close() error { return l.db.Close() }

// operator is the principal CLI writes are audited under. Local commands
// hold direct database access, so no capability checker is installed.
func operator() capability.Principal {
	name := "cli"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = "cli:" + u.Username
	}
	return capability.Principal{Subject: name, Roles: []string{"admin"}}
}
