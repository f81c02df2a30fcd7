package server

import (
	"context"
	"database/sql"

	"github.com/casbin/casbin/v2"
	ormdriver "github.com/faciam-dev/goquent/orm/driver"

	"github.com/faciam-dev/guidecms/internal/logger"
	"github.com/faciam-dev/guidecms/internal/rbac"
)

// initEnforcer creates the enforcer with the default policies and adds the
// ones stored in the database.
func initEnforcer(ctx context.Context, db *sql.DB, dialect ormdriver.Dialect, tablePrefix string) (*casbin.Enforcer, error) {
	e, err := rbac.NewEnforcer()
	if err != nil {
		return nil, err
	}
	if db != nil {
		if err := rbac.Load(ctx, db, dialect, tablePrefix, e); err != nil {
			logger.L.Error("load rbac", "err", err)
		}
	}
	return e, nil
}
