package rolestore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/buildflow/permkit/pkg/permission"
)

// Postgres is a Source backed by normalized tables. The expected schema
// ships as a goose migration in pkg/pg:
//
//	permission_revision(id, version)          single row, bumped per change
//	roles(id, name, display_name, is_system)
//	role_inherits(role_id, parent_id, position)
//	role_rules(id, role_id, resource, action, granted)
//	users(id, primary_role, is_active)
//	user_roles(user_id, role_id, position)
//	user_rules(id, user_id, resource, action, granted)
//	user_restrictions(id, user_id, resource, action, reason)
//
// Load reads everything inside one repeatable-read transaction so the
// version and the records it covers are mutually consistent. Ordered
// list columns (inherits, additional roles) carry an explicit position
// because their order is semantically significant.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a source reading from the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	if pool == nil {
		panic("rolestore: pgx pool cannot be nil")
	}
	return &Postgres{pool: pool}
}

// Load reads the full data set at a consistent revision.
func (p *Postgres) Load(ctx context.Context) (Data, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return Data{}, errors.Join(ErrSourceUnavailable, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var data Data
	if err := tx.QueryRow(ctx, `SELECT version FROM permission_revision WHERE id = 1`).Scan(&data.Version); err != nil {
		return Data{}, errors.Join(ErrSourceUnavailable, err)
	}

	roles, err := p.loadRoles(ctx, tx)
	if err != nil {
		return Data{}, err
	}
	users, err := p.loadUsers(ctx, tx)
	if err != nil {
		return Data{}, err
	}
	data.Roles = roles
	data.Users = users

	if err := tx.Commit(ctx); err != nil {
		return Data{}, errors.Join(ErrSourceUnavailable, err)
	}
	return data, nil
}

func (p *Postgres) loadRoles(ctx context.Context, tx pgx.Tx) ([]permission.Role, error) {
	rows, err := tx.Query(ctx, `SELECT id, name, COALESCE(display_name, ''), is_system FROM roles ORDER BY id`)
	if err != nil {
		return nil, errors.Join(ErrSourceUnavailable, err)
	}
	var out []permission.Role
	index := make(map[string]int)
	for rows.Next() {
		var r permission.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.DisplayName, &r.System); err != nil {
			rows.Close()
			return nil, errors.Join(ErrSourceUnavailable, err)
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrSourceUnavailable, err)
	}

	rows, err = tx.Query(ctx, `SELECT role_id, parent_id FROM role_inherits ORDER BY role_id, position`)
	if err != nil {
		return nil, errors.Join(ErrSourceUnavailable, err)
	}
	for rows.Next() {
		var roleID, parentID string
		if err := rows.Scan(&roleID, &parentID); err != nil {
			rows.Close()
			return nil, errors.Join(ErrSourceUnavailable, err)
		}
		if i, ok := index[roleID]; ok {
			out[i].Inherits = append(out[i].Inherits, parentID)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrSourceUnavailable, err)
	}

	rows, err = tx.Query(ctx, `SELECT id, role_id, resource, action, granted FROM role_rules ORDER BY role_id, id`)
	if err != nil {
		return nil, errors.Join(ErrSourceUnavailable, err)
	}
	for rows.Next() {
		var roleID string
		var rule permission.Rule
		if err := rows.Scan(&rule.ID, &roleID, &rule.Resource, &rule.Action, &rule.Granted); err != nil {
			rows.Close()
			return nil, errors.Join(ErrSourceUnavailable, err)
		}
		if i, ok := index[roleID]; ok {
			out[i].Permissions = append(out[i].Permissions, rule)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrSourceUnavailable, err)
	}
	return out, nil
}

func (p *Postgres) loadUsers(ctx context.Context, tx pgx.Tx) ([]permission.User, error) {
	rows, err := tx.Query(ctx, `SELECT id, COALESCE(primary_role, ''), is_active FROM users ORDER BY id`)
	if err != nil {
		return nil, errors.Join(ErrSourceUnavailable, err)
	}
	var out []permission.User
	index := make(map[string]int)
	for rows.Next() {
		var u permission.User
		if err := rows.Scan(&u.ID, &u.PrimaryRole, &u.Active); err != nil {
			rows.Close()
			return nil, errors.Join(ErrSourceUnavailable, err)
		}
		index[u.ID] = len(out)
		out = append(out, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrSourceUnavailable, err)
	}

	rows, err = tx.Query(ctx, `SELECT user_id, role_id FROM user_roles ORDER BY user_id, position`)
	if err != nil {
		return nil, errors.Join(ErrSourceUnavailable, err)
	}
	for rows.Next() {
		var userID, roleID string
		if err := rows.Scan(&userID, &roleID); err != nil {
			rows.Close()
			return nil, errors.Join(ErrSourceUnavailable, err)
		}
		if i, ok := index[userID]; ok {
			out[i].AdditionalRoles = append(out[i].AdditionalRoles, roleID)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrSourceUnavailable, err)
	}

	rows, err = tx.Query(ctx, `SELECT id, user_id, resource, action, granted FROM user_rules ORDER BY user_id, id`)
	if err != nil {
		return nil, errors.Join(ErrSourceUnavailable, err)
	}
	for rows.Next() {
		var userID string
		var rule permission.Rule
		if err := rows.Scan(&rule.ID, &userID, &rule.Resource, &rule.Action, &rule.Granted); err != nil {
			rows.Close()
			return nil, errors.Join(ErrSourceUnavailable, err)
		}
		if i, ok := index[userID]; ok {
			out[i].Custom = append(out[i].Custom, rule)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrSourceUnavailable, err)
	}

	rows, err = tx.Query(ctx, `SELECT id, user_id, resource, action, COALESCE(reason, '') FROM user_restrictions ORDER BY user_id, id`)
	if err != nil {
		return nil, errors.Join(ErrSourceUnavailable, err)
	}
	for rows.Next() {
		var userID string
		var res permission.Restriction
		if err := rows.Scan(&res.ID, &userID, &res.Resource, &res.Action, &res.Reason); err != nil {
			rows.Close()
			return nil, errors.Join(ErrSourceUnavailable, err)
		}
		if i, ok := index[userID]; ok {
			out[i].Restrictions = append(out[i].Restrictions, res)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrSourceUnavailable, err)
	}
	return out, nil
}
