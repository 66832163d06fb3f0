package internal

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskhive/tasks-api/internal"
	"github.com/taskhive/tasks-api/internal/envvar"
)

// NewPostgreSQL instantiates the PostgreSQL connection pool using configuration defined in
// environment variables.
func NewPostgreSQL(conf *envvar.Configuration) (*pgxpool.Pool, error) {
	get := func(v string) (string, error) {
		res, err := conf.Get(v)
		if err != nil {
			return "", internal.WrapErrorf(err, internal.ErrorCodeUnknown, "conf.Get %s", v)
		}
		return res, nil
	}

	host, err := get("DATABASE_HOST")
	if err != nil {
		return nil, err
	}
	port, err := get("DATABASE_PORT")
	if err != nil {
		return nil, err
	}
	username, err := get("DATABASE_USERNAME")
	if err != nil {
		return nil, err
	}
	password, err := get("DATABASE_PASSWORD")
	if err != nil {
		return nil, err
	}
	name, err := get("DATABASE_NAME")
	if err != nil {
		return nil, err
	}
	sslmode, err := get("DATABASE_SSLMODE")
	if err != nil {
		return nil, err
	}

	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(username, password),
		Host:   fmt.Sprintf("%s:%s", host, port),
		Path:   name,
	}

	q := dsn.Query()
	q.Add("sslmode", sslmode)

	dsn.RawQuery = q.Encode()

	poolConf, err := pgxpool.ParseConfig(dsn.String())
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "pgxpool.ParseConfig")
	}

	poolConf.MaxConns = 16
	poolConf.ConnConfig.ConnectTimeout = 5 * time.Second

	if v, _ := conf.Get("DATABASE_MAX_CONNS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil && n > 0 {
			poolConf.MaxConns = int32(n)
		}
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConf)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "pgxpool.NewWithConfig")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "pool.Ping")
	}

	return pool, nil
}
